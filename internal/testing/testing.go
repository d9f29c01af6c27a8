// package testing contains shared testing utilities
package testing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/copyurl/internal/auth"
	"github.com/desertthunder/copyurl/internal/credentials"
	"github.com/desertthunder/copyurl/internal/models"
	"github.com/desertthunder/copyurl/internal/shared"
)

// Notifier records every notice it is given.
type Notifier struct {
	mu      sync.Mutex
	notices []models.Notice
}

func (n *Notifier) Notify(notice models.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *Notifier) Notices() []models.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Notice(nil), n.notices...)
}

// Last returns the most recent notice, or the zero value when there is none.
func (n *Notifier) Last() models.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notices) == 0 {
		return models.Notice{}
	}
	return n.notices[len(n.notices)-1]
}

// Clipboard keeps the last copied text in memory. Err, when set, fails every write.
type Clipboard struct {
	mu     sync.Mutex
	text   string
	writes int
	Err    error
}

func (c *Clipboard) Copy(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.text = text
	c.writes++
	return nil
}

func (c *Clipboard) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

func (c *Clipboard) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

// Prompter is a test double for [auth.Prompter] with canned answers.
type Prompter struct {
	mu         sync.Mutex
	Reauth     bool
	Choice     auth.SetupChoice
	Credential *credentials.DevCredential
	Err        error
	Calls      int
	URLs       []string
	Warnings   []string
}

func (p *Prompter) ConfirmReauthorize(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls++
	return p.Reauth, p.Err
}

func (p *Prompter) ChooseSetup(context.Context) (auth.SetupChoice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls++
	return p.Choice, p.Err
}

func (p *Prompter) EnterDeveloperCredential(context.Context) (*credentials.DevCredential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls++
	return p.Credential, p.Err
}

func (p *Prompter) ShowAuthorizationURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.URLs = append(p.URLs, url)
}

func (p *Prompter) Warn(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Warnings = append(p.Warnings, message)
}

// SpotifyServer fakes the token and search endpoints of the Spotify Web API.
//
// Searches answer with TrackPage or AlbumPage unless a status was queued with
// [SpotifyServer.FailSearches].
type SpotifyServer struct {
	*httptest.Server

	TokenRequests  atomic.Int32
	SearchRequests atomic.Int32

	TrackPage string
	AlbumPage string

	mu       sync.Mutex
	statuses []int
	queries  []string
	tokens   []string
}

// TrackPage is a first search page with two "Hey Jude" tracks.
const TrackPage = `{"tracks": {"href": "x", "limit": 20, "offset": 0, "total": 2, "items": [
  {"name": "Hey Jude - Remastered 2015", "uri": "spotify:track:0aym2LBJBk9DAYuHHutrIl", "id": "0aym2LBJBk9DAYuHHutrIl",
   "artists": [{"name": "The Beatles"}]},
  {"name": "Hey Jude", "uri": "spotify:track:pickett", "id": "pickett",
   "artists": [{"name": "Wilson Pickett"}]}
]}}`

// AlbumPage is a first search page with one album.
const AlbumPage = `{"albums": {"href": "x", "limit": 20, "offset": 0, "total": 1, "items": [
  {"name": "Abbey Road (Remastered)", "uri": "spotify:album:0ETFjACtuP2ADo6LFhL6HN", "id": "0ETFjACtuP2ADo6LFhL6HN",
   "album_type": "album", "artists": [{"name": "The Beatles"}]}
]}}`

func NewSpotifyServer(t *testing.T) *SpotifyServer {
	t.Helper()
	s := &SpotifyServer{TrackPage: TrackPage, AlbumPage: AlbumPage}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", s.token)
	mux.HandleFunc("GET /v1/search", s.search)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// FailSearches queues response statuses for the next searches, in order.
func (s *SpotifyServer) FailSearches(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, statuses...)
}

// Queries returns every search query received.
func (s *SpotifyServer) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// BearerTokens returns the access token presented with each search.
func (s *SpotifyServer) BearerTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tokens...)
}

// Config returns a configuration pointing every endpoint at s, storing credentials in dir.
func (s *SpotifyServer) Config(dir string) *shared.Config {
	cfg := shared.DefaultConfig()
	cfg.Spotify.AuthURL = s.URL + "/authorize"
	cfg.Spotify.TokenURL = s.URL + "/api/token"
	cfg.Spotify.APIURL = s.URL + "/v1/"
	cfg.Callback.Port = 0
	cfg.Auth.ProbeAddress = s.Listener.Addr().String()
	cfg.Search.RequestsPerSecond = 0
	cfg.Storage.Dir = dir
	return cfg
}

func (s *SpotifyServer) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	n := s.TokenRequests.Add(1)

	body := map[string]any{
		"access_token": fmt.Sprintf("access-%d", n),
		"token_type":   "Bearer",
		"expires_in":   3600,
	}
	if r.PostForm.Get("grant_type") != "client_credentials" {
		body["refresh_token"] = fmt.Sprintf("refresh-%d", n)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func (s *SpotifyServer) search(w http.ResponseWriter, r *http.Request) {
	s.SearchRequests.Add(1)

	s.mu.Lock()
	s.queries = append(s.queries, r.URL.Query().Get("q"))
	s.tokens = append(s.tokens, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	status := http.StatusOK
	if len(s.statuses) > 0 {
		status, s.statuses = s.statuses[0], s.statuses[1:]
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error": {"status": %d, "message": "%s"}}`, status, http.StatusText(status))
		return
	}

	if r.URL.Query().Get("type") == "album" {
		fmt.Fprint(w, s.AlbumPage)
		return
	}
	fmt.Fprint(w, s.TrackPage)
}

// WriteDevCredential stores a developer credential in dir under the default file name.
func WriteDevCredential(t *testing.T, dir string) {
	t.Helper()
	cfg := shared.DefaultConfig()
	cfg.Storage.Dir = dir
	store := credentials.NewStoreFromConfig(cfg.Storage, nil)
	if err := store.SaveDevCredential(&credentials.DevCredential{ClientID: "dev-id", ClientSecret: "dev-secret"}); err != nil {
		t.Fatalf("failed to write developer credential: %v", err)
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertFileMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("File should not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// MustWriteFile writes content to name inside dir and returns the full path.
func MustWriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}
