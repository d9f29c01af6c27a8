package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/copyurl/internal/credentials"
	"github.com/desertthunder/copyurl/internal/shared"
)

// tokenServer is a fake token endpoint counting each grant type.
type tokenServer struct {
	*httptest.Server
	clientCredentials atomic.Int32
	authCode          atomic.Int32
	refresh           atomic.Int32
	reject            atomic.Bool
	lastVerifier      atomic.Value
}

func newTokenServer(t *testing.T) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if ts.reject.Load() {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid_client", "error_description": "rejected"})
			return
		}

		body := map[string]any{"token_type": "Bearer", "expires_in": 3600}
		switch r.PostForm.Get("grant_type") {
		case "client_credentials":
			n := ts.clientCredentials.Add(1)
			body["access_token"] = "cc-token-" + string(rune('0'+n))
		case "authorization_code":
			if r.PostForm.Get("code") == "" || r.PostForm.Get("code_verifier") == "" {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
				return
			}
			ts.authCode.Add(1)
			ts.lastVerifier.Store(r.PostForm.Get("code_verifier"))
			body["access_token"] = "user-access"
			body["refresh_token"] = "user-refresh"
		case "refresh_token":
			ts.refresh.Add(1)
			body["access_token"] = "refreshed-access"
		default:
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "unsupported_grant_type"})
			return
		}
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

// fakePrompter answers prompts from fixed values and counts calls.
type fakePrompter struct {
	mu           sync.Mutex
	reauthorize  bool
	choice       SetupChoice
	dev          *credentials.DevCredential
	confirmCalls int
	setupCalls   int
	devCalls     int
	shownURLs    []string
	warnings     []string
}

func (p *fakePrompter) ConfirmReauthorize(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmCalls++
	return p.reauthorize, nil
}

func (p *fakePrompter) ChooseSetup(context.Context) (SetupChoice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setupCalls++
	return p.choice, nil
}

func (p *fakePrompter) EnterDeveloperCredential(context.Context) (*credentials.DevCredential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.devCalls++
	return p.dev, nil
}

func (p *fakePrompter) ShowAuthorizationURL(u string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shownURLs = append(p.shownURLs, u)
}

func (p *fakePrompter) Warn(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.warnings = append(p.warnings, message)
}

func (p *fakePrompter) prompts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.confirmCalls + p.setupCalls + p.devCalls
}

type fixture struct {
	cfg      *shared.Config
	store    *credentials.Store
	tokens   *tokenServer
	prompter *fakePrompter
	browser  func(string) error
	prober   Prober
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	ts := newTokenServer(t)

	cfg := shared.DefaultConfig()
	cfg.Storage.Dir = dir
	cfg.Spotify.AuthURL = ts.URL + "/authorize"
	cfg.Spotify.TokenURL = ts.URL + "/api/token"
	cfg.Callback.Host = "127.0.0.1"
	cfg.Callback.Port = 0
	cfg.Auth.Timeout = shared.Duration{Duration: 5 * time.Second}

	return &fixture{
		cfg:      cfg,
		store:    credentials.NewStoreFromConfig(cfg.Storage, nil),
		tokens:   ts,
		prompter: &fakePrompter{},
		browser:  func(string) error { return nil },
		prober:   ProberFunc(func(context.Context) error { return nil }),
	}
}

func (f *fixture) authenticator() *Authenticator {
	return New(f.cfg, Deps{
		Store:       f.store,
		Prompter:    f.prompter,
		Prober:      f.prober,
		OpenBrowser: f.browser,
		HTTPClient:  f.tokens.Client(),
	})
}

// redirectingBrowser simulates a user approving access by calling the redirect URI from
// the authorization URL hits times.
func redirectingBrowser(hits int, seen *url.Values) func(string) error {
	return func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		q := u.Query()
		if seen != nil {
			*seen = q
		}

		callback := q.Get("redirect_uri") + "?code=granted&state=" + url.QueryEscape(q.Get("state"))
		go func() {
			for range hits {
				resp, err := http.Get(callback)
				if err != nil {
					return
				}
				resp.Body.Close()
			}
		}()
		return nil
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("developer credential takes precedence without prompting", func(t *testing.T) {
		f := newFixture(t)
		if err := f.store.SaveDevCredential(&credentials.DevCredential{ClientID: "id", ClientSecret: "secret"}); err != nil {
			t.Fatal(err)
		}
		if err := f.store.SaveUserToken(&credentials.UserToken{AccessToken: "old", ExpiresAt: time.Now().Add(-time.Hour)}); err != nil {
			t.Fatal(err)
		}

		a := f.authenticator()
		sess, err := a.Authenticate(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sess.Mode != ModeDeveloper {
			t.Errorf("expected developer mode, got %s", sess.Mode)
		}
		if f.prompter.prompts() != 0 {
			t.Errorf("expected no prompts, got %d", f.prompter.prompts())
		}
		if f.tokens.clientCredentials.Load() != 1 {
			t.Errorf("expected one client credentials exchange, got %d", f.tokens.clientCredentials.Load())
		}
		if a.State() != StateAuthenticated {
			t.Errorf("expected authenticated, got %s", a.State())
		}
	})

	t.Run("valid user token is used directly", func(t *testing.T) {
		f := newFixture(t)
		if err := f.store.SaveUserToken(&credentials.UserToken{
			AccessToken: "valid", RefreshToken: "r", TokenType: "Bearer", ExpiresAt: time.Now().Add(time.Hour),
		}); err != nil {
			t.Fatal(err)
		}

		var gotAuth string
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
		}))
		defer api.Close()

		sess, err := f.authenticator().Authenticate(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sess.Mode != ModeUser {
			t.Errorf("expected user mode, got %s", sess.Mode)
		}

		resp, err := sess.HTTPClient.Get(api.URL)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if gotAuth != "Bearer valid" {
			t.Errorf("expected bearer token, got %q", gotAuth)
		}
		if f.prompter.prompts() != 0 || f.tokens.refresh.Load() != 0 {
			t.Error("expected no prompts and no token calls")
		}
	})

	t.Run("expired user token declined", func(t *testing.T) {
		f := newFixture(t)
		if err := f.store.SaveUserToken(&credentials.UserToken{AccessToken: "old", RefreshToken: "r", ExpiresAt: time.Now().Add(-time.Hour)}); err != nil {
			t.Fatal(err)
		}
		f.prompter.reauthorize = false

		a := f.authenticator()
		_, err := a.Authenticate(ctx)
		if !errors.Is(err, shared.ErrUserDeclined) {
			t.Fatalf("expected ErrUserDeclined, got %v", err)
		}
		if !errors.Is(err, shared.ErrInteractiveAuthAbandoned) {
			t.Error("expected declined to count as abandoned")
		}
		if f.prompter.confirmCalls != 1 {
			t.Errorf("expected one reauthorize prompt, got %d", f.prompter.confirmCalls)
		}
		if a.State() != StateFailed {
			t.Errorf("expected failed, got %s", a.State())
		}
	})

	t.Run("expired user token accepted runs interactive flow", func(t *testing.T) {
		f := newFixture(t)
		if err := f.store.SaveUserToken(&credentials.UserToken{AccessToken: "old", ExpiresAt: time.Now().Add(-time.Hour)}); err != nil {
			t.Fatal(err)
		}
		f.prompter.reauthorize = true
		f.browser = redirectingBrowser(1, nil)

		sess, err := f.authenticator().Authenticate(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sess.Mode != ModeUser {
			t.Errorf("expected user mode, got %s", sess.Mode)
		}

		saved, err := f.store.LoadUserToken()
		if err != nil || saved == nil {
			t.Fatalf("expected saved token, got %v, %v", saved, err)
		}
		if saved.AccessToken != "user-access" || saved.RefreshToken != "user-refresh" {
			t.Errorf("unexpected saved token %+v", saved)
		}
	})

	t.Run("no credential and setup declined", func(t *testing.T) {
		f := newFixture(t)
		f.prompter.choice = SetupDeclined

		a := f.authenticator()
		if _, err := a.Authenticate(ctx); !errors.Is(err, shared.ErrUserDeclined) {
			t.Fatalf("expected ErrUserDeclined, got %v", err)
		}
		if f.prompter.setupCalls != 1 {
			t.Errorf("expected one setup prompt, got %d", f.prompter.setupCalls)
		}
		if a.State() != StateFailed {
			t.Errorf("expected failed, got %s", a.State())
		}
	})

	t.Run("no credential and developer entry persists credential", func(t *testing.T) {
		f := newFixture(t)
		f.prompter.choice = SetupDeveloper
		f.prompter.dev = &credentials.DevCredential{ClientID: "entered-id", ClientSecret: "entered-secret"}

		sess, err := f.authenticator().Authenticate(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sess.Mode != ModeDeveloper {
			t.Errorf("expected developer mode, got %s", sess.Mode)
		}

		dev, err := f.store.LoadDevCredential()
		if err != nil || dev == nil || dev.ClientID != "entered-id" {
			t.Errorf("expected persisted developer credential, got %v, %v", dev, err)
		}
	})

	t.Run("developer entry cancelled", func(t *testing.T) {
		f := newFixture(t)
		f.prompter.choice = SetupDeveloper

		if _, err := f.authenticator().Authenticate(ctx); !errors.Is(err, shared.ErrUserDeclined) {
			t.Fatalf("expected ErrUserDeclined, got %v", err)
		}
	})

	t.Run("malformed credential files are treated as absent with a warning", func(t *testing.T) {
		f := newFixture(t)
		if err := os.WriteFile(f.store.DevCredentialPath(), []byte("garbage"), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(f.store.TokenPath(), []byte("{"), 0o600); err != nil {
			t.Fatal(err)
		}
		f.prompter.choice = SetupDeclined

		_, err := f.authenticator().Authenticate(ctx)
		if !errors.Is(err, shared.ErrUserDeclined) {
			t.Fatalf("expected setup prompt to be declined, got %v", err)
		}
		if len(f.prompter.warnings) != 2 {
			t.Errorf("expected two warnings, got %v", f.prompter.warnings)
		}
		if f.prompter.setupCalls != 1 {
			t.Error("expected the user to be sent back to setup")
		}
	})

	t.Run("probe failure stops before credentials", func(t *testing.T) {
		f := newFixture(t)
		f.prober = ProberFunc(func(context.Context) error { return errors.New("dial tcp: no route to host") })
		if err := f.store.SaveDevCredential(&credentials.DevCredential{ClientID: "id", ClientSecret: "secret"}); err != nil {
			t.Fatal(err)
		}

		_, err := f.authenticator().Authenticate(ctx)
		if !errors.Is(err, shared.ErrNetworkUnreachable) {
			t.Fatalf("expected ErrNetworkUnreachable, got %v", err)
		}
		if f.tokens.clientCredentials.Load() != 0 {
			t.Error("expected no token exchange after failed probe")
		}
	})

	t.Run("exchange rejected", func(t *testing.T) {
		f := newFixture(t)
		f.tokens.reject.Store(true)
		if err := f.store.SaveDevCredential(&credentials.DevCredential{ClientID: "id", ClientSecret: "bad"}); err != nil {
			t.Fatal(err)
		}

		a := f.authenticator()
		if _, err := a.Authenticate(ctx); !errors.Is(err, shared.ErrAuthExchangeFailed) {
			t.Fatalf("expected ErrAuthExchangeFailed, got %v", err)
		}
		if a.State() != StateFailed {
			t.Errorf("expected failed, got %s", a.State())
		}
	})

	t.Run("no prompter and no credential", func(t *testing.T) {
		f := newFixture(t)
		a := New(f.cfg, Deps{Store: f.store, Prober: f.prober, HTTPClient: f.tokens.Client()})
		if _, err := a.Authenticate(ctx); !errors.Is(err, shared.ErrCredentialMissing) {
			t.Fatalf("expected ErrCredentialMissing, got %v", err)
		}
	})
}

func TestInteractive(t *testing.T) {
	ctx := context.Background()

	t.Run("PKCE flow exchanges the code exactly once", func(t *testing.T) {
		f := newFixture(t)
		f.prompter.choice = SetupInteractive

		var seen url.Values
		f.browser = redirectingBrowser(2, &seen)

		sess, err := f.authenticator().Authenticate(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sess.Mode != ModeUser {
			t.Errorf("expected user mode, got %s", sess.Mode)
		}

		if seen.Get("code_challenge_method") != "S256" {
			t.Errorf("expected S256 challenge, got %q", seen.Get("code_challenge_method"))
		}
		if seen.Get("code_challenge") == "" {
			t.Error("expected a code challenge")
		}
		if seen.Get("client_id") != f.cfg.Spotify.ClientID {
			t.Errorf("expected client id %s, got %s", f.cfg.Spotify.ClientID, seen.Get("client_id"))
		}

		// give the duplicate callback time to arrive before counting
		time.Sleep(50 * time.Millisecond)
		if n := f.tokens.authCode.Load(); n != 1 {
			t.Errorf("expected exactly one code exchange, got %d", n)
		}
		if v, _ := f.tokens.lastVerifier.Load().(string); v == "" || v == seen.Get("code_challenge") {
			t.Errorf("expected the verifier, not the challenge, to be sent; got %q", v)
		}
	})

	t.Run("shows URL when browser cannot open", func(t *testing.T) {
		f := newFixture(t)
		f.cfg.Auth.Timeout = shared.Duration{Duration: 50 * time.Millisecond}
		f.browser = func(string) error { return errors.New("no display") }

		_, err := f.authenticator().Login(ctx)
		if !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		if len(f.prompter.shownURLs) != 1 {
			t.Errorf("expected authorization URL to be shown, got %v", f.prompter.shownURLs)
		}
	})

	t.Run("timeout releases the listener", func(t *testing.T) {
		f := newFixture(t)
		f.cfg.Auth.Timeout = shared.Duration{Duration: 50 * time.Millisecond}

		var redirect string
		f.browser = func(authURL string) error {
			u, _ := url.Parse(authURL)
			redirect = u.Query().Get("redirect_uri")
			return nil
		}

		a := f.authenticator()
		_, err := a.Login(ctx)
		if !errors.Is(err, shared.ErrTimeout) || !errors.Is(err, shared.ErrInteractiveAuthAbandoned) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		if a.State() != StateFailed {
			t.Errorf("expected failed, got %s", a.State())
		}

		if resp, err := http.Get(redirect + "?code=late&state=x"); err == nil {
			resp.Body.Close()
			t.Error("expected listener to be closed after timeout")
		}
	})

	t.Run("context cancellation abandons the flow", func(t *testing.T) {
		f := newFixture(t)
		cctx, cancel := context.WithCancel(ctx)
		f.browser = func(string) error {
			cancel()
			return nil
		}

		_, err := f.authenticator().Login(cctx)
		if !errors.Is(err, shared.ErrInteractiveAuthAbandoned) {
			t.Fatalf("expected ErrInteractiveAuthAbandoned, got %v", err)
		}
	})

	t.Run("callback with wrong state fails the exchange", func(t *testing.T) {
		f := newFixture(t)
		f.browser = func(authURL string) error {
			u, _ := url.Parse(authURL)
			go func() {
				resp, err := http.Get(u.Query().Get("redirect_uri") + "?code=c&state=forged")
				if err == nil {
					resp.Body.Close()
				}
			}()
			return nil
		}

		_, err := f.authenticator().Login(ctx)
		if !errors.Is(err, shared.ErrAuthExchangeFailed) {
			t.Fatalf("expected ErrAuthExchangeFailed, got %v", err)
		}
		if f.tokens.authCode.Load() != 0 {
			t.Error("expected no exchange for a forged state")
		}
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("developer mode repeats client credentials", func(t *testing.T) {
		f := newFixture(t)
		if err := f.store.SaveDevCredential(&credentials.DevCredential{ClientID: "id", ClientSecret: "secret"}); err != nil {
			t.Fatal(err)
		}
		a := f.authenticator()
		first, err := a.Authenticate(ctx)
		if err != nil {
			t.Fatal(err)
		}

		second, err := a.Refresh(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first == second || second.Mode != ModeDeveloper {
			t.Error("expected a new developer session")
		}
		if f.tokens.clientCredentials.Load() != 2 {
			t.Errorf("expected two exchanges, got %d", f.tokens.clientCredentials.Load())
		}
	})

	t.Run("user mode redeems refresh token and persists it", func(t *testing.T) {
		f := newFixture(t)
		if err := f.store.SaveUserToken(&credentials.UserToken{
			AccessToken: "valid", RefreshToken: "keep-me", ExpiresAt: time.Now().Add(time.Hour),
		}); err != nil {
			t.Fatal(err)
		}
		a := f.authenticator()
		if _, err := a.Authenticate(ctx); err != nil {
			t.Fatal(err)
		}

		sess, err := a.Refresh(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sess.Mode != ModeUser {
			t.Errorf("expected user mode, got %s", sess.Mode)
		}
		if f.tokens.refresh.Load() != 1 {
			t.Errorf("expected one refresh, got %d", f.tokens.refresh.Load())
		}

		saved, _ := f.store.LoadUserToken()
		if saved.AccessToken != "refreshed-access" || saved.RefreshToken != "keep-me" {
			t.Errorf("unexpected persisted token %+v", saved)
		}
	})

	t.Run("rejected refresh fails", func(t *testing.T) {
		f := newFixture(t)
		if err := f.store.SaveUserToken(&credentials.UserToken{
			AccessToken: "valid", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour),
		}); err != nil {
			t.Fatal(err)
		}
		a := f.authenticator()
		if _, err := a.Authenticate(ctx); err != nil {
			t.Fatal(err)
		}

		f.tokens.reject.Store(true)
		if _, err := a.Refresh(ctx); !errors.Is(err, shared.ErrAuthExchangeFailed) {
			t.Fatalf("expected ErrAuthExchangeFailed, got %v", err)
		}
		if a.State() != StateFailed {
			t.Errorf("expected failed, got %s", a.State())
		}
	})

	t.Run("before any session", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.authenticator().Refresh(ctx); !errors.Is(err, shared.ErrSessionUnavailable) {
			t.Fatalf("expected ErrSessionUnavailable, got %v", err)
		}
	})

	t.Run("transport refresh is written back to the token file", func(t *testing.T) {
		f := newFixture(t)
		a := f.authenticator()

		expired := &credentials.UserToken{AccessToken: "stale", RefreshToken: "r", TokenType: "Bearer", ExpiresAt: time.Now().Add(-time.Minute)}
		sess := a.userSession(expired)

		api := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		defer api.Close()

		resp, err := sess.HTTPClient.Get(api.URL)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		saved, err := f.store.LoadUserToken()
		if err != nil || saved == nil {
			t.Fatalf("expected refreshed token on disk, got %v, %v", saved, err)
		}
		if saved.AccessToken != "refreshed-access" || saved.RefreshToken != "r" {
			t.Errorf("unexpected persisted token %+v", saved)
		}
	})
}

func TestHandle(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var h Handle
		if _, err := h.Current(); !errors.Is(err, shared.ErrSessionUnavailable) {
			t.Errorf("expected ErrSessionUnavailable, got %v", err)
		}
		if h.Ready() {
			t.Error("expected not ready")
		}
	})

	t.Run("rejects incomplete sessions", func(t *testing.T) {
		var h Handle
		if err := h.Publish(nil); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if err := h.Publish(&Session{Mode: ModeUser}); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("concurrent readers see a complete session across replacement", func(t *testing.T) {
		var h Handle
		if err := h.Publish(&Session{Mode: ModeUser, HTTPClient: &http.Client{}}); err != nil {
			t.Fatal(err)
		}

		var wg sync.WaitGroup
		var bad atomic.Int32
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 1000 {
					s, err := h.Current()
					if err != nil || s.HTTPClient == nil {
						bad.Add(1)
					}
				}
			}()
		}
		for i := range 200 {
			mode := ModeUser
			if i%2 == 0 {
				mode = ModeDeveloper
			}
			if err := h.Publish(&Session{Mode: mode, HTTPClient: &http.Client{}}); err != nil {
				t.Fatal(err)
			}
		}
		wg.Wait()

		if bad.Load() != 0 {
			t.Errorf("observed %d incomplete sessions", bad.Load())
		}
	})
}

func TestDialProber(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	if err := (DialProber{Address: u.Host, Timeout: time.Second}).Probe(context.Background()); err != nil {
		t.Errorf("expected probe to succeed, got %v", err)
	}

	srv.Close()
	err := (DialProber{Address: u.Host, Timeout: 200 * time.Millisecond}).Probe(context.Background())
	if !errors.Is(err, shared.ErrNetworkUnreachable) {
		t.Errorf("expected ErrNetworkUnreachable, got %v", err)
	}
}

func TestStateNames(t *testing.T) {
	if StateAwaitingUserChoice.String() != "awaiting_user_choice" || StateFailed.String() != "failed" {
		t.Error("unexpected state names")
	}
}
