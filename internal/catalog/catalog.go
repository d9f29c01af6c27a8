package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/copyurl/internal/auth"
	"github.com/desertthunder/copyurl/internal/models"
	"github.com/desertthunder/copyurl/internal/shared"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const defaultAPIURL = "https://api.spotify.com/v1/"

// maxLimit is the largest page size the search endpoint accepts; larger values get a 400.
const maxLimit = 50

// Client searches the Spotify catalog. Each call is exactly one request for the first
// page of results.
type Client struct {
	baseURL string
	limit   int
	timeout time.Duration
	limiter *rate.Limiter
	logger  *log.Logger
}

// New creates a catalog client. apiURL defaults to the public Web API.
func New(cfg shared.SearchConfig, apiURL string, logger *log.Logger) *Client {
	if logger == nil {
		logger = shared.NopLogger()
	}
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	// A non-positive page size leaves the service default in place.
	pageSize := max(cfg.Limit, 0)
	if pageSize > maxLimit {
		logger.Warn("search limit above the service maximum, clamping", "limit", cfg.Limit, "max", maxLimit)
		pageSize = maxLimit
	}

	return &Client{
		baseURL: apiURL,
		limit:   pageSize,
		timeout: cfg.Timeout.Duration,
		limiter: rate.NewLimiter(limit, 1),
		logger:  shared.ComponentLogger(logger, "catalog"),
	}
}

// Search queries kind with the free-text query using sess and returns candidates in the
// order the service ranked them.
//
// Failures wrap [shared.ErrAuthExpired] (401 or a failed token refresh),
// [shared.ErrMalformedResponse] or [shared.ErrCatalogRequest].
func (c *Client) Search(ctx context.Context, sess *auth.Session, kind models.Kind, query string) ([]models.Candidate, error) {
	if sess == nil || sess.HTTPClient == nil {
		return nil, shared.ErrSessionUnavailable
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrInvalidArgument)
	}

	var searchType spotify.SearchType
	switch kind {
	case models.KindTrack:
		searchType = spotify.SearchTypeTrack
	case models.KindAlbum:
		searchType = spotify.SearchTypeAlbum
	default:
		return nil, fmt.Errorf("%w: unknown search kind %s", shared.ErrInvalidArgument, kind)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCatalogRequest, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var opts []spotify.RequestOption
	if c.limit > 0 {
		opts = append(opts, spotify.Limit(c.limit))
	}

	client := spotify.New(sess.HTTPClient, spotify.WithBaseURL(c.baseURL))
	start := time.Now()
	res, err := client.Search(ctx, query, searchType, opts...)
	if err != nil {
		c.logger.Debug("search failed", "kind", kind, "error", err)
		return nil, classify(err)
	}

	candidates, err := toCandidates(kind, res)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("search complete", "kind", kind, "query", query, "results", len(candidates), "duration", time.Since(start))
	return candidates, nil
}

func toCandidates(kind models.Kind, res *spotify.SearchResult) ([]models.Candidate, error) {
	if res == nil {
		return nil, fmt.Errorf("%w: empty body", shared.ErrMalformedResponse)
	}

	switch kind {
	case models.KindTrack:
		if res.Tracks == nil {
			return nil, fmt.Errorf("%w: missing tracks page", shared.ErrMalformedResponse)
		}
		out := make([]models.Candidate, 0, len(res.Tracks.Tracks))
		for _, t := range res.Tracks.Tracks {
			out = append(out, models.Candidate{
				Kind:        models.KindTrack,
				Name:        t.Name,
				ArtistNames: artistNames(t.Artists),
				URI:         string(t.URI),
			})
		}
		return out, nil

	default:
		if res.Albums == nil {
			return nil, fmt.Errorf("%w: missing albums page", shared.ErrMalformedResponse)
		}
		out := make([]models.Candidate, 0, len(res.Albums.Albums))
		for _, a := range res.Albums.Albums {
			out = append(out, models.Candidate{
				Kind:        models.KindAlbum,
				Name:        a.Name,
				ArtistNames: artistNames(a.Artists),
				URI:         string(a.URI),
			})
		}
		return out, nil
	}
}

func artistNames(artists []spotify.SimpleArtist) []string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return names
}

// classify maps client and transport errors onto the catalog error taxonomy.
func classify(err error) error {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusUnauthorized {
			return fmt.Errorf("%w: %s", shared.ErrAuthExpired, apiErr.Message)
		}
		return fmt.Errorf("%w: status %d: %s", shared.ErrCatalogRequest, apiErr.Status, apiErr.Message)
	}

	// The session transport failed to refresh its token before sending the request.
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) || errors.Is(err, shared.ErrAuthExchangeFailed) {
		return fmt.Errorf("%w: %v", shared.ErrAuthExpired, err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err)
	}

	return fmt.Errorf("%w: %v", shared.ErrCatalogRequest, err)
}
