package plugin

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/copyurl/internal/auth"
	"github.com/desertthunder/copyurl/internal/fuzzy"
	"github.com/desertthunder/copyurl/internal/models"
	"github.com/desertthunder/copyurl/internal/shared"
	"golang.org/x/sync/singleflight"
)

// NotFoundMessage is shown when no candidate passes the matcher.
const NotFoundMessage = "That item cannot be found on Spotify."

// Authenticator builds and rebuilds sessions.
type Authenticator interface {
	Authenticate(ctx context.Context) (*auth.Session, error)
	Refresh(ctx context.Context) (*auth.Session, error)
}

// Searcher runs one catalog search.
type Searcher interface {
	Search(ctx context.Context, sess *auth.Session, kind models.Kind, query string) ([]models.Candidate, error)
}

// Matcher picks a candidate for local tags.
type Matcher interface {
	Match(candidates []models.Candidate, local models.LocalTrackInfo) (models.Candidate, bool)
}

// Notifier shows a notice to the user.
type Notifier interface {
	Notify(notice models.Notice)
}

// Clipboard receives resolved URLs.
type Clipboard interface {
	Copy(text string) error
}

// Orchestrator owns the session handle and sequences startup and search requests.
type Orchestrator struct {
	auth      Authenticator
	catalog   Searcher
	matcher   Matcher
	clipboard Clipboard
	notifier  Notifier
	handle    *auth.Handle
	logger    *log.Logger

	flight singleflight.Group
}

// OrchestratorOpts are the collaborators of an [Orchestrator]. Handle and Logger may be nil.
type OrchestratorOpts struct {
	Auth      Authenticator
	Catalog   Searcher
	Matcher   Matcher
	Clipboard Clipboard
	Notifier  Notifier
	Handle    *auth.Handle
	Logger    *log.Logger
}

func NewOrchestrator(opts OrchestratorOpts) *Orchestrator {
	if opts.Handle == nil {
		opts.Handle = &auth.Handle{}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NopLogger()
	}
	return &Orchestrator{
		auth:      opts.Auth,
		catalog:   opts.Catalog,
		matcher:   opts.Matcher,
		clipboard: opts.Clipboard,
		notifier:  opts.Notifier,
		handle:    opts.Handle,
		logger:    shared.ComponentLogger(opts.Logger, "orchestrator"),
	}
}

// Handle returns the session handle shared by every search.
func (o *Orchestrator) Handle() *auth.Handle {
	return o.handle
}

// Startup builds and publishes the session. Concurrent calls share one attempt and a
// published session is never rebuilt. After a failure the next call tries again.
func (o *Orchestrator) Startup(ctx context.Context) error {
	if o.handle.Ready() {
		return nil
	}

	_, err, joined := o.flight.Do("startup", func() (any, error) {
		if o.handle.Ready() {
			return nil, nil
		}
		sess, err := o.auth.Authenticate(ctx)
		if err != nil {
			return nil, err
		}
		return nil, o.handle.Publish(sess)
	})
	if joined {
		o.logger.Debug("joined in-flight startup")
	}
	return err
}

// Resolve searches the catalog for local and returns the first acceptable match.
//
// An authorization failure triggers one session refresh and one more search. A second
// failure is returned as is.
func (o *Orchestrator) Resolve(ctx context.Context, kind models.Kind, local models.LocalTrackInfo) (models.ResolvedItem, error) {
	query := fuzzy.SearchQuery(local.Item(kind), local.ArtistName)
	if query == "" {
		return models.ResolvedItem{}, fmt.Errorf("%w: file has no usable %s or artist tag", shared.ErrNoMatch, kind)
	}

	candidates, err := o.search(ctx, kind, query)
	if err != nil {
		return models.ResolvedItem{}, err
	}

	match, ok := o.matcher.Match(candidates, local)
	if !ok {
		o.logger.Info("no match", "kind", kind, "query", query, "candidates", len(candidates))
		return models.ResolvedItem{}, shared.ErrNoMatch
	}

	item, err := models.NewResolvedItem(match)
	if err != nil {
		return models.ResolvedItem{}, fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err)
	}
	return item, nil
}

func (o *Orchestrator) search(ctx context.Context, kind models.Kind, query string) ([]models.Candidate, error) {
	sess, err := o.handle.Current()
	if err != nil {
		return nil, err
	}

	candidates, err := o.catalog.Search(ctx, sess, kind, query)
	if !errors.Is(err, shared.ErrAuthExpired) {
		return candidates, err
	}

	o.logger.Info("authorization rejected, refreshing session", "mode", sess.Mode)
	sess, err = o.refresh(ctx, sess)
	if err != nil {
		return nil, err
	}
	return o.catalog.Search(ctx, sess, kind, query)
}

// refresh replaces stale with a new session. When another caller already replaced it,
// that session is reused.
func (o *Orchestrator) refresh(ctx context.Context, stale *auth.Session) (*auth.Session, error) {
	v, err, _ := o.flight.Do("refresh", func() (any, error) {
		if cur, err := o.handle.Current(); err == nil && cur != stale {
			return cur, nil
		}
		sess, err := o.auth.Refresh(ctx)
		if err != nil {
			return nil, err
		}
		if err := o.handle.Publish(sess); err != nil {
			return nil, err
		}
		return sess, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*auth.Session), nil
}

// CopyURL resolves local, writes the URL to the clipboard and reports the outcome.
// Every failure ends up in the returned notice; none is returned as an error.
func (o *Orchestrator) CopyURL(ctx context.Context, kind models.Kind, local models.LocalTrackInfo) models.Notice {
	notice := o.copyURL(ctx, kind, local)
	if o.notifier != nil {
		o.notifier.Notify(notice)
	}
	return notice
}

func (o *Orchestrator) copyURL(ctx context.Context, kind models.Kind, local models.LocalTrackInfo) models.Notice {
	item, err := o.Resolve(ctx, kind, local)
	if err != nil {
		if !errors.Is(err, shared.ErrNoMatch) {
			o.logger.Error("search failed", "kind", kind, "error", err)
		}
		return failureNotice(err)
	}

	if err := o.clipboard.Copy(item.URL); err != nil {
		o.logger.Error("clipboard write failed", "error", err)
		return models.Notice{Message: fmt.Sprintf("Could not copy the Spotify link: %v", err), Cue: models.CueHand}
	}

	o.logger.Info("copied", "kind", kind, "name", item.Candidate.Name, "url", item.URL)
	return models.Notice{Message: fmt.Sprintf("Copied %s", item.URL), Cue: models.CueExclamation}
}

func failureNotice(err error) models.Notice {
	var msg string
	switch {
	case errors.Is(err, shared.ErrNoMatch):
		msg = NotFoundMessage
	case errors.Is(err, shared.ErrSessionUnavailable):
		msg = "Copy Spotify URL is not connected to Spotify. Restart the plugin to sign in."
	case errors.Is(err, shared.ErrAuthExpired),
		errors.Is(err, shared.ErrAuthExchangeFailed),
		errors.Is(err, shared.ErrCredentialMissing):
		msg = "Spotify did not accept the saved sign-in. Restart the plugin to sign in again."
	case errors.Is(err, shared.ErrNetworkUnreachable), errors.Is(err, shared.ErrCatalogRequest):
		msg = "Could not reach Spotify. Check your connection and try again."
	case errors.Is(err, shared.ErrMalformedResponse):
		msg = "Spotify sent a response that could not be read."
	default:
		msg = fmt.Sprintf("Copy Spotify URL failed: %v", err)
	}
	return models.Notice{Message: msg, Cue: models.CueHand}
}

// startupNotice describes a failed startup. Declining setup is not an error and plays no sound.
func startupNotice(err error) models.Notice {
	switch {
	case errors.Is(err, shared.ErrUserDeclined):
		return models.Notice{Message: "Spotify setup skipped. Copy Spotify URL stays disabled until the next start."}
	case errors.Is(err, shared.ErrTimeout):
		return models.Notice{Message: "Spotify sign-in timed out. Restart the plugin to try again.", Cue: models.CueHand}
	case errors.Is(err, shared.ErrInteractiveAuthAbandoned):
		return models.Notice{Message: "Spotify sign-in was not completed.", Cue: models.CueHand}
	case errors.Is(err, shared.ErrNetworkUnreachable):
		return models.Notice{Message: "Could not reach Spotify. Copy Spotify URL stays disabled until the next start.", Cue: models.CueHand}
	case errors.Is(err, shared.ErrAuthExchangeFailed):
		return models.Notice{Message: "Spotify rejected the credential. Check it and restart the plugin.", Cue: models.CueHand}
	default:
		return models.Notice{Message: fmt.Sprintf("Copy Spotify URL could not start: %v", err), Cue: models.CueHand}
	}
}
