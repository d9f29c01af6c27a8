package plugin

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/copyurl/internal/auth"
	"github.com/desertthunder/copyurl/internal/catalog"
	"github.com/desertthunder/copyurl/internal/credentials"
	"github.com/desertthunder/copyurl/internal/fuzzy"
	"github.com/desertthunder/copyurl/internal/models"
	"github.com/desertthunder/copyurl/internal/shared"
)

// Deps are the environment-specific collaborators used by [Build].
type Deps struct {
	Prompter    auth.Prompter
	Prober      auth.Prober
	OpenBrowser func(url string) error
	HTTPClient  *http.Client
	Notifier    Notifier
	Clipboard   Clipboard
	Logger      *log.Logger
}

// Plugin implements the entry points the host calls.
//
// Startup and searches run on their own goroutines so the host is never blocked;
// [Plugin.Wait] returns once all of them have finished.
type Plugin struct {
	ctx    context.Context
	host   Host
	orch   *Orchestrator
	auth   *auth.Authenticator
	logger *log.Logger

	wg       sync.WaitGroup
	menuOnce sync.Once
}

// Build wires a plugin for host from a copy of cfg. Credentials are kept in the host's
// storage path when it provides one; cfg itself is left untouched.
func Build(ctx context.Context, cfg *shared.Config, host Host, deps Deps) *Plugin {
	if deps.Logger == nil {
		deps.Logger = shared.NopLogger()
	}
	own := *cfg
	cfg = &own
	if dir := host.StoragePath(); dir != "" {
		cfg.Storage.Dir = dir
	}

	store := credentials.NewStoreFromConfig(cfg.Storage, deps.Logger)
	authenticator := auth.New(cfg, auth.Deps{
		Store:       store,
		Prompter:    deps.Prompter,
		Prober:      deps.Prober,
		OpenBrowser: deps.OpenBrowser,
		HTTPClient:  deps.HTTPClient,
		Logger:      deps.Logger,
	})

	orch := NewOrchestrator(OrchestratorOpts{
		Auth:      authenticator,
		Catalog:   catalog.New(cfg.Search, cfg.Spotify.APIURL, deps.Logger),
		Matcher:   fuzzy.NewMatcher(deps.Logger),
		Clipboard: deps.Clipboard,
		Notifier:  deps.Notifier,
		Logger:    deps.Logger,
	})

	p := New(ctx, host, orch, deps.Logger)
	p.auth = authenticator
	return p
}

// New creates a plugin around an existing orchestrator. ctx bounds every operation the
// plugin starts.
func New(ctx context.Context, host Host, orch *Orchestrator, logger *log.Logger) *Plugin {
	if logger == nil {
		logger = shared.NopLogger()
	}
	return &Plugin{
		ctx:    ctx,
		host:   host,
		orch:   orch,
		logger: shared.ComponentLogger(logger, "plugin"),
	}
}

// Initialise returns the metadata declared to the host.
func (p *Plugin) Initialise() Info {
	info := About()
	p.logger.Debug("initialised", "name", info.Name, "version", info.Version())
	return info
}

// Configure has no settings panel. It reports false so the host shows none.
func (p *Plugin) Configure() bool {
	return false
}

// Orchestrator exposes the search pipeline.
func (p *Plugin) Orchestrator() *Orchestrator {
	return p.orch
}

// Authenticator returns the authenticator built by [Build], or nil for [New].
func (p *Plugin) Authenticator() *auth.Authenticator {
	return p.auth
}

// ReceiveNotification handles a host event. Only startup is acted upon: it builds the
// session and registers the menu item once that succeeds.
func (p *Plugin) ReceiveNotification(sourceFile string, kind NotificationType) {
	if kind != NotifyPluginStartup {
		return
	}
	p.goSafe("startup", func() {
		if err := p.orch.Startup(p.ctx); err != nil {
			p.logger.Warn("startup failed", "error", err)
			p.notify(startupNotice(err))
			return
		}
		p.menuOnce.Do(func() {
			p.host.RegisterMenu(MenuPath, p.MenuClicked)
			p.logger.Debug("menu registered", "path", MenuPath)
		})
	})
}

// MenuClicked searches for the current selection: one file is a track search, several
// files are an album search using the first file's tags. No selection does nothing.
func (p *Plugin) MenuClicked() {
	files := p.host.SelectedFiles()
	if len(files) == 0 {
		return
	}

	kind := models.KindTrack
	if len(files) > 1 {
		kind = models.KindAlbum
	}

	// Tag reads happen off the host thread so a failing reader ends in a notice.
	p.goSafe("search", func() {
		p.orch.CopyURL(p.ctx, kind, p.localTrackInfo(files[0]))
	})
}

// Wait blocks until every started operation has returned.
func (p *Plugin) Wait() {
	p.wg.Wait()
}

func (p *Plugin) localTrackInfo(path string) models.LocalTrackInfo {
	return models.LocalTrackInfo{
		Title:      p.host.FileTag(path, TagTitle),
		AlbumName:  p.host.FileTag(path, TagAlbum),
		ArtistName: p.host.FileTag(path, TagAlbumArtist),
	}
}

func (p *Plugin) notify(n models.Notice) {
	if p.orch.notifier != nil {
		p.orch.notifier.Notify(n)
	}
}

// goSafe runs fn in the background. A panic is logged and reported instead of reaching the host.
func (p *Plugin) goSafe(name string, fn func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("recovered from panic", "operation", name, "panic", r)
				p.notify(models.Notice{Message: fmt.Sprintf("Copy Spotify URL hit an internal error during %s.", name), Cue: models.CueHand})
			}
		}()
		fn()
	}()
}
