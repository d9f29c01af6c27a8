package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/desertthunder/copyurl/internal/models"
	"github.com/desertthunder/copyurl/internal/plugin"
	"github.com/desertthunder/copyurl/internal/shared"
	"github.com/desertthunder/copyurl/internal/tags"
	"github.com/urfave/cli/v3"
)

// Copy delivers the startup notification, then clicks the menu item with the given
// files selected.
func (r *Runner) Copy(ctx context.Context, cmd *cli.Command) error {
	files, err := requireArgs(cmd, "file")
	if err != nil {
		return err
	}
	for _, f := range files {
		if !tags.Supported(f) {
			return fmt.Errorf("%w: %s", shared.ErrUnsupportedFile, f)
		}
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("failed to open %s: %w", f, err)
		}
	}

	host := newFileHost(r.config.Storage.Dir, files, nil, r.logger)
	rec := &noticeRecorder{next: r.notifier}
	p, err := r.startPlugin(ctx, host, rec)
	if err != nil {
		return err
	}

	host.menu(plugin.MenuPath)()
	p.Wait()
	return rec.result()
}

// SearchTrack resolves a track from --title and --artist.
func (r *Runner) SearchTrack(ctx context.Context, cmd *cli.Command) error {
	return r.search(ctx, models.KindTrack, models.LocalTrackInfo{
		Title:      cmd.String("title"),
		ArtistName: cmd.String("artist"),
	})
}

// SearchAlbum resolves an album from --album and --artist.
func (r *Runner) SearchAlbum(ctx context.Context, cmd *cli.Command) error {
	return r.search(ctx, models.KindAlbum, models.LocalTrackInfo{
		AlbumName:  cmd.String("album"),
		ArtistName: cmd.String("artist"),
	})
}

func (r *Runner) search(ctx context.Context, kind models.Kind, local models.LocalTrackInfo) error {
	host := newFileHost(r.config.Storage.Dir, nil, nil, r.logger)
	rec := &noticeRecorder{next: r.notifier}
	p, err := r.startPlugin(ctx, host, rec)
	if err != nil {
		return err
	}

	p.Orchestrator().CopyURL(ctx, kind, local)
	return rec.result()
}

// startPlugin builds the plugin and delivers the startup notification. The startup
// failure, if any, has already been shown to the user when errReported is returned.
func (r *Runner) startPlugin(ctx context.Context, host *fileHost, n plugin.Notifier) (*plugin.Plugin, error) {
	p := plugin.Build(ctx, r.config, host, r.pluginDeps(n))
	info := p.Initialise()
	r.logger.Debug("plugin loaded", "name", info.Name, "version", info.Version(), "storage", host.StoragePath())

	p.ReceiveNotification("", plugin.NotifyPluginStartup)
	p.Wait()

	if host.menu(plugin.MenuPath) == nil {
		return nil, errReported
	}
	return p, nil
}

// noticeRecorder forwards notices and remembers whether the last one was a failure.
type noticeRecorder struct {
	next plugin.Notifier

	mu   sync.Mutex
	last models.Notice
}

func (n *noticeRecorder) Notify(notice models.Notice) {
	n.mu.Lock()
	n.last = notice
	n.mu.Unlock()
	n.next.Notify(notice)
}

func (n *noticeRecorder) result() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.last.Cue == models.CueHand {
		return errReported
	}
	return nil
}
