package main

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/copyurl/internal/plugin"
	"github.com/desertthunder/copyurl/internal/tags"
)

var _ plugin.Host = (*fileHost)(nil)

// tagReader loads the tags of one file.
type tagReader func(path string) (tags.Tags, error)

// fileHost stands in for the music player: the selection is fixed when it is created
// and tags come from the files themselves.
type fileHost struct {
	storage  string
	selected []string
	read     tagReader
	logger   *log.Logger

	mu    sync.Mutex
	cache map[string]tags.Tags
	menus map[string]func()
}

func newFileHost(storage string, selected []string, read tagReader, logger *log.Logger) *fileHost {
	if read == nil {
		read = tags.Read
	}
	return &fileHost{
		storage:  storage,
		selected: selected,
		read:     read,
		logger:   logger,
		cache:    map[string]tags.Tags{},
		menus:    map[string]func(){},
	}
}

func (h *fileHost) StoragePath() string { return h.storage }

func (h *fileHost) SelectedFiles() []string { return h.selected }

// FileTag returns "" for unreadable files, the same as a player does for untagged ones.
func (h *fileHost) FileTag(path string, field plugin.TagField) string {
	t, err := h.tags(path)
	if err != nil {
		h.logger.Warn("failed to read tags", "path", path, "error", err)
		return ""
	}

	switch field {
	case plugin.TagTitle:
		return t.Title
	case plugin.TagAlbum:
		return t.Album
	case plugin.TagAlbumArtist:
		return t.PrimaryArtist()
	default:
		return ""
	}
}

func (h *fileHost) tags(path string) (tags.Tags, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if t, ok := h.cache[path]; ok {
		return t, nil
	}
	t, err := h.read(path)
	if err != nil {
		return tags.Tags{}, err
	}
	h.cache[path] = t
	return t, nil
}

func (h *fileHost) RegisterMenu(path string, onClick func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.menus[path] = onClick
}

// menu returns the callback registered at path, or nil.
func (h *fileHost) menu(path string) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.menus[path]
}
