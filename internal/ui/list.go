package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/copyurl/internal/auth"
)

var _ list.Item = setupItem{}

// setupItem wraps [auth.SetupChoice] to implement [list.Item].
type setupItem struct {
	choice      auth.SetupChoice
	title       string
	description string
}

func (i setupItem) FilterValue() string { return i.title }
func (i setupItem) Title() string       { return i.title }
func (i setupItem) Description() string { return i.description }

func setupItems() []list.Item {
	return []list.Item{
		setupItem{
			choice:      auth.SetupInteractive,
			title:       "Sign in with Spotify",
			description: "Authorize in the browser; the token is saved for next time",
		},
		setupItem{
			choice:      auth.SetupDeveloper,
			title:       "Use a developer app",
			description: "Enter the client id and secret of your own Spotify app",
		},
		setupItem{
			choice:      auth.SetupDeclined,
			title:       "Not now",
			description: "Searches stay unavailable until the plugin restarts",
		},
	}
}
