package ui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/copyurl/internal/models"
)

var (
	spotifyGreen = lipgloss.AdaptiveColor{Light: "#148A3F", Dark: "#1DB954"}
	alertRed     = lipgloss.AdaptiveColor{Light: "#B00020", Dark: "#FF5F5F"}
	cautionAmber = lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#FFB347"}
	dimGrey      = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#626262"}
)

var styles = newPalette()

// palette holds the styles for dialogs and notices.
type palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	plain lipgloss.Style
	help  lipgloss.Style
	link  lipgloss.Style
}

func newPalette() *palette {
	base := lipgloss.NewStyle()
	return &palette{
		title: base.Foreground(spotifyGreen).Bold(true).MarginBottom(1),
		ok:    base.Foreground(spotifyGreen).Bold(true),
		err:   base.Foreground(alertRed).Bold(true),
		warn:  base.Foreground(cautionAmber),
		plain: base,
		help:  base.Foreground(dimGrey).Italic(true),
		link:  base.Foreground(spotifyGreen).Underline(true),
	}
}

// notice picks the style for a notice by its cue.
func (p *palette) notice(c models.Cue) lipgloss.Style {
	switch c {
	case models.CueExclamation:
		return p.ok
	case models.CueHand:
		return p.err
	default:
		return p.plain
	}
}

// newHelp returns a help view drawn in the dim palette colour.
func newHelp() help.Model {
	h := help.New()
	h.Styles.ShortDesc = styles.help
	h.Styles.ShortSeparator = styles.help
	return h
}
