package plugin

import "fmt"

// MenuPath is the context menu entry registered after a successful startup.
const MenuPath = "context.Main/Copy Spotify URL"

// TagField selects a metadata field of a library file.
type TagField int

const (
	TagTitle TagField = iota
	TagAlbum
	TagAlbumArtist
)

func (f TagField) String() string {
	switch f {
	case TagTitle:
		return "title"
	case TagAlbum:
		return "album"
	case TagAlbumArtist:
		return "album_artist"
	default:
		return fmt.Sprintf("TagField(%d)", int(f))
	}
}

// NotificationType is an event delivered by the host.
type NotificationType int

const (
	NotifyPluginStartup NotificationType = iota
	NotifyPlayerEvent
	NotifyTagsChanged
)

func (n NotificationType) String() string {
	switch n {
	case NotifyPluginStartup:
		return "plugin_startup"
	case NotifyPlayerEvent:
		return "player_event"
	case NotifyTagsChanged:
		return "tags_changed"
	default:
		return fmt.Sprintf("NotificationType(%d)", int(n))
	}
}

// Host is the part of the music player the plugin calls into.
type Host interface {
	// StoragePath is the directory the plugin may persist files in.
	StoragePath() string
	// FileTag returns one tag of the library file at path, or "" when unset.
	FileTag(path string, field TagField) string
	// SelectedFiles lists the files currently selected in the library, in display order.
	SelectedFiles() []string
	// RegisterMenu adds a menu item at path that calls onClick when chosen.
	RegisterMenu(path string, onClick func())
}

// Info is the metadata the plugin declares to the host.
type Info struct {
	Name                     string
	Description              string
	Author                   string
	Type                     string
	VersionMajor             int
	VersionMinor             int
	Revision                 int
	ReceiveNotifications     []NotificationType
	ConfigurationPanelHeight int
}

// Version formats the declared version as major.minor.revision.
func (i Info) Version() string {
	return fmt.Sprintf("%d.%d.%d", i.VersionMajor, i.VersionMinor, i.Revision)
}

// About returns the plugin's declared metadata.
func About() Info {
	return Info{
		Name:                     "Copy Spotify URL",
		Description:              "Allows you to copy the Spotify link for (almost) any song or album in your library",
		Author:                   "trev",
		Type:                     "general",
		VersionMajor:             1,
		VersionMinor:             0,
		Revision:                 1,
		ReceiveNotifications:     []NotificationType{NotifyPlayerEvent, NotifyTagsChanged},
		ConfigurationPanelHeight: 0,
	}
}
