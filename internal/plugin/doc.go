// Package plugin is the host-facing side of Copy Spotify URL.
//
// The host delivers a startup notification, after which [Orchestrator.Startup] builds the
// single authenticated session and the "Copy Spotify URL" context menu item is registered.
// Clicking it reads the selection's tags, searches the catalog, runs the fuzzy matcher and
// copies the public URL of the first acceptable candidate to the clipboard.
//
// Failures never propagate to the host: each search ends in exactly one [models.Notice].
package plugin
