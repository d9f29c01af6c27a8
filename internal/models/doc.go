// Package models defines the plain values that flow through a single copy-URL request.
//
//   - [LocalTrackInfo] : title, album and artist read from a library file's tags
//   - [Candidate] : one track or album returned by the catalog search, never mutated
//   - [ResolvedItem] : the accepted candidate plus its public open.spotify.com URL
//
// [SpotifyURLFromURI] is the only derivation rule: "spotify:track:ID" becomes
// "https://open.spotify.com/track/ID".
package models
