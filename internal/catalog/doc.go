// Package catalog issues track and album searches against the Spotify Web API.
//
// There is no pagination and no result merging: only the first page is returned, in the
// order the service ranked it. Requests are paced by a token-bucket limiter.
package catalog
