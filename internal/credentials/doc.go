// Package credentials persists the two flat JSON credential files:
//
//	spotify_token.json      user OAuth token (access, refresh, expiry)
//	spotify_dev_token.json  {"client_id": "...", "client_secret": "..."}
//
// A missing file loads as nil with no error. A file that exists but cannot be decoded
// loads as an error wrapping shared.ErrCredentialMalformed, so callers can tell corrupt
// from absent. Writes go through a temp file and rename.
//
// Nothing is encrypted.
package credentials
