// Package auth acquires and refreshes Spotify credentials.
//
// # State machine
//
//	NoCredential -> AwaitingUserChoice -> InteractiveAuthInProgress | DevCredentialLoaded
//	             -> Authenticated -> Refreshing -> Authenticated | Failed
//
// A stored developer credential always wins and is exchanged with the client-credentials
// grant, without prompting. Otherwise a valid user token is used directly; an expired one
// prompts for reauthorization, and with nothing stored the user picks between signing in
// and entering a developer credential. Declining any prompt ends in Failed.
//
// # Interactive flow
//
// PKCE (S256) authorization code flow against a loopback listener, 127.0.0.1:5000/callback
// by default. The wait is bounded by auth.timeout and by the caller's context, and the
// listener is shut down on every exit path. The callback only delivers the code; the
// exchange runs once, in the waiting goroutine.
//
// # Sessions
//
// A [Session] wraps an oauth2 HTTP client. Tokens refreshed by the transport are written
// back to the token file. [Handle] publishes sessions atomically.
package auth
