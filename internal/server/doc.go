// Package server runs the short-lived loopback listener used by the interactive
// authorization flow.
//
// # Router Infrastructure
//
// [LoopbackRouter] implements [Router] on [http.ServeMux] method patterns. Its [Middleware]
// stack wraps the whole mux, so unmatched requests are logged too.
//
// # Callback Handler
//
// [CallbackHandler] validates the state parameter and forwards the authorization code
// through a channel. It only processes one callback; repeats get a 400.
//
// # Lifetime
//
// [Listen] binds the configured loopback address (127.0.0.1:5000 by default) and serves
// in the background. The auth flow shuts the listener down on every exit path: code
// received, timeout, cancellation or error.
package server
