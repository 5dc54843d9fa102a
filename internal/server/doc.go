// Package server provides HTTP routing, middleware, and the OAuth callback used by `moodmap auth`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [LoggingMiddleware] writes one structured log line per request.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter, exchanges the authorization code for tokens,
// and sends the result through a channel. It only processes one callback.
//
// [CallbackServer] binds the configured address (127.0.0.1:3000 by default), serves the handler until
// a result arrives, and is shut down by the caller.
package server
