// Package services implements the Spotify Web API reads used by moodmap.
//
// # Interfaces
//
// The pipeline depends on two narrow interfaces rather than on [SpotifyService] directly:
//   - [Library] : cursor-paginated playlist and playlist-item listings
//   - [FeatureSource] : batched audio-feature lookups
//
// [OAuthService] covers the authorization-code flow driven by the CLI.
//
// # Authentication
//
// User endpoints go through an [oauth2] client built from the stored user token; the client refreshes
// expired tokens automatically and reports new tokens through the callback set with
// [SpotifyService.SetTokenRefreshCallback] so they can be persisted.
//
// The audio-features endpoint is called with an app token from the client-credentials flow, which needs
// only the client id and secret.
//
// # Pagination
//
// Spotify list responses carry an absolute "next" URL. That URL is the cursor: the first page is requested
// with an empty cursor, later pages by passing the previous page's cursor back in.
//
// # Error Handling
//
// Non-2xx responses become [*APIError], which matches [shared.ErrAPIRequest] with errors.Is.
// A 401 additionally matches [shared.ErrTokenExpired]. Nothing is retried.
package services
