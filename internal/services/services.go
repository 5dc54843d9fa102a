// package services defines the read surfaces the analysis pipeline needs and implements them for Spotify
package services

import (
	"context"

	"github.com/desertthunder/moodmap/internal/models"
	"golang.org/x/oauth2"
)

// Page is one page of a cursor-paginated list endpoint.
//
// Next is the cursor for the following page; nil (or empty) means the listing is exhausted.
type Page[T any] struct {
	Items []T     `json:"items"`
	Total int     `json:"total"`
	Next  *string `json:"next"`
}

// Cursor returns the next-page cursor, or "" on the last page.
func (p *Page[T]) Cursor() string {
	if p == nil || p.Next == nil {
		return ""
	}
	return *p.Next
}

// Library lists the current user's playlists and the items of a playlist.
//
// An empty cursor requests the first page; any other cursor is a value previously returned by [Page.Cursor].
type Library interface {
	PlaylistsPage(ctx context.Context, cursor string) (*Page[SpotifySimplePlaylist], error)
	PlaylistItemsPage(ctx context.Context, playlistID, cursor string) (*Page[SpotifyPlaylistItem], error)
}

// FeatureSource looks up audio features for a batch of track ids.
//
// The result is positionally aligned with ids; an entry is nil when the service has no features for that id.
type FeatureSource interface {
	AudioFeatures(ctx context.Context, ids []string) ([]*models.AudioFeatures, error)
}

// OAuthService is implemented by services that authorize users with the OAuth2 authorization-code flow.
type OAuthService interface {
	GetAuthURL(state string) string
	GetOAuthConfig() *oauth2.Config
	Authenticate(ctx context.Context, token *oauth2.Token) error
}
