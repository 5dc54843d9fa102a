// package tasks implements the playlist analysis pipeline.
//
// The core abstraction is Pipeline, which pages through a playlist, looks up audio features in batches and joins the two.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/moodmap/internal/models"
	"github.com/desertthunder/moodmap/internal/services"
	"github.com/desertthunder/moodmap/internal/shared"
)

// Analyzer defines the read operations the presentation layers need.
type Analyzer interface {
	// Playlists lists every playlist of the current user.
	Playlists(ctx context.Context) ([]models.Playlist, error)

	// PlaylistTracks returns the flattened tracks of a playlist.
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)

	// Analyze fetches a playlist's tracks and features and joins them.
	Analyze(ctx context.Context, playlistID string, progress chan<- ProgressUpdate) (*models.PlaylistAnalysis, error)
}

// Pipeline implements [Analyzer]. It holds no state besides its sources; calling an operation twice issues the same requests twice.
type Pipeline struct {
	library  services.Library
	features services.FeatureSource
}

var _ Analyzer = (*Pipeline)(nil)

// NewPipeline creates a new Pipeline with the provided sources.
func NewPipeline(library services.Library, features services.FeatureSource) *Pipeline {
	return &Pipeline{library: library, features: features}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func (p *Pipeline) ready() error {
	if p.library == nil || p.features == nil {
		return fmt.Errorf("%w: pipeline sources not initialized", shared.ErrServiceUnavailable)
	}
	return nil
}

// Playlists lists every playlist of the current user.
func (p *Pipeline) Playlists(ctx context.Context) ([]models.Playlist, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}

	items, err := Paginate(ctx, p.library.PlaylistsPage)
	if err != nil {
		return nil, err
	}
	return FlattenPlaylists(items), nil
}

// PlaylistTracks returns the flattened tracks of a playlist.
func (p *Pipeline) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	items, err := Paginate(ctx, func(ctx context.Context, cursor string) (*services.Page[services.SpotifyPlaylistItem], error) {
		return p.library.PlaylistItemsPage(ctx, playlistID, cursor)
	})
	if err != nil {
		return nil, err
	}
	return FlattenTracks(items), nil
}

// Analyze fetches a playlist's tracks, looks up features for those with an id, and left-joins the two.
//
// An empty playlist yields an empty analysis without any feature lookup.
func (p *Pipeline) Analyze(ctx context.Context, playlistID string, progress chan<- ProgressUpdate) (*models.PlaylistAnalysis, error) {
	sendProgress(progress, fetchingTracksUpdate(playlistID))
	tracks, err := p.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, tracksFetchedUpdate(tracks))

	analysis := &models.PlaylistAnalysis{PlaylistID: playlistID, Rows: []models.JoinedRow{}}
	if len(tracks) == 0 {
		return analysis, nil
	}

	features, err := fetchFeatures(ctx, p.features, TrackIDs(tracks), func(batch, batches int) {
		sendProgress(progress, featureBatchUpdate(batch, batches))
	})
	if err != nil {
		return nil, err
	}

	analysis.Rows = Join(tracks, features)
	sendProgress(progress, joinedUpdate(analysis))
	return analysis, nil
}
