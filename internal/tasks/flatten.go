package tasks

import (
	"strings"

	"github.com/desertthunder/moodmap/internal/models"
	"github.com/desertthunder/moodmap/internal/services"
)

// FlattenTracks maps playlist items to track rows, skipping entries whose track is null.
func FlattenTracks(items []services.SpotifyPlaylistItem) []models.Track {
	tracks := make([]models.Track, 0, len(items))
	for _, item := range items {
		t := item.Track
		if t == nil {
			continue
		}

		artists := make([]string, len(t.Artists))
		for i, a := range t.Artists {
			artists[i] = a.Name
		}

		var id string
		if t.ID != nil {
			id = *t.ID
		}

		tracks = append(tracks, models.Track{
			TrackID:   id,
			TrackName: t.Name,
			Artist:    strings.Join(artists, ", "),
			Album:     t.Album.Name,
		})
	}
	return tracks
}

// FlattenPlaylists maps simplified playlist objects to playlist summaries.
func FlattenPlaylists(items []services.SpotifySimplePlaylist) []models.Playlist {
	playlists := make([]models.Playlist, len(items))
	for i, p := range items {
		playlists[i] = models.Playlist{ID: p.ID, Name: p.Name, TrackCount: p.Tracks.Total}
	}
	return playlists
}

// TrackIDs returns the ids of tracks that have one, in order. Duplicates are kept.
func TrackIDs(tracks []models.Track) []string {
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.TrackID != "" {
			ids = append(ids, t.TrackID)
		}
	}
	return ids
}
