package tasks

import (
	"fmt"

	"github.com/desertthunder/moodmap/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylists Phase = iota
	FetchTracks
	FetchAudioFeatures
	JoinRows
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylists:
		return "fetch_playlists"
	case FetchTracks:
		return "fetch_tracks"
	case FetchAudioFeatures:
		return "fetch_features"
	case JoinRows:
		return "join"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

func fetchingPlaylistsUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    0,
		Total:   1,
		Message: "Fetching playlists...",
	}
}

func fetchingTracksUpdate(playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Fetching tracks for %s...", playlistID),
	}
}

func tracksFetchedUpdate(tracks []models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d tracks", len(tracks)),
		Data:    tracks,
	}
}

func featureBatchUpdate(batch, batches int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchAudioFeatures,
		Step:    batch,
		Total:   batches,
		Message: fmt.Sprintf("[%d/%d] Fetching audio features...", batch, batches),
	}
}

func joinedUpdate(analysis *models.PlaylistAnalysis) ProgressUpdate {
	return ProgressUpdate{
		Phase:   JoinRows,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Joined %d rows (%d with features)", len(analysis.Rows), analysis.Matched()),
		Data:    analysis,
	}
}

func exportingPlaylistUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name),
	}
}

func exportCompletedUpdate(step, total int, entry models.ExportEntry) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d rows)", step, total, entry.Name, entry.Rows),
		Data:    entry,
	}
}
