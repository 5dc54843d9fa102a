package models

import "time"

// Playlist is a playlist summary as listed for the current user.
type Playlist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TrackCount int    `json:"track_count"`
}

// Track is a flattened playlist entry. TrackID is empty for entries without a service id (local files).
type Track struct {
	TrackID   string `json:"track_id"`
	TrackName string `json:"track_name"`
	Artist    string `json:"artist"` // comma-joined artist names
	Album     string `json:"album"`
}

// AudioFeatures is the feature record the service returns for one track.
type AudioFeatures struct {
	ID               string  `json:"id"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Key              int     `json:"key"`
	Loudness         float64 `json:"loudness"`
	Mode             int     `json:"mode"`
	Speechiness      float64 `json:"speechiness"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	DurationMS       int     `json:"duration_ms"`
	TimeSignature    int     `json:"time_signature"`
}

var pitchClasses = [...]string{"C", "C♯/D♭", "D", "D♯/E♭", "E", "F", "F♯/G♭", "G", "G♯/A♭", "A", "A♯/B♭", "B"}

// ModeName returns "Major" or "Minor".
func (f AudioFeatures) ModeName() string {
	if f.Mode == 1 {
		return "Major"
	}
	return "Minor"
}

// KeyName returns the pitch class for Key, or "" when no key was detected (-1).
func (f AudioFeatures) KeyName() string {
	if f.Key < 0 || f.Key >= len(pitchClasses) {
		return ""
	}
	return pitchClasses[f.Key]
}

// JoinedRow is a track with its features, if any.
type JoinedRow struct {
	Track
	Features *AudioFeatures `json:"features"`
}

// HasFeatures reports whether the row matched a feature record.
func (r JoinedRow) HasFeatures() bool {
	return r.Features != nil
}

// PlaylistAnalysis holds the joined table for one playlist.
type PlaylistAnalysis struct {
	PlaylistID string      `json:"playlist_id"`
	Rows       []JoinedRow `json:"rows"`
}

// Empty reports whether the playlist had no tracks.
func (a *PlaylistAnalysis) Empty() bool {
	return a == nil || len(a.Rows) == 0
}

// Matched counts rows that have features.
func (a *PlaylistAnalysis) Matched() int {
	if a == nil {
		return 0
	}
	n := 0
	for _, row := range a.Rows {
		if row.HasFeatures() {
			n++
		}
	}
	return n
}

// ExportManifest records one bulk export run.
type ExportManifest struct {
	RunID     string        `json:"run_id"`
	CreatedAt time.Time     `json:"created_at"`
	Format    string        `json:"format"`
	Directory string        `json:"directory"`
	Entries   []ExportEntry `json:"entries"`
}

// ExportEntry is one playlist written during a bulk export.
type ExportEntry struct {
	PlaylistID string `json:"playlist_id"`
	Name       string `json:"name"`
	File       string `json:"file"`
	Rows       int    `json:"rows"`
	Matched    int    `json:"matched"`
}

// TotalRows sums the rows written across entries.
func (m *ExportManifest) TotalRows() int {
	n := 0
	for _, e := range m.Entries {
		n += e.Rows
	}
	return n
}
