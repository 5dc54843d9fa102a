package ui

import "github.com/desertthunder/moodmap/internal/models"

const (
	opPlaylists = "playlists"
	opAnalyze   = "analyze"
)

// memoKey is the call signature a result is cached under.
type memoKey struct {
	op  string
	arg string
}

// memo caches pipeline results for the lifetime of the UI.
//
// It is only touched from Model.Update, so it needs no locking. Entries never expire on their own;
// they are dropped with forget or clear.
type memo struct {
	entries map[memoKey]any
}

func newMemo() *memo {
	return &memo{entries: make(map[memoKey]any)}
}

func (c *memo) get(op, arg string) (any, bool) {
	v, ok := c.entries[memoKey{op, arg}]
	return v, ok
}

func (c *memo) put(op, arg string, v any) {
	c.entries[memoKey{op, arg}] = v
}

func (c *memo) forget(op, arg string) {
	delete(c.entries, memoKey{op, arg})
}

func (c *memo) clear() {
	clear(c.entries)
}

func (c *memo) len() int {
	return len(c.entries)
}

func (c *memo) playlists() ([]models.Playlist, bool) {
	v, ok := c.get(opPlaylists, "")
	if !ok {
		return nil, false
	}
	playlists, ok := v.([]models.Playlist)
	return playlists, ok
}

func (c *memo) analysis(playlistID string) (*models.PlaylistAnalysis, bool) {
	v, ok := c.get(opAnalyze, playlistID)
	if !ok {
		return nil, false
	}
	analysis, ok := v.(*models.PlaylistAnalysis)
	return analysis, ok
}
