package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/moodmap/internal/models"
	"github.com/desertthunder/moodmap/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlaylistsFetched MsgKind = iota
	MsgProgressUpdate
	MsgAnalysisReady
)

type playlistsResult struct {
	playlists []models.Playlist
	err       error
}

type analysisResult struct {
	playlistID string
	analysis   *models.PlaylistAnalysis
	err        error
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsResult{playlists, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// analysisReadyMsg is the constructor for [MsgAnalysisReady]
func analysisReadyMsg(playlistID string, analysis *models.PlaylistAnalysis, err error) Msg {
	return Msg{kind: MsgAnalysisReady, data: analysisResult{playlistID, analysis, err}}
}
