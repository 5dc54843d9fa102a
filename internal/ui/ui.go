package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/moodmap/internal/formatter"
	"github.com/desertthunder/moodmap/internal/models"
	"github.com/desertthunder/moodmap/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	LoadingView
	TableView
	PlotView
)

var errNoPlaylists = errors.New("no playlists found for your account")

// analysisRun carries the channels of one in-flight [tasks.Analyzer.Analyze] call.
type analysisRun struct {
	playlistID string
	progress   chan tasks.ProgressUpdate
	done       chan Msg
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	analyzer     tasks.Analyzer
	cache        *memo
	width        int
	height       int
	playlistList list.Model
	playlists    []models.Playlist
	selected     *models.Playlist
	analysis     *models.PlaylistAnalysis
	trackTable   table.Model
	spinner      spinner.Model
	run          *analysisRun
	progress     tasks.ProgressUpdate
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model backed by analyzer.
func NewModel(ctx context.Context, analyzer tasks.Analyzer) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.ok

	return &Model{
		ctx:          ctx,
		view:         LoadingView,
		analyzer:     analyzer,
		cache:        newMemo(),
		width:        80,
		height:       24,
		playlistList: newPlaylistList(nil, 76, 16),
		spinner:      s,
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

func newPlaylistList(playlists []models.Playlist, width, height int) list.Model {
	l := list.New(playlistItems(playlists), list.NewDefaultDelegate(), width, height)
	l.Title = "Your Playlists"
	return l
}

// Init initializes the TUI by fetching the user's playlists.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchPlaylists())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		if m.analysis != nil {
			m.trackTable = newTrackTable(m.analysis.Rows, m.width, m.height)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateComponents(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylistsFetched:
		res := msg.data.(playlistsResult)
		if res.err != nil {
			m.err = res.err
			m.view = PlaylistListView
			return m, nil
		}
		m.cache.put(opPlaylists, "", res.playlists)
		m.showPlaylists(res.playlists)
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForRun(m.run)

	case MsgAnalysisReady:
		res := msg.data.(analysisResult)
		if m.run == nil || m.run.playlistID != res.playlistID {
			return m, nil
		}
		m.run = nil
		if res.err != nil {
			m.err = res.err
			m.view = PlaylistListView
			return m, nil
		}
		m.cache.put(opAnalyze, res.playlistID, res.analysis)
		m.showAnalysis(res.analysis)
		return m, nil
	}
	return m, nil
}

func (m *Model) showPlaylists(playlists []models.Playlist) {
	m.playlists = playlists
	m.playlistList = newPlaylistList(playlists, m.width-4, m.height-8)
	m.view = PlaylistListView
	if len(playlists) == 0 {
		m.err = errNoPlaylists
	}
}

func (m *Model) showAnalysis(analysis *models.PlaylistAnalysis) {
	m.analysis = analysis
	m.trackTable = newTrackTable(analysis.Rows, m.width, m.height)
	m.view = TableView
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" || (key.Matches(msg, m.keys.quit) && !m.filtering()) {
		return m, tea.Quit
	}

	if m.err != nil {
		switch {
		case key.Matches(msg, m.keys.back) && !errors.Is(m.err, errNoPlaylists):
			m.err = nil
		case key.Matches(msg, m.keys.refreshAll), key.Matches(msg, m.keys.refresh):
			m.err = nil
			return m.reloadPlaylists(true)
		}
		return m, nil
	}

	switch m.view {
	case PlaylistListView:
		return m.handlePlaylistListKeys(msg)
	case TableView:
		return m.handleTableKeys(msg)
	case PlotView:
		return m.handlePlotKeys(msg)
	}
	return m, nil
}

func (m *Model) filtering() bool {
	return m.view == PlaylistListView && m.playlistList.FilterState() == list.Filtering
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering() {
		var cmd tea.Cmd
		m.playlistList, cmd = m.playlistList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.enter):
		if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			return m.selectPlaylist(pl.playlist)
		}
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m.reloadPlaylists(false)
	case key.Matches(msg, m.keys.refreshAll):
		return m.reloadPlaylists(true)
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleTableKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.view = PlaylistListView
		return m, nil
	case key.Matches(msg, m.keys.plot):
		m.view = PlotView
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m.reanalyze()
	case key.Matches(msg, m.keys.refreshAll):
		return m.reloadPlaylists(true)
	}

	var cmd tea.Cmd
	m.trackTable, cmd = m.trackTable.Update(msg)
	return m, cmd
}

func (m *Model) handlePlotKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.plot):
		m.view = TableView
	case key.Matches(msg, m.keys.refresh):
		return m.reanalyze()
	case key.Matches(msg, m.keys.refreshAll):
		return m.reloadPlaylists(true)
	}
	return m, nil
}

// selectPlaylist shows the cached analysis of pl or starts a new one.
func (m *Model) selectPlaylist(pl models.Playlist) (tea.Model, tea.Cmd) {
	m.selected = &pl
	if analysis, ok := m.cache.analysis(pl.ID); ok {
		m.showAnalysis(analysis)
		return m, nil
	}
	return m, m.startAnalysis(pl.ID)
}

// reanalyze drops the cached analysis of the selected playlist and runs it again.
func (m *Model) reanalyze() (tea.Model, tea.Cmd) {
	if m.selected == nil {
		return m, nil
	}
	m.cache.forget(opAnalyze, m.selected.ID)
	return m, m.startAnalysis(m.selected.ID)
}

// reloadPlaylists refetches the playlist list; with all set every cached result is dropped first.
func (m *Model) reloadPlaylists(all bool) (tea.Model, tea.Cmd) {
	if all {
		m.cache.clear()
		m.selected = nil
		m.analysis = nil
	} else {
		m.cache.forget(opPlaylists, "")
	}
	m.view = LoadingView
	m.progress = tasks.ProgressUpdate{Phase: tasks.FetchPlaylists, Message: "Fetching playlists..."}
	return m, tea.Batch(m.spinner.Tick, m.fetchPlaylists())
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case TableView:
		m.trackTable, cmd = m.trackTable.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchPlaylists() tea.Cmd {
	if playlists, ok := m.cache.playlists(); ok {
		return func() tea.Msg { return playlistsFetchedMsg(playlists, nil) }
	}
	return func() tea.Msg {
		playlists, err := m.analyzer.Playlists(m.ctx)
		return playlistsFetchedMsg(playlists, err)
	}
}

func (m *Model) startAnalysis(playlistID string) tea.Cmd {
	run := &analysisRun{
		playlistID: playlistID,
		progress:   make(chan tasks.ProgressUpdate, 50),
		done:       make(chan Msg, 1),
	}
	m.run = run
	m.view = LoadingView
	m.progress = tasks.ProgressUpdate{Phase: tasks.FetchTracks, Message: "Fetching tracks..."}

	go func() {
		analysis, err := m.analyzer.Analyze(m.ctx, playlistID, run.progress)
		run.done <- analysisReadyMsg(playlistID, analysis, err)
	}()

	return tea.Batch(m.spinner.Tick, m.waitForRun(run))
}

// waitForRun delivers the next progress update of run, or its result once it finishes.
func (m *Model) waitForRun(run *analysisRun) tea.Cmd {
	if run == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case update := <-run.progress:
			return progressUpdateMsg(update)
		case msg := <-run.done:
			return msg
		}
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return m.renderError()
	}

	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case LoadingView:
		return m.renderLoading()
	case TableView:
		return m.renderTable()
	case PlotView:
		return m.renderPlot()
	default:
		return ""
	}
}

func (m *Model) renderError() string {
	if errors.Is(m.err, errNoPlaylists) {
		helpView := m.help.ShortHelpView([]key.Binding{m.keys.refresh, m.keys.quit})
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No playlists found for your account."), helpView)
	}
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.refreshAll, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("Error: %v", m.err)), helpView)
}

func (m *Model) renderPlaylistList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.refresh, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderLoading() string {
	msg := m.progress.Message
	if msg == "" {
		msg = "Loading..."
	}
	if m.progress.Phase == tasks.FetchAudioFeatures && m.progress.Total > 0 {
		msg = fmt.Sprintf("Fetching audio features (%d/%d batches)", m.progress.Step, m.progress.Total)
	}
	return fmt.Sprintf("%s %s\n\n%s", m.spinner.View(), msg, m.help.ShortHelpView([]key.Binding{m.keys.quit}))
}

func (m *Model) heading() string {
	name := "Playlist"
	if m.selected != nil {
		name = m.selected.Name
	}
	return styles.title.Render(name)
}

func (m *Model) renderTable() string {
	helpKeys := []key.Binding{m.keys.plot, m.keys.back, m.keys.refresh, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	if m.analysis.Empty() {
		return fmt.Sprintf("%s\n%s\n\n%s", m.heading(), styles.warn.Render("This playlist is empty."), helpView)
	}

	s := formatter.ComputeStats(m.analysis)
	stats := fmt.Sprintf("%d tracks • %d with features", s.Tracks, s.Matched)
	if s.Matched > 0 {
		stats += fmt.Sprintf(" • valence %.2f • energy %.2f • danceability %.2f", s.Valence, s.Energy, s.Danceability)
	}

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", m.heading(), styles.help.Render(stats), m.trackTable.View(), helpView)
}

func (m *Model) renderPlot() string {
	helpKeys := []key.Binding{m.keys.back, m.keys.refresh, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	var points []Point
	if m.analysis != nil {
		points = PointsFromRows(m.analysis.Rows)
	}
	if len(points) == 0 {
		return fmt.Sprintf("%s\n%s\n\n%s", m.heading(), styles.warn.Render("No audio features to plot."), helpView)
	}

	width, height := max(m.width-12, 10), max(m.height-10, 5)
	grid := strings.Split(RenderScatter(points, width, height), "\n")

	var b strings.Builder
	for i, line := range grid {
		label := "      "
		switch i {
		case 0:
			label = "energy"
		case len(grid) - 2:
			label = "     0"
		}
		b.WriteString(styles.axis.Render(label) + " " + styles.plot.Render(line) + "\n")
	}
	xLabel := fmt.Sprintf("%-*s%s", width-6, "0 valence →", "1")
	b.WriteString(styles.axis.Render("       " + xLabel))

	return fmt.Sprintf("%s\n%s\n\n%s", m.heading(), b.String(), helpView)
}
