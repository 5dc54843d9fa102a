package ui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/moodmap/internal/models"
)

const featureColWidth = 8

// trackRows converts joined rows to table rows. Feature cells are blank for unmatched tracks.
func trackRows(rows []models.JoinedRow) []table.Row {
	out := make([]table.Row, len(rows))
	for i, r := range rows {
		row := table.Row{r.TrackName, r.Artist, r.Album, "", "", "", ""}
		if f := r.Features; f != nil {
			row[3] = score(f.Danceability)
			row[4] = score(f.Energy)
			row[5] = score(f.Valence)
			row[6] = f.ModeName()
		}
		out[i] = row
	}
	return out
}

func score(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// trackColumns splits the width left over by the feature columns between track, artist and album.
func trackColumns(width int) []table.Column {
	text := max((width-4*featureColWidth-10)/3, 10)
	return []table.Column{
		{Title: "Track", Width: text},
		{Title: "Artist", Width: text},
		{Title: "Album", Width: text},
		{Title: "Dance", Width: featureColWidth},
		{Title: "Energy", Width: featureColWidth},
		{Title: "Valence", Width: featureColWidth},
		{Title: "Mode", Width: featureColWidth},
	}
}

func newTrackTable(rows []models.JoinedRow, width, height int) table.Model {
	t := table.New(
		table.WithColumns(trackColumns(width)),
		table.WithRows(trackRows(rows)),
		table.WithFocused(true),
		table.WithHeight(max(height-10, 5)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#7D56F4"))
	t.SetStyles(s)
	return t
}
