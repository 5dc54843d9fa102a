package ui

import (
	"strings"

	"github.com/desertthunder/moodmap/internal/models"
)

// Point is one track on the valence/energy plane. Both coordinates are in [0, 1].
type Point struct {
	Valence float64
	Energy  float64
}

// PointsFromRows returns a point for every row that has features.
func PointsFromRows(rows []models.JoinedRow) []Point {
	points := make([]Point, 0, len(rows))
	for _, row := range rows {
		if row.Features == nil {
			continue
		}
		points = append(points, Point{Valence: row.Features.Valence, Energy: row.Features.Energy})
	}
	return points
}

// RenderScatter draws points on a width x height character grid with valence on the x axis and energy on the y axis.
//
// Cells hit once show ·, two or three times •, more often ●. The grid is framed by a left and bottom axis.
// A non-positive size renders nothing.
func RenderScatter(points []Point, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}

	counts := make([][]int, height)
	for i := range counts {
		counts[i] = make([]int, width)
	}
	for _, p := range points {
		col := cell(p.Valence, width)
		row := height - 1 - cell(p.Energy, height)
		counts[row][col]++
	}

	var b strings.Builder
	for _, line := range counts {
		b.WriteString("│")
		for _, n := range line {
			b.WriteString(glyph(n))
		}
		b.WriteString("\n")
	}
	b.WriteString("└")
	b.WriteString(strings.Repeat("─", width))
	return b.String()
}

// cell maps v in [0, 1] to an index in [0, n). Out-of-range values are clamped.
func cell(v float64, n int) int {
	i := int(v*float64(n-1) + 0.5)
	return max(0, min(n-1, i))
}

func glyph(n int) string {
	switch {
	case n == 0:
		return " "
	case n == 1:
		return "·"
	case n <= 3:
		return "•"
	default:
		return "●"
	}
}
