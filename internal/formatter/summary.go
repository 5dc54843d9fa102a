package formatter

import (
	"bytes"
	"fmt"

	"github.com/desertthunder/moodmap/internal/models"
)

// Stats aggregates the feature columns of an analysis over rows that have features.
type Stats struct {
	Tracks       int
	Matched      int
	Valence      float64 // mean
	Energy       float64 // mean
	Danceability float64 // mean
	Tempo        float64 // mean
	Major        int
	Minor        int
}

// ComputeStats averages the feature columns of analysis. Means are zero when nothing matched.
func ComputeStats(analysis *models.PlaylistAnalysis) Stats {
	var s Stats
	if analysis == nil {
		return s
	}

	s.Tracks = len(analysis.Rows)
	for _, row := range analysis.Rows {
		f := row.Features
		if f == nil {
			continue
		}
		s.Matched++
		s.Valence += f.Valence
		s.Energy += f.Energy
		s.Danceability += f.Danceability
		s.Tempo += f.Tempo
		if f.Mode == 1 {
			s.Major++
		} else {
			s.Minor++
		}
	}

	if s.Matched > 0 {
		n := float64(s.Matched)
		s.Valence /= n
		s.Energy /= n
		s.Danceability /= n
		s.Tempo /= n
	}
	return s
}

// Summary renders a short plain-text report of an analysis.
func Summary(analysis *models.PlaylistAnalysis) []byte {
	var buf bytes.Buffer
	if analysis.Empty() {
		buf.WriteString("This playlist is empty.\n")
		return buf.Bytes()
	}

	s := ComputeStats(analysis)
	fmt.Fprintf(&buf, "Tracks:        %d\n", s.Tracks)
	fmt.Fprintf(&buf, "With features: %d\n", s.Matched)
	if s.Matched == 0 {
		return buf.Bytes()
	}

	fmt.Fprintf(&buf, "Valence:       %.3f\n", s.Valence)
	fmt.Fprintf(&buf, "Energy:        %.3f\n", s.Energy)
	fmt.Fprintf(&buf, "Danceability:  %.3f\n", s.Danceability)
	fmt.Fprintf(&buf, "Tempo:         %.1f BPM\n", s.Tempo)
	fmt.Fprintf(&buf, "Major/Minor:   %d/%d\n", s.Major, s.Minor)
	return buf.Bytes()
}
