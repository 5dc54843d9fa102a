// package formatter writes joined playlist tables to CSV and JSON and renders plain-text summaries
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/desertthunder/moodmap/internal/models"
	"github.com/desertthunder/moodmap/internal/shared"
)

// Supported export formats
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// CSVHeader lists the export columns: track columns first, then the feature record's columns.
var CSVHeader = []string{
	"track_id", "track_name", "artist", "album",
	"id", "danceability", "energy", "key", "loudness", "mode", "speechiness",
	"acousticness", "instrumentalness", "liveness", "valence", "tempo",
	"duration_ms", "time_signature",
}

// ValidFormat reports whether format is a supported export format.
func ValidFormat(format string) bool {
	return format == FormatCSV || format == FormatJSON
}

// ExportToCSV converts joined rows to CSV. Feature cells are empty for rows without features;
// no rows yields the header alone.
func ExportToCSV(rows []models.JoinedRow) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(CSVHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range rows {
		if err := writer.Write(csvRecord(row)); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

func csvRecord(row models.JoinedRow) []string {
	record := make([]string, 0, len(CSVHeader))
	record = append(record, row.TrackID, row.TrackName, row.Artist, row.Album)

	f := row.Features
	if f == nil {
		for len(record) < len(CSVHeader) {
			record = append(record, "")
		}
		return record
	}

	return append(record,
		f.ID,
		formatFloat(f.Danceability),
		formatFloat(f.Energy),
		strconv.Itoa(f.Key),
		formatFloat(f.Loudness),
		strconv.Itoa(f.Mode),
		formatFloat(f.Speechiness),
		formatFloat(f.Acousticness),
		formatFloat(f.Instrumentalness),
		formatFloat(f.Liveness),
		formatFloat(f.Valence),
		formatFloat(f.Tempo),
		strconv.Itoa(f.DurationMS),
		strconv.Itoa(f.TimeSignature),
	)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ExportToJSON converts an analysis to indented JSON; unmatched rows carry "features": null.
func ExportToJSON(analysis *models.PlaylistAnalysis) ([]byte, error) {
	if analysis == nil {
		analysis = &models.PlaylistAnalysis{Rows: []models.JoinedRow{}}
	}
	return shared.MarshalJSON(analysis, true)
}

// WriteCSVExport writes rows as CSV to path, creating parent directories as needed.
func WriteCSVExport(rows []models.JoinedRow, path string) error {
	data, err := ExportToCSV(rows)
	if err != nil {
		return fmt.Errorf("failed to generate CSV: %w", err)
	}
	return writeFile(path, data)
}

// WriteJSONExport writes analysis as JSON to path, creating parent directories as needed.
func WriteJSONExport(analysis *models.PlaylistAnalysis, path string) error {
	data, err := ExportToJSON(analysis)
	if err != nil {
		return fmt.Errorf("failed to generate JSON: %w", err)
	}
	return writeFile(path, data)
}

// WriteExport writes analysis to path in the given format.
func WriteExport(analysis *models.PlaylistAnalysis, format, path string) error {
	switch format {
	case FormatCSV:
		var rows []models.JoinedRow
		if analysis != nil {
			rows = analysis.Rows
		}
		return WriteCSVExport(rows, path)
	case FormatJSON:
		return WriteJSONExport(analysis, path)
	default:
		return fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidFlag, format)
	}
}

// WriteManifest writes a bulk export manifest as JSON.
func WriteManifest(manifest *models.ExportManifest, path string) error {
	data, err := shared.MarshalJSON(manifest, true)
	if err != nil {
		return fmt.Errorf("failed to generate manifest: %w", err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := shared.EnsureParentDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
