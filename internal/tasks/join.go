package tasks

import "github.com/desertthunder/moodmap/internal/models"

// Join left-joins tracks with features on track id.
//
// Every track yields exactly one row in input order. When several records share an id the first one wins.
func Join(tracks []models.Track, features []models.AudioFeatures) []models.JoinedRow {
	byID := make(map[string]*models.AudioFeatures, len(features))
	for i := range features {
		if _, ok := byID[features[i].ID]; !ok {
			byID[features[i].ID] = &features[i]
		}
	}

	rows := make([]models.JoinedRow, len(tracks))
	for i, t := range tracks {
		rows[i] = models.JoinedRow{Track: t}
		if t.TrackID == "" {
			continue
		}
		if f, ok := byID[t.TrackID]; ok {
			rows[i].Features = f
		}
	}
	return rows
}
