// Package models defines the rows that flow through the playlist analysis pipeline.
//
//   - [Playlist] : playlist summary (id, name, track count)
//   - [Track] : flattened playlist entry (id, name, joined artist names, album)
//   - [AudioFeatures] : per-track audio feature record
//   - [JoinedRow] : a [Track] left-joined with its [AudioFeatures]
//   - [PlaylistAnalysis] : every joined row of one playlist
//   - [ExportManifest] : files written by a bulk export run
//
// Tracks are the left side of the join: every [Track] produces exactly one [JoinedRow], and
// [JoinedRow.Features] is nil when the service had no features for that id.
package models
