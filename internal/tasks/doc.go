// Package tasks turns a playlist id into a table of tracks joined with their audio features.
//
// # Stages
//
// Data flows one way through four stages, each usable on its own:
//
//  1. [Paginate] : walks a cursor-paginated endpoint until the service reports no next page
//  2. [FlattenTracks] : maps playlist items to [models.Track] rows, skipping null tracks
//  3. [FetchFeatures] : looks up audio features in batches of [BatchSize], dropping ids the service has no data for
//  4. [Join] : left-joins tracks with features on track id
//
// [Pipeline] wires the stages to a [services.Library] and a [services.FeatureSource]. It keeps
// no cache; memoization belongs to the caller.
//
// # Errors
//
// Errors from the sources are returned unmodified and nothing is retried. A failure in any stage
// aborts the operation without a partial result.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking; a nil channel disables them.
//
// # Bulk Export
//
// [Pipeline.BulkExport] analyzes several playlists one after another, writes one file per
// playlist and records the run in a manifest.
package tasks
