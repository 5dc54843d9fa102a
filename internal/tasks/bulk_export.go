package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/moodmap/internal/formatter"
	"github.com/desertthunder/moodmap/internal/models"
	"github.com/desertthunder/moodmap/internal/shared"
)

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format    string // Export format: csv (default) or json
	OutputDir string // Base output directory (default: moodmap_export_{epoch})
}

// BulkExport analyzes the given playlists one at a time and writes one file per playlist plus a manifest.
//
// With no ids every playlist of the user is exported. The first error aborts the run.
func (p *Pipeline) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, ids []string, opts BulkExportOpts) (*models.ExportManifest, error) {
	if opts.Format == "" {
		opts.Format = formatter.FormatCSV
	}
	if !formatter.ValidFormat(opts.Format) {
		return nil, fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidFlag, opts.Format)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("moodmap_export_%d", time.Now().Unix())
	}

	sendProgress(prog, fetchingPlaylistsUpdate())
	playlists, err := p.Playlists(ctx)
	if err != nil {
		return nil, err
	}

	selected, err := selectPlaylists(playlists, ids)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manifest := &models.ExportManifest{
		RunID:     shared.GenerateID(),
		CreatedAt: time.Now().UTC(),
		Format:    opts.Format,
		Directory: opts.OutputDir,
		Entries:   make([]models.ExportEntry, 0, len(selected)),
	}

	for i, pl := range selected {
		if err := ctx.Err(); err != nil {
			return manifest, err
		}
		sendProgress(prog, exportingPlaylistUpdate(i+1, len(selected), pl.Name))

		analysis, err := p.Analyze(ctx, pl.ID, nil)
		if err != nil {
			return manifest, fmt.Errorf("failed to export %s: %w", pl.Name, err)
		}

		path := filepath.Join(opts.OutputDir, pl.ID+"."+opts.Format)
		if err := formatter.WriteExport(analysis, opts.Format, path); err != nil {
			return manifest, err
		}

		entry := models.ExportEntry{
			PlaylistID: pl.ID,
			Name:       pl.Name,
			File:       path,
			Rows:       len(analysis.Rows),
			Matched:    analysis.Matched(),
		}
		manifest.Entries = append(manifest.Entries, entry)
		sendProgress(prog, exportCompletedUpdate(i+1, len(selected), entry))
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(manifest, manifestPath); err != nil {
		return manifest, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	return manifest, nil
}

// selectPlaylists keeps the playlists named by ids in the order given; no ids keeps all of them.
func selectPlaylists(playlists []models.Playlist, ids []string) ([]models.Playlist, error) {
	if len(ids) == 0 {
		return playlists, nil
	}

	byID := make(map[string]models.Playlist, len(playlists))
	for _, pl := range playlists {
		byID[pl.ID] = pl
	}

	selected := make([]models.Playlist, 0, len(ids))
	for _, id := range ids {
		pl, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: playlist %s not found in your library", shared.ErrInvalidArgument, id)
		}
		selected = append(selected, pl)
	}
	return selected, nil
}
