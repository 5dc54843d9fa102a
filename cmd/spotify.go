package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/moodmap/internal/formatter"
	"github.com/desertthunder/moodmap/internal/server"
	"github.com/desertthunder/moodmap/internal/services"
	"github.com/desertthunder/moodmap/internal/shared"
	"github.com/desertthunder/moodmap/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// Auth performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server, opens browser for user authorization, and exchanges auth code for tokens.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	oauthSrv := r.oauth
	if oauthSrv == nil {
		svc, err := r.spotify()
		if err != nil {
			return err
		}
		oauthSrv = svc
	}

	token, err := r.doOAuth(ctx, oauthSrv)
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}
	r.pipeline = nil

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPathOrDefault())
	r.writePlain("You can now use: moodmap playlists\n")
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, oauthSrv services.OAuthService) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthSrv.GetAuthURL(state)
	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	callback := server.NewCallbackServer(addr, oauthSrv.GetOAuthConfig(), state, r.logger)
	if err := callback.Start(); err != nil {
		return nil, err
	}
	defer func() {
		if err := callback.Shutdown(context.Background()); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")
	return callback.Wait(ctx, authTimeout)
}

// Playlists lists every playlist of the current user.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}
	pipeline, err := r.analyzer(ctx)
	if err != nil {
		return err
	}

	r.logger.Debug("listing spotify playlists")
	playlists, err := pipeline.Playlists(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	if len(playlists) == 0 {
		return r.writePlain("No playlists found for your account.\n")
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n\n", p.TrackCount)
	}
	return nil
}

// Export analyzes one playlist and writes the joined rows to --output.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.StringArg("playlist-id")
	if playlistID == "" {
		return fmt.Errorf("%w: playlist id is required", shared.ErrMissingArgument)
	}

	format := cmd.String("format")
	if !formatter.ValidFormat(format) {
		return fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidFlag, format)
	}

	if err := r.loadConfig(cmd); err != nil {
		return err
	}
	outputPath := r.exportPath(cmd.String("output"), format)

	pipeline, err := r.analyzer(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("exporting playlist", "id", playlistID, "format", format, "output", outputPath)

	progress, wait := r.reportProgress()
	analysis, err := pipeline.Analyze(ctx, playlistID, progress)
	wait()
	if err != nil {
		return err
	}

	if err := formatter.WriteExport(analysis, format, outputPath); err != nil {
		return err
	}

	if analysis.Empty() {
		r.writePlain("⚠ Playlist %s is empty, wrote header only\n", playlistID)
	}
	r.writePlain("✓ Exported %d rows to %s\n", len(analysis.Rows), outputPath)
	r.writePlain("  With features: %d/%d\n", analysis.Matched(), len(analysis.Rows))

	if cmd.Bool("summary") {
		r.writePlain("\n")
		if _, err := r.output.Write(formatter.Summary(analysis)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// exportPath picks the output path for a single export, matching its extension to format when the
// configured default is used.
func (r *Runner) exportPath(flagValue, format string) string {
	if flagValue != "" {
		return flagValue
	}

	path := r.config.Export.Output
	if path == "" {
		path = shared.DefaultConfig().Export.Output
	}
	if ext := filepath.Ext(path); ext != "."+format {
		path = strings.TrimSuffix(path, ext) + "." + format
	}
	return path
}

// ExportAll exports every playlist, or only the ids given as arguments, into one directory.
func (r *Runner) ExportAll(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}
	pipeline, err := r.analyzer(ctx)
	if err != nil {
		return err
	}

	ids := cmd.Args().Slice()
	opts := tasks.BulkExportOpts{Format: cmd.String("format"), OutputDir: cmd.String("dir")}
	r.logger.Info("starting bulk export", "playlists", len(ids), "format", opts.Format, "dir", opts.OutputDir)

	progress, wait := r.reportProgress()
	manifest, err := pipeline.BulkExport(ctx, progress, ids, opts)
	wait()
	if err != nil {
		if manifest != nil && len(manifest.Entries) > 0 {
			r.writePlain("⚠ Stopped after %d playlists in %s\n", len(manifest.Entries), manifest.Directory)
		}
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Run: %s\n", manifest.RunID)
	r.writePlain("Directory: %s\n", manifest.Directory)
	r.writePlain("Playlists: %d\n", len(manifest.Entries))
	r.writePlain("Rows: %d\n", manifest.TotalRows())
	return nil
}

// reportProgress prints pipeline updates as they arrive. The returned func closes the channel and
// waits until every update has been printed.
func (r *Runner) reportProgress() (chan<- tasks.ProgressUpdate, func()) {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progress {
			switch update.Phase {
			case tasks.FetchPlaylists, tasks.FetchTracks:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.FetchAudioFeatures:
				r.writePlain("   %s\n", update.Message)
			case tasks.JoinRows:
				r.writePlain("🔗 %s\n", update.Message)
			case tasks.ExportPlaylist:
				r.writePlain("📝 %s\n", update.Message)
			}
		}
	}()

	return progress, func() {
		close(progress)
		<-done
	}
}
