package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/moodmap/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes the template configuration to --config unless a file already exists there.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if configPath == "" {
		return fmt.Errorf("%w: --config must not be empty", shared.ErrMissingArgument)
	}

	if _, err := os.Stat(configPath); err == nil {
		r.logger.Info("config file already exists", "path", configPath)
		r.writePlain("✓ Using existing config at %s\n", configPath)
		return nil
	}

	if err := shared.CreateConfigFile(configPath); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	r.logger.Info("config file created", "path", configPath)

	r.writePlain("✓ Config written to %s\n\n", configPath)
	r.writePlain("Next steps:\n")
	r.writePlain("  1. Set client_id and client_secret from your Spotify developer dashboard\n")
	r.writePlain("  2. Add %s to the app's redirect URIs\n", shared.DefaultConfig().Credentials.Spotify.RedirectURI)
	r.writePlain("  3. Run: moodmap auth\n")
	return nil
}
