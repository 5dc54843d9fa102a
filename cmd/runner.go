package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmap/internal/services"
	"github.com/desertthunder/moodmap/internal/shared"
	"github.com/desertthunder/moodmap/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	library    services.Library
	features   services.FeatureSource
	oauth      services.OAuthService
	pipeline   *tasks.Pipeline
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Library and Features are built from the config on first use when left nil.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Library    services.Library
	Features   services.FeatureSource
	OAuth      services.OAuthService
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		library:    opts.Library,
		features:   opts.Features,
		oauth:      opts.OAuth,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistsCommand, exportCommand, exportAllCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// loadConfig re-reads the configuration when --config was given explicitly.
func (r *Runner) loadConfig(cmd *cli.Command) error {
	if !cmd.IsSet("config") && r.config != nil {
		return nil
	}

	path := cmd.String("config")
	config, err := shared.ResolveConfig(path)
	if err != nil {
		return err
	}

	r.config = config
	r.configPath = path
	r.pipeline = nil
	return nil
}

// spotify builds a Spotify client from the loaded configuration.
func (r *Runner) spotify() (*services.SpotifyService, error) {
	creds := r.config.Credentials.Spotify
	if !creds.HasCredentials() {
		return nil, fmt.Errorf("%w: set client_id and client_secret in %s or %s/%s",
			shared.ErrMissingCredentials, r.configPathOrDefault(), shared.EnvClientID, shared.EnvClientSecret)
	}

	return services.NewSpotifyService(creds, services.SpotifyOpts{
		BaseURL:           r.config.API.BaseURL,
		RequestsPerSecond: r.config.API.RequestsPerSecond,
		HTTPClient:        r.httpClient,
	})
}

// analyzer returns the pipeline, connecting to Spotify with the stored user token on first use.
func (r *Runner) analyzer(ctx context.Context) (*tasks.Pipeline, error) {
	if r.pipeline != nil {
		return r.pipeline, nil
	}

	if r.library == nil || r.features == nil {
		svc, err := r.spotify()
		if err != nil {
			return nil, err
		}
		if err := svc.Authenticate(ctx, r.config.Credentials.Spotify.Token()); err != nil {
			return nil, err
		}
		svc.SetTokenRefreshCallback(func(token *oauth2.Token) {
			if err := r.saveTokens(token); err != nil {
				r.logger.Warn("failed to persist refreshed token", "error", err)
				return
			}
			r.logger.Debug("refreshed token saved", "path", r.configPath)
		})
		r.library, r.features = svc, svc
	}

	r.pipeline = tasks.NewPipeline(r.library, r.features)
	return r.pipeline, nil
}

// saveTokens stores token in the config and writes the config back to disk.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: no configuration loaded", shared.ErrMissingConfig)
	}
	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}
	if r.configPath == "" {
		return nil
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (r *Runner) configPathOrDefault() string {
	if r.configPath == "" {
		return defaultConfigPath
	}
	return r.configPath
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
