package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/moodmap/internal/models"
	"github.com/desertthunder/moodmap/internal/services"
	"github.com/desertthunder/moodmap/internal/shared"
	tu "github.com/desertthunder/moodmap/internal/testing"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

func testLibrary() *tu.MockLibrary {
	return &tu.MockLibrary{
		PlaylistPages: [][]services.SpotifySimplePlaylist{
			{tu.SimplePlaylist("p1", "Morning", 2)},
			{tu.SimplePlaylist("p2", "Empty", 0)},
		},
		ItemPages: map[string][][]services.SpotifyPlaylistItem{
			"p1": {{tu.Item("a", "Song A", "Album", "One", "Two"), tu.Item("b", "Song B", "Album", "Three")}},
			"p2": {{}},
		},
	}
}

func testFeatures() *tu.MockFeatureSource {
	return &tu.MockFeatureSource{Features: map[string]*models.AudioFeatures{
		"a": {ID: "a", Valence: 0.75, Energy: 0.5, Mode: 1, Tempo: 120, Key: 0},
	}}
}

func testRunner(output *bytes.Buffer) *Runner {
	return NewRunner(RunnerOpts{
		Config:   shared.DefaultConfig(),
		Library:  testLibrary(),
		Features: testFeatures(),
		Logger:   shared.NewLogger(&bytes.Buffer{}),
		Output:   output,
	})
}

// run executes args against the registered commands the same way main does.
func run(r *Runner, args ...string) error {
	app := &cli.Command{Name: "moodmap", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"moodmap"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			library := testLibrary()
			features := testFeatures()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Library:    library,
				Features:   features,
				HTTPClient: httpClient,
				Logger:     logger,
				Output:     output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.library != library || runner.features != features {
				t.Error("expected sources to be set")
			}
			if runner.pipeline != nil {
				t.Error("expected pipeline to be built lazily")
			}
		})

		t.Run("with zero options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		names := map[string]bool{}
		for i, cmd := range runner.register() {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}

		for _, want := range []string{"setup", "auth", "playlists", "export", "export-all", "tui"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})

	t.Run("saveTokens", func(t *testing.T) {
		t.Run("saves tokens successfully", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")

			config := shared.DefaultConfig()
			config.Credentials.Spotify.ClientID = "test_id"
			config.Credentials.Spotify.ClientSecret = "test_secret"
			if err := shared.SaveConfig(configPath, config); err != nil {
				t.Fatalf("failed to create test config: %v", err)
			}

			runner := NewRunner(RunnerOpts{Config: config, ConfigPath: configPath})
			token := &oauth2.Token{AccessToken: "new_access_token", RefreshToken: "new_refresh_token"}
			if err := runner.saveTokens(token); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			loadedConfig, err := shared.LoadConfig(configPath)
			if err != nil {
				t.Fatalf("failed to reload config: %v", err)
			}
			if loadedConfig.Credentials.Spotify.AccessToken != "new_access_token" {
				t.Errorf("expected access token to be updated, got %s", loadedConfig.Credentials.Spotify.AccessToken)
			}
			if loadedConfig.Credentials.Spotify.RefreshToken != "new_refresh_token" {
				t.Errorf("expected refresh token to be updated, got %s", loadedConfig.Credentials.Spotify.RefreshToken)
			}
			if loadedConfig.Credentials.Spotify.ClientID != "test_id" {
				t.Errorf("expected client id to survive, got %s", loadedConfig.Credentials.Spotify.ClientID)
			}
		})

		t.Run("leaves environment secrets out of the saved file", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			t.Setenv(shared.EnvClientSecret, "env-only-secret")

			config, err := shared.ResolveConfig(configPath)
			if err != nil {
				t.Fatalf("ResolveConfig() error = %v", err)
			}
			runner := NewRunner(RunnerOpts{Config: config, ConfigPath: configPath})

			if err := runner.saveTokens(&oauth2.Token{AccessToken: "access", RefreshToken: "refresh"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if content := tu.MustReadFile(t, configPath); strings.Contains(content, "env-only-secret") {
				t.Errorf("environment secret written to config:\n%s", content)
			}
			if runner.config.Credentials.Spotify.ClientSecret != "env-only-secret" {
				t.Error("expected the runner to keep using the environment secret")
			}
		})

		t.Run("handles nil config error", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/tmp/test.toml"})
			runner.config = nil

			err := runner.saveTokens(&oauth2.Token{AccessToken: "test"})
			if !errors.Is(err, shared.ErrMissingConfig) {
				t.Errorf("expected ErrMissingConfig, got %v", err)
			}
		})

		t.Run("handles empty configPath", func(t *testing.T) {
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{Config: config})

			if err := runner.saveTokens(&oauth2.Token{AccessToken: "new_token", RefreshToken: "new_refresh"}); err != nil {
				t.Fatalf("expected no error with empty path, got %v", err)
			}
			if config.Credentials.Spotify.AccessToken != "new_token" {
				t.Error("expected config to be updated in memory")
			}
		})

		t.Run("handles SaveConfig failure", func(t *testing.T) {
			blocker := filepath.Join(t.TempDir(), "file")
			if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
				t.Fatalf("setup failed: %v", err)
			}

			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig(), ConfigPath: filepath.Join(blocker, "config.toml")})
			err := runner.saveTokens(&oauth2.Token{AccessToken: "test"})
			if err == nil || !strings.Contains(err.Error(), "failed to save config") {
				t.Errorf("expected save config error, got %v", err)
			}
		})

		t.Run("handles Update error", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig(), ConfigPath: filepath.Join(t.TempDir(), "config.toml")})

			err := runner.saveTokens(nil)
			if err == nil || !strings.Contains(err.Error(), "failed to update spotify configuration") {
				t.Errorf("expected update error, got %v", err)
			}
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument in chain, got %v", err)
			}
		})
	})

	t.Run("analyzer", func(t *testing.T) {
		t.Run("reuses the pipeline", func(t *testing.T) {
			runner := testRunner(&bytes.Buffer{})

			first, err := runner.analyzer(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			second, _ := runner.analyzer(context.Background())
			if first != second {
				t.Error("expected the same pipeline on repeated calls")
			}
		})

		t.Run("missing credentials", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Credentials.Spotify.ClientID = ""
			runner := NewRunner(RunnerOpts{Config: config, Logger: shared.NewLogger(&bytes.Buffer{})})

			if _, err := runner.analyzer(context.Background()); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("not authorized yet", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Credentials.Spotify.ClientID = "id"
			config.Credentials.Spotify.ClientSecret = "secret"
			runner := NewRunner(RunnerOpts{Config: config, Logger: shared.NewLogger(&bytes.Buffer{})})

			if _, err := runner.analyzer(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})

	t.Run("exportPath", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		tests := []struct {
			flag, format, want string
		}{
			{"", "csv", "output/playlist_features.csv"},
			{"", "json", "output/playlist_features.json"},
			{"custom.out", "json", "custom.out"},
		}
		for _, tt := range tests {
			if got := runner.exportPath(tt.flag, tt.format); got != tt.want {
				t.Errorf("exportPath(%q, %q) = %q, want %q", tt.flag, tt.format, got, tt.want)
			}
		}
	})
}

func TestCommands(t *testing.T) {
	t.Run("setup", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		output := &bytes.Buffer{}
		runner := testRunner(output)

		if err := run(runner, "setup", "--config", configPath); err != nil {
			t.Fatalf("setup failed: %v", err)
		}
		tu.AssertFileExists(t, configPath)
		if !strings.Contains(output.String(), "moodmap auth") {
			t.Errorf("expected next steps, got %s", output.String())
		}

		output.Reset()
		if err := run(runner, "setup", "--config", configPath); err != nil {
			t.Fatalf("second setup failed: %v", err)
		}
		if !strings.Contains(output.String(), "Using existing config") {
			t.Errorf("expected existing config notice, got %s", output.String())
		}
	})

	t.Run("auth without credentials", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "missing.toml")
		t.Setenv(shared.EnvClientID, "")
		t.Setenv(shared.EnvClientSecret, "")

		config := shared.DefaultConfig()
		config.Credentials.Spotify.ClientSecret = ""
		runner := NewRunner(RunnerOpts{Config: config, Logger: shared.NewLogger(&bytes.Buffer{}), Output: &bytes.Buffer{}})
		runner.configPath = configPath

		if err := run(runner, "auth"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("playlists", func(t *testing.T) {
		output := &bytes.Buffer{}
		if err := run(testRunner(output), "playlists"); err != nil {
			t.Fatalf("playlists failed: %v", err)
		}

		result := output.String()
		for _, want := range []string{"Found 2 playlists", "1. Morning", "ID: p1", "Tracks: 2", "2. Empty"} {
			if !strings.Contains(result, want) {
				t.Errorf("output missing %q:\n%s", want, result)
			}
		}
	})

	t.Run("playlists as JSON", func(t *testing.T) {
		output := &bytes.Buffer{}
		if err := run(testRunner(output), "playlists", "--json"); err != nil {
			t.Fatalf("playlists failed: %v", err)
		}
		if !strings.Contains(output.String(), `"id":"p1"`) || !strings.Contains(output.String(), `"track_count":2`) {
			t.Errorf("unexpected JSON %s", output.String())
		}
	})

	t.Run("playlists when the account has none", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := testRunner(output)
		runner.library = &tu.MockLibrary{}

		if err := run(runner, "playlists"); err != nil {
			t.Fatalf("playlists failed: %v", err)
		}
		if !strings.Contains(output.String(), "No playlists found for your account.") {
			t.Errorf("expected empty notice, got %s", output.String())
		}
	})

	t.Run("playlists propagates API errors", func(t *testing.T) {
		runner := testRunner(&bytes.Buffer{})
		runner.library = &tu.MockLibrary{PlaylistsErr: &services.APIError{StatusCode: 401, Message: "The access token expired"}}

		if err := run(runner, "playlists"); !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("export csv", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "features.csv")
		output := &bytes.Buffer{}

		if err := run(testRunner(output), "export", "--output", path, "p1"); err != nil {
			t.Fatalf("export failed: %v", err)
		}

		records, err := csv.NewReader(strings.NewReader(tu.MustReadFile(t, path))).ReadAll()
		if err != nil {
			t.Fatalf("export is not valid CSV: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected header and 2 rows, got %d", len(records))
		}
		if records[1][0] != "a" || records[1][2] != "One, Two" || records[1][14] != "0.75" {
			t.Errorf("unexpected matched row %v", records[1])
		}
		if records[2][0] != "b" || records[2][14] != "" {
			t.Errorf("unexpected unmatched row %v", records[2])
		}

		result := output.String()
		if !strings.Contains(result, "✓ Exported 2 rows to "+path) {
			t.Errorf("expected export confirmation, got %s", result)
		}
		if !strings.Contains(result, "With features: 1/2") {
			t.Errorf("expected match count, got %s", result)
		}
	})

	t.Run("export json with summary", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "features.json")
		output := &bytes.Buffer{}

		if err := run(testRunner(output), "export", "--format", "json", "--output", path, "--summary", "p1"); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		if !strings.Contains(tu.MustReadFile(t, path), `"playlist_id": "p1"`) {
			t.Error("expected JSON export")
		}
		if !strings.Contains(output.String(), "Valence:") {
			t.Errorf("expected summary, got %s", output.String())
		}
	})

	t.Run("export empty playlist", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.csv")
		output := &bytes.Buffer{}
		runner := testRunner(output)
		features := testFeatures()
		runner.features = features

		if err := run(runner, "export", "--output", path, "p2"); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		if len(features.Calls) != 0 {
			t.Errorf("expected no feature lookups, got %d", len(features.Calls))
		}
		if !strings.HasPrefix(tu.MustReadFile(t, path), "track_id,track_name") {
			t.Error("expected header-only file")
		}
		if !strings.Contains(output.String(), "is empty") {
			t.Errorf("expected empty warning, got %s", output.String())
		}
	})

	t.Run("export argument errors", func(t *testing.T) {
		runner := testRunner(&bytes.Buffer{})

		if err := run(runner, "export"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if err := run(runner, "export", "--format", "xml", "p1"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("export unknown playlist", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "none.csv")
		err := run(testRunner(&bytes.Buffer{}), "export", "--output", path, "missing")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
			t.Error("expected no file on failure")
		}
	})

	t.Run("export-all", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "bulk")
		output := &bytes.Buffer{}

		if err := run(testRunner(output), "export-all", "--dir", dir); err != nil {
			t.Fatalf("export-all failed: %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "p1.csv"))
		tu.AssertFileExists(t, filepath.Join(dir, "p2.csv"))
		tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))

		result := output.String()
		for _, want := range []string{"Export Complete!", "Playlists: 2", "Rows: 2"} {
			if !strings.Contains(result, want) {
				t.Errorf("output missing %q:\n%s", want, result)
			}
		}
	})

	t.Run("export-all selected ids", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "bulk")
		if err := run(testRunner(&bytes.Buffer{}), "export-all", "--dir", dir, "--format", "json", "p2"); err != nil {
			t.Fatalf("export-all failed: %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "p2.json"))
		if _, err := os.Stat(filepath.Join(dir, "p1.json")); !os.IsNotExist(err) {
			t.Error("expected p1 to be skipped")
		}
	})
}
