package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/qcat/internal/models"
	"github.com/desertthunder/qcat/internal/shared"
	tu "github.com/desertthunder/qcat/internal/testing"
	"github.com/urfave/cli/v3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestRunner(t *testing.T, catalog *tu.MockCatalog) (*Runner, *bytes.Buffer) {
	t.Helper()
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Catalog: catalog,
		DB:      setupTestDB(t),
		Logger:  shared.NewLogger(io.Discard),
		Output:  output,
	})
	return runner, output
}

func runApp(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{
		Name:     "qcat",
		Flags:    globalFlags(),
		Commands: r.register(),
		Before:   r.Before,
	}
	return app.Run(context.Background(), append([]string{"qcat"}, args...))
}

func sampleAlbum() *models.Album {
	tracks := []models.Track{
		{ID: 101, Title: "One More Time", TrackNumber: 1, Duration: 320},
		{ID: 102, Title: "Aerodynamic", TrackNumber: 2, Duration: 212, ParentalWarning: true},
	}
	page := models.NewPage(tracks, 2, 0, 2)
	return &models.Album{
		ID:          "0724384960650",
		Title:       "Discovery",
		Artist:      models.Artist{ID: 1, Name: "Daft Punk"},
		TracksCount: 2,
		Duration:    532,
		Tracks:      &page,
	}
}

func searchCatalog() *tu.MockCatalog {
	return &tu.MockCatalog{
		SearchFunc: func(ctx context.Context, text string, limit, offset int, region string) (*models.SearchResults, error) {
			clean := *sampleAlbum()
			explicit := *sampleAlbum()
			explicit.ID = "explicit"
			explicit.Title = "Homework"
			explicit.ParentalWarning = true
			return &models.SearchResults{
				Query:  text,
				Albums: models.NewPage([]models.Album{clean, explicit}, limit, offset, 2),
			}, nil
		},
	}
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with nil config uses defaults", func(t *testing.T) {
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
		})

		t.Run("with database wires repositories", func(t *testing.T) {
			runner, _ := newTestRunner(t, &tu.MockCatalog{})
			if runner.history == nil || runner.cache == nil {
				t.Error("expected history and cache to be set")
			}
		})

		t.Run("injected catalog is used", func(t *testing.T) {
			catalog := &tu.MockCatalog{}
			runner, _ := newTestRunner(t, catalog)
			got, err := runner.Catalog()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != catalog {
				t.Error("expected injected catalog")
			}
		})

		t.Run("memory database survives pool settings", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Database.Path = shared.MemoryDatabase
			config.Database.MaxOpenConns = 8
			runner := NewRunner(RunnerOpts{Config: config, Logger: shared.NewLogger(io.Discard)})
			defer runner.Close()

			db, err := runner.Database()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := db.Stats().MaxOpenConnections; got != 1 {
				t.Errorf("expected 1 open connection, got %d", got)
			}

			if _, err := runner.History().Record("search", "daft punk", "", "", 1); err != nil {
				t.Fatalf("expected lookup to be recorded, got %v", err)
			}
			lookups, err := runner.History().List(nil)
			if err != nil || len(lookups) != 1 {
				t.Errorf("expected 1 lookup, got %d (%v)", len(lookups), err)
			}
		})

		t.Run("unconfigured catalog fails", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard)})
			runner.config.Upstream.AppID = ""
			if _, err := runner.Catalog(); !errors.Is(err, shared.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	})

	t.Run("LoadConfig", func(t *testing.T) {
		t.Run("missing file keeps defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard)})
			before := runner.config
			if err := runner.LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if runner.config != before {
				t.Error("expected config to be unchanged")
			}
		})

		t.Run("reads values from file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			content := "[upstream]\napp_id = \"123\"\n\n[server]\nport = 8080\n"
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				t.Fatal(err)
			}

			runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard)})
			if err := runner.LoadConfig(path); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if runner.config.Upstream.AppID != "123" {
				t.Errorf("expected app_id 123, got %q", runner.config.Upstream.AppID)
			}
			if runner.config.Server.Port != 8080 {
				t.Errorf("expected port 8080, got %d", runner.config.Server.Port)
			}
			if runner.configPath != path {
				t.Errorf("expected configPath %s, got %s", path, runner.configPath)
			}
		})
	})

	t.Run("Output", func(t *testing.T) {
		t.Run("writeJSON", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})
			if err := runner.writeJSON(map[string]int{"a": 1}, false); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if output.String() != "{\"a\":1}\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("write errors are returned", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
			if err := runner.writePlain("x"); err == nil {
				t.Error("expected error")
			}
			if err := runner.writeJSON("x", true); err == nil {
				t.Error("expected error")
			}
		})
	})
}

func TestSearchCommand(t *testing.T) {
	t.Run("prints results and records history", func(t *testing.T) {
		catalog := searchCatalog()
		runner, output := newTestRunner(t, catalog)

		if err := runApp(t, runner, "--region", "fr", "search", "discovery"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(output.String(), "Daft Punk - Discovery") {
			t.Errorf("expected album in output, got:\n%s", output.String())
		}
		if calls := catalog.Calls(); len(calls) != 1 || calls[0] != "search:discovery@fr" {
			t.Errorf("unexpected calls %v", calls)
		}

		lookups, err := runner.history.List(nil)
		if err != nil {
			t.Fatalf("failed to list history: %v", err)
		}
		if len(lookups) != 1 || lookups[0].Operation() != "search" || lookups[0].Region() != "FR" {
			t.Errorf("unexpected history %+v", lookups)
		}
	})

	t.Run("json output without explicit albums", func(t *testing.T) {
		runner, output := newTestRunner(t, searchCatalog())

		if err := runApp(t, runner, "--json", "search", "--explicit=false", "discovery"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var results models.SearchResults
		if err := json.Unmarshal(output.Bytes(), &results); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(results.Albums.Items) != 1 || results.Albums.Items[0].Title != "Discovery" {
			t.Errorf("expected only the clean album, got %+v", results.Albums.Items)
		}
	})

	t.Run("missing query", func(t *testing.T) {
		runner, _ := newTestRunner(t, searchCatalog())
		if err := runApp(t, runner, "search"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("upstream failure", func(t *testing.T) {
		catalog := &tu.MockCatalog{
			SearchFunc: func(ctx context.Context, text string, limit, offset int, region string) (*models.SearchResults, error) {
				return nil, shared.ErrUpstreamUnavailable
			},
		}
		runner, _ := newTestRunner(t, catalog)
		if err := runApp(t, runner, "search", "x"); !errors.Is(err, shared.ErrUpstreamUnavailable) {
			t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
		}
	})
}

func TestStreamCommand(t *testing.T) {
	t.Run("prints url", func(t *testing.T) {
		catalog := &tu.MockCatalog{}
		runner, output := newTestRunner(t, catalog)

		if err := runApp(t, runner, "stream", "--quality", "hires192", "42"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.TrimSpace(output.String()) != "https://files.example.com/42" {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"missing id", []string{"stream"}, shared.ErrMissingArgument},
		{"non numeric id", []string{"stream", "abc"}, shared.ErrInvalidArgument},
		{"zero id", []string{"stream", "0"}, shared.ErrInvalidArgument},
		{"unknown quality", []string{"stream", "--quality", "vinyl", "42"}, shared.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := &tu.MockCatalog{}
			runner, _ := newTestRunner(t, catalog)
			if err := runApp(t, runner, tt.args...); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if len(catalog.Calls()) != 0 {
				t.Errorf("expected no upstream calls, got %v", catalog.Calls())
			}
		})
	}
}

func TestAlbumCommand(t *testing.T) {
	albumCatalog := func() *tu.MockCatalog {
		return &tu.MockCatalog{
			AlbumFunc: func(ctx context.Context, albumID, region string) (*models.Album, error) {
				return sampleAlbum(), nil
			},
		}
	}

	t.Run("prints track listing", func(t *testing.T) {
		runner, output := newTestRunner(t, albumCatalog())
		if err := runApp(t, runner, "album", "0724384960650"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "Album: Discovery") {
			t.Errorf("expected album header, got:\n%s", output.String())
		}
		if !strings.Contains(output.String(), "Aerodynamic") {
			t.Errorf("expected track listing, got:\n%s", output.String())
		}
	})

	t.Run("second lookup is served from cache", func(t *testing.T) {
		catalog := albumCatalog()
		runner, _ := newTestRunner(t, catalog)
		for range 2 {
			if err := runApp(t, runner, "album", "0724384960650"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if n := len(catalog.Calls()); n != 1 {
			t.Errorf("expected 1 upstream call, got %d", n)
		}
	})

	t.Run("csv export", func(t *testing.T) {
		dir := t.TempDir()
		runner, _ := newTestRunner(t, albumCatalog())
		if err := runApp(t, runner, "album", "--export", "csv", "--output", dir, "0724384960650"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "0724384960650_tracks.csv"))
	})

	t.Run("resolve reports failures per track", func(t *testing.T) {
		catalog := albumCatalog()
		catalog.ResolveStreamFunc = func(ctx context.Context, trackID int64, quality models.Quality, region string) (*models.Stream, error) {
			if trackID == 102 {
				return nil, shared.ErrStreamUnavailable
			}
			return &models.Stream{TrackID: trackID, Quality: quality, URL: "https://files.example.com/ok"}, nil
		}
		runner, output := newTestRunner(t, catalog)

		err := runApp(t, runner, "--json", "album", "resolve", "--workers", "2", "--rate", "1000", "0724384960650")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var result struct {
			ResolvedCount int
			FailedCount   int
		}
		if err := json.Unmarshal(output.Bytes(), &result); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if result.ResolvedCount != 1 || result.FailedCount != 1 {
			t.Errorf("expected 1 resolved and 1 failed, got %+v", result)
		}
	})
}

func TestArtistCommands(t *testing.T) {
	t.Run("releases rejects unknown type", func(t *testing.T) {
		catalog := &tu.MockCatalog{}
		runner, _ := newTestRunner(t, catalog)
		if err := runApp(t, runner, "artist", "releases", "--type", "bootleg", "36819"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if len(catalog.Calls()) != 0 {
			t.Error("expected no upstream calls")
		}
	})

	t.Run("releases passes the query through", func(t *testing.T) {
		var got models.ReleasesQuery
		catalog := &tu.MockCatalog{
			ReleasesFunc: func(ctx context.Context, q models.ReleasesQuery, region string) (*models.Page[models.Album], error) {
				got = q
				page := models.NewPage([]models.Album{*sampleAlbum()}, q.Limit, q.Offset, 1)
				return &page, nil
			},
		}
		runner, output := newTestRunner(t, catalog)
		if err := runApp(t, runner, "artist", "releases", "--type", "live", "--limit", "5", "36819"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.ArtistID != "36819" || got.ReleaseType != models.ReleaseLive || got.Limit != 5 {
			t.Errorf("unexpected query %+v", got)
		}
		if !strings.Contains(output.String(), "Discovery") {
			t.Errorf("expected release in output, got:\n%s", output.String())
		}
	})

	t.Run("discography walks all types", func(t *testing.T) {
		catalog := &tu.MockCatalog{}
		runner, _ := newTestRunner(t, catalog)
		if err := runApp(t, runner, "artist", "discography", "36819"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n := len(catalog.Calls()); n != len(models.ReleaseTypes()) {
			t.Errorf("expected one call per release type, got %d", n)
		}
	})
}

func TestHistoryAndCacheCommands(t *testing.T) {
	t.Run("history list and clear", func(t *testing.T) {
		runner, output := newTestRunner(t, searchCatalog())
		for _, q := range []string{"daft", "punk"} {
			if err := runApp(t, runner, "search", q); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		output.Reset()

		if err := runApp(t, runner, "history", "list"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(output.String()), "\n")
		if len(lines) != 2 || !strings.HasSuffix(lines[0], "punk") {
			t.Errorf("expected newest first, got:\n%s", output.String())
		}

		output.Reset()
		if err := runApp(t, runner, "history", "clear"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "Cleared 2 lookups") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("cache clear", func(t *testing.T) {
		catalog := &tu.MockCatalog{
			AlbumFunc: func(ctx context.Context, albumID, region string) (*models.Album, error) {
				return sampleAlbum(), nil
			},
		}
		runner, output := newTestRunner(t, catalog)
		if err := runApp(t, runner, "album", "0724384960650"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output.Reset()

		if err := runApp(t, runner, "cache", "clear"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "Removed 1 cached albums") {
			t.Errorf("unexpected output %q", output.String())
		}
	})
}

func TestSetupToken(t *testing.T) {
	t.Run("stores region credential", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		runner, output := newTestRunner(t, &tu.MockCatalog{})
		curl := `curl 'https://www.example.com/api.json/0.2/album/get?album_id=1' -H 'X-App-Id: 950096963' -H 'X-User-Auth-Token: tok-us'`

		if err := runApp(t, runner, "--config", path, "--region", "us", "setup", "token", "--curl", curl); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "Token stored for US") {
			t.Errorf("unexpected output %q", output.String())
		}

		cfg, err := shared.LoadConfig(path)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}
		if cfg.Upstream.AppID != "950096963" {
			t.Errorf("expected app id to be captured, got %q", cfg.Upstream.AppID)
		}
		if len(cfg.Upstream.Regions) != 1 || cfg.Upstream.Regions[0].Token != "tok-us" {
			t.Errorf("unexpected regions %+v", cfg.Upstream.Regions)
		}
	})

	t.Run("requires exactly one source", func(t *testing.T) {
		runner, _ := newTestRunner(t, &tu.MockCatalog{})
		if err := runApp(t, runner, "setup", "token"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		err := runApp(t, runner, "setup", "token", "--curl", "curl x", "--curl-file", "x.sh")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("capture without token", func(t *testing.T) {
		runner, _ := newTestRunner(t, &tu.MockCatalog{})
		err := runApp(t, runner, "--config", filepath.Join(t.TempDir(), "c.toml"), "setup", "token", "--curl", `curl 'https://www.example.com/' -H 'X-App-Id: 1'`)
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}
