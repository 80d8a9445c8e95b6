package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/qcat/internal/models"
	"github.com/desertthunder/qcat/internal/repositories"
	"github.com/desertthunder/qcat/internal/services"
	"github.com/desertthunder/qcat/internal/shared"
	"github.com/desertthunder/qcat/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The catalog and database are opened on first use so that setup commands work before
// credentials exist.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    services.Catalog
	raw        *services.CatalogService
	db         *sql.DB
	history    *repositories.LookupRepository
	cache      *repositories.AlbumCache
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    services.Catalog // Overrides the catalog built from Config
	DB         *sql.DB          // Overrides the database opened from Config; must be migrated
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

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	if raw, ok := opts.Catalog.(*services.CatalogService); ok {
		r.raw = raw
	}
	if opts.DB != nil {
		r.useDatabase(opts.DB)
	}
	return r
}

// SetLogger replaces the runner's logger, e.g. to redirect output away from the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// LoadConfig replaces the configuration with the file at path. A missing file keeps the defaults.
func (r *Runner) LoadConfig(path string) error {
	r.configPath = path
	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return err
	}
	r.config = config
	return shared.SetLogLevel(r.logger, config.Log.Level)
}

// Catalog returns the gateway, building it from the configuration on first use.
func (r *Runner) Catalog() (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	svc, err := services.NewCatalogService(services.CatalogOpts{
		Config:     r.config,
		HTTPClient: r.httpClient,
		Logger:     r.logger,
	})
	if err != nil {
		return nil, err
	}

	r.catalog = svc
	r.raw = svc
	return svc, nil
}

// Database opens and migrates the configured database on first use.
func (r *Runner) Database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.Path, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.useDatabase(db)
	return db, nil
}

func (r *Runner) useDatabase(db *sql.DB) {
	r.db = db
	r.history = repositories.NewLookupRepository(db)
	r.cache = repositories.NewAlbumCache(db, r.config.Database.CacheTTL.Duration)
}

// History returns the lookup history, or nil when the database cannot be opened.
func (r *Runner) History() *repositories.LookupRepository {
	if _, err := r.Database(); err != nil {
		r.logger.Warn("lookup history disabled", "error", err)
		return nil
	}
	return r.history
}

// Engine builds a [tasks.CatalogEngine] backed by the album cache when the database is available.
func (r *Runner) Engine() (*tasks.CatalogEngine, error) {
	catalog, err := r.Catalog()
	if err != nil {
		return nil, err
	}

	var cache tasks.AlbumCacher
	if _, err := r.Database(); err != nil {
		r.logger.Warn("album cache disabled", "error", err)
	} else {
		cache = r.cache
	}
	return tasks.NewCatalogEngine(catalog, cache, r.logger), nil
}

// Close releases the database connection if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// record appends a finished lookup to the history. Failures are logged and otherwise ignored.
func (r *Runner) record(operation, query, region string, hint models.EntityHint, results int) {
	history := r.History()
	if history == nil {
		return
	}
	if _, err := history.Record(operation, query, region, hint, results); err != nil {
		r.logger.Warn("failed to record lookup", "operation", operation, "error", err)
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
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

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// Before loads the configuration named by --config and applies --log-level.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := r.LoadConfig(cmd.String("config")); err != nil {
		return ctx, err
	}
	if level := cmd.String("log-level"); level != "" {
		if err := shared.SetLogLevel(r.logger, level); err != nil {
			return ctx, err
		}
	}
	return ctx, nil
}

// After releases resources opened by the command.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	return r.Close()
}
