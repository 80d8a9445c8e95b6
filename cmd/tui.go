package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/qcat/internal/models"
	"github.com/desertthunder/qcat/internal/shared"
	"github.com/desertthunder/qcat/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive catalog browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/qcat-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	catalog, err := r.Catalog()
	if err != nil {
		return err
	}
	engine, err := r.Engine()
	if err != nil {
		return err
	}

	quality, err := models.ParseQuality(cmd.String("quality"))
	if err != nil {
		return err
	}

	region := cmd.String("region")
	model := ui.NewModel(ctx, catalog, engine, ui.Options{
		Region:        region,
		Regions:       append([]string{region}, cmd.StringSlice("fallback")...),
		Quality:       quality,
		Limit:         cmd.Int("limit"),
		AllowExplicit: cmd.Bool("explicit"),
		Workers:       r.config.Tasks.Workers,
		RateLimit:     r.config.Tasks.RateLimit,
	})

	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
