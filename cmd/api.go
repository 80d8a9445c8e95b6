package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/qcat/internal/services"
	"github.com/desertthunder/qcat/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes a direct GET request to an upstream endpoint with the configured credentials.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	endpoint := cmd.StringArg("endpoint")
	if endpoint == "" {
		return fmt.Errorf("%w: endpoint", shared.ErrMissingArgument)
	}

	params, err := services.ParseParams(cmd.StringSlice("param"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	if _, err := r.Catalog(); err != nil {
		return err
	}
	if r.raw == nil {
		return fmt.Errorf("%w: raw access needs the upstream catalog", shared.ErrServiceUnavailable)
	}

	r.logger.Info("GET request", "endpoint", endpoint, "region", cmd.String("region"))

	resp, err := r.raw.Get(ctx, endpoint, params, cmd.String("region"))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Warn("upstream returned an error status", "status", resp.StatusCode)
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, cmd.Bool("pretty"))
	}

	if err := r.writeBytes(resp.Body); err != nil {
		return err
	}
	return r.writePlain("\n")
}
