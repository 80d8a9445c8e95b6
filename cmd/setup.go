package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/qcat/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the example configuration to the config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Configuration written to %s\n", path)
	r.writePlain("Fill in upstream.app_id, upstream.secret and at least one token before searching.\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	if _, err := r.Database(); err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
	return nil
}

// SetupToken extracts the app id and user token from a cURL capture and stores them in the config file.
//
// Without --region the token joins the unpartitioned pool.
func (r *Runner) SetupToken(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}
	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	var (
		capture *shared.CurlCapture
		err     error
	)
	if curlFile != "" {
		capture, err = shared.ParseCurlFile(curlFile)
	} else {
		capture, err = shared.ParseCurlCommand([]byte(curlCmd))
	}
	if err != nil {
		return fmt.Errorf("failed to parse cURL command: %w", err)
	}

	cred, err := capture.Credential()
	if err != nil {
		return err
	}

	if cred.AppID != "" && cred.AppID != r.config.Upstream.AppID {
		if r.config.Upstream.AppID != "" {
			r.logger.Warn("replacing app id", "old", r.config.Upstream.AppID, "new", cred.AppID)
		}
		r.config.Upstream.AppID = cred.AppID
	}

	region := shared.NormalizeRegion(cmd.String("region"))
	r.config.Upstream.SetRegionToken(region, cred.Token)

	path := cmd.String("config")
	if err := shared.SaveConfig(path, r.config); err != nil {
		return err
	}

	r.logger.Info("credential stored", "region", region, "path", path)
	if region == "" {
		region = "pool"
	}
	return r.writePlain("✓ Token stored for %s in %s\n", region, path)
}

// SetupCheck validates the configuration and reports which regions and transport are configured.
func (r *Runner) SetupCheck(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	if _, err := r.Catalog(); err != nil {
		return err
	}

	r.writePlainHeader("Configuration")
	if r.raw != nil {
		regions := r.raw.Regions()
		if len(regions) == 0 {
			r.writePlain("Regions:   (unpartitioned token pool)\n")
		} else {
			r.writePlain("Regions:   %v (default %s)\n", regions, regions[0])
		}
	}
	r.writePlain("Base URL:  %s\n", r.config.Upstream.BaseURL)
	r.writePlain("Database:  %s\n", r.config.Database.Path)
	r.writePlain("Server:    %s\n", r.config.Server.Address())
	return nil
}
