package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/qcat/internal/formatter"
	"github.com/desertthunder/qcat/internal/models"
	"github.com/desertthunder/qcat/internal/services"
	"github.com/desertthunder/qcat/internal/shared"
	"github.com/desertthunder/qcat/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Search runs a free text or permalink search and prints the three result pages.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}
	region := cmd.String("region")

	catalog, err := r.Catalog()
	if err != nil {
		return err
	}

	r.logger.Debug("searching catalog", "query", query, "region", region)

	results, err := catalog.Search(ctx, query, cmd.Int("limit"), cmd.Int("offset"), region)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	results = services.FilterExplicit(results, cmd.Bool("explicit"))

	r.record("search", query, region, results.SwitchTo,
		len(results.Albums.Items)+len(results.Tracks.Items)+len(results.Artists.Items))

	if cmd.Bool("json") {
		return r.writeJSON(results, cmd.Bool("pretty"))
	}
	return r.writeBytes(formatter.SearchToText(results))
}

// Artist prints an artist profile with its discography grouped by release type.
func (r *Runner) Artist(ctx context.Context, cmd *cli.Command) error {
	artistID := strings.TrimSpace(cmd.StringArg("id"))
	if artistID == "" {
		return fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}
	region := cmd.String("region")

	catalog, err := r.Catalog()
	if err != nil {
		return err
	}

	profile, err := catalog.GetArtistProfile(ctx, artistID, region)
	if err != nil {
		return fmt.Errorf("failed to fetch artist: %w", err)
	}

	count := 0
	for _, group := range profile.Releases {
		count += len(group.Items)
	}
	r.record("artist", artistID, region, models.HintArtist, count)

	if cmd.Bool("json") {
		return r.writeJSON(profile, cmd.Bool("pretty"))
	}
	return r.writeBytes(formatter.ArtistToText(profile))
}

// Releases prints one page of an artist's releases of a single type.
func (r *Runner) Releases(ctx context.Context, cmd *cli.Command) error {
	artistID := strings.TrimSpace(cmd.StringArg("id"))
	if artistID == "" {
		return fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}
	region := cmd.String("region")

	releaseType, err := models.ParseReleaseType(cmd.String("type"))
	if err != nil {
		return err
	}

	q := models.DefaultReleasesQuery(artistID)
	q.ReleaseType = releaseType
	q.Limit = cmd.Int("limit")
	q.Offset = cmd.Int("offset")
	q.TrackSize = cmd.Int("track-size")

	catalog, err := r.Catalog()
	if err != nil {
		return err
	}

	page, err := catalog.GetArtistReleases(ctx, q, region)
	if err != nil {
		return fmt.Errorf("failed to fetch releases: %w", err)
	}
	filtered := services.FilterExplicitAlbums(*page, cmd.Bool("explicit"))
	page = &filtered

	r.record("releases", artistID, region, models.HintArtist, len(page.Items))

	if cmd.Bool("json") {
		return r.writeJSON(page, cmd.Bool("pretty"))
	}
	return r.writeBytes(formatter.ReleasesToText(page))
}

// Album prints an album with its track listing, or writes it to disk with --export.
func (r *Runner) Album(ctx context.Context, cmd *cli.Command) error {
	albumID := strings.TrimSpace(cmd.StringArg("id"))
	if albumID == "" {
		return fmt.Errorf("%w: album id", shared.ErrMissingArgument)
	}
	region := cmd.String("region")

	engine, err := r.Engine()
	if err != nil {
		return err
	}

	album, cached, err := engine.FetchAlbum(ctx, albumID, region)
	if err != nil {
		return fmt.Errorf("failed to fetch album: %w", err)
	}
	r.logger.Debug("fetched album", "id", album.ID, "cached", cached)

	tracks := 0
	if album.Tracks != nil {
		tracks = len(album.Tracks.Items)
	}
	r.record("album", albumID, region, models.HintAlbum, tracks)

	if format := cmd.String("export"); format != "" {
		files, err := formatter.WriteAlbumExport(album, format, cmd.String("output"), cmd.Bool("cover"), r.output)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		for _, f := range files {
			r.writePlain("✓ %s\n", f)
		}
		return nil
	}

	if cmd.Bool("json") {
		return r.writeJSON(album, cmd.Bool("pretty"))
	}

	text, err := formatter.AlbumToText(album)
	if err != nil {
		return err
	}
	return r.writeBytes(text)
}

// Stream resolves a signed, time-limited file URL for one track.
func (r *Runner) Stream(ctx context.Context, cmd *cli.Command) error {
	trackID, err := parseTrackID(cmd.StringArg("id"))
	if err != nil {
		return err
	}
	quality, err := models.ParseQuality(cmd.String("quality"))
	if err != nil {
		return err
	}
	region := cmd.String("region")

	catalog, err := r.Catalog()
	if err != nil {
		return err
	}

	stream, err := catalog.ResolveStream(ctx, trackID, quality, region)
	if err != nil {
		return fmt.Errorf("failed to resolve stream: %w", err)
	}
	r.record("stream", strconv.FormatInt(trackID, 10), region, models.HintTrack, 1)

	if cmd.Bool("open") {
		if err := shared.OpenURL(stream.URL); err != nil {
			r.logger.Warn("could not open stream", "error", err)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(stream, cmd.Bool("pretty"))
	}
	return r.writePlain("%s\n", stream.URL)
}

// ResolveAlbum resolves a stream URL for every track of an album with region fallback.
func (r *Runner) ResolveAlbum(ctx context.Context, cmd *cli.Command) error {
	albumID := strings.TrimSpace(cmd.StringArg("id"))
	if albumID == "" {
		return fmt.Errorf("%w: album id", shared.ErrMissingArgument)
	}
	quality, err := models.ParseQuality(cmd.String("quality"))
	if err != nil {
		return err
	}

	regions := cmd.StringSlice("fallback")
	if region := cmd.String("region"); region != "" || len(regions) == 0 {
		regions = append([]string{region}, regions...)
	}

	engine, err := r.Engine()
	if err != nil {
		return err
	}

	workers := cmd.Int("workers")
	if workers <= 0 {
		workers = r.config.Tasks.Workers
	}
	rateLimit := cmd.Float("rate")
	if rateLimit <= 0 {
		rateLimit = r.config.Tasks.RateLimit
	}

	progress := make(chan tasks.ProgressUpdate, 32)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}()

	result, err := engine.ResolveAlbum(ctx, progress, albumID, tasks.ResolveOpts{
		Quality:    quality,
		Regions:    regions,
		NumWorkers: workers,
		RateLimit:  rateLimit,
	})
	close(progress)
	<-done
	if err != nil && result == nil {
		return fmt.Errorf("failed to resolve album: %w", err)
	}

	r.record("resolve-album", albumID, regions[0], models.HintAlbum, result.ResolvedCount)

	if cmd.Bool("json") {
		if werr := r.writeJSON(result, cmd.Bool("pretty")); werr != nil {
			return werr
		}
	} else if werr := r.writeBytes(formatter.StreamsToText(result)); werr != nil {
		return werr
	}
	return err
}

// Discography walks every page of an artist's releases and prints them grouped by type.
func (r *Runner) Discography(ctx context.Context, cmd *cli.Command) error {
	artistID := strings.TrimSpace(cmd.StringArg("id"))
	if artistID == "" {
		return fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}
	region := cmd.String("region")

	var types []models.ReleaseType
	for _, s := range cmd.StringSlice("type") {
		rt, err := models.ParseReleaseType(s)
		if err != nil {
			return err
		}
		types = append(types, rt)
	}

	engine, err := r.Engine()
	if err != nil {
		return err
	}

	result, err := engine.FetchDiscography(ctx, nil, artistID, region, tasks.DiscographyOpts{
		ReleaseTypes: types,
		PageSize:     cmd.Int("page-size"),
		MaxPages:     cmd.Int("max-pages"),
	})
	if err != nil {
		return fmt.Errorf("failed to fetch discography: %w", err)
	}

	for _, e := range result.Errors {
		r.logger.Warn("release listing stopped early", "type", e.ReleaseType, "offset", e.Offset, "error", e.Error)
	}
	r.record("discography", artistID, region, models.HintArtist, result.Count())

	if cmd.Bool("json") {
		return r.writeJSON(result.Releases, cmd.Bool("pretty"))
	}

	for _, rt := range models.ReleaseTypes() {
		albums, ok := result.Releases[rt]
		if !ok {
			continue
		}
		r.writePlainHeader(fmt.Sprintf("%s (%d)", rt, len(albums)))
		page := models.NewPage(albums, len(albums), 0, len(albums))
		if err := r.writeBytes(formatter.ReleasesToText(&page)); err != nil {
			return err
		}
	}
	return nil
}

func parseTrackID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: track id %q must be a positive integer", shared.ErrInvalidArgument, s)
	}
	return id, nil
}
