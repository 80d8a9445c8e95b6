package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"
)

// HistoryList prints recent lookups, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.Database(); err != nil {
		return err
	}

	lookups, err := r.history.List(map[string]any{
		"operation": cmd.String("operation"),
		"region":    cmd.String("region"),
		"limit":     cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		type entry struct {
			ID        string `json:"id"`
			Sequence  int    `json:"sequence"`
			Operation string `json:"operation"`
			Query     string `json:"query"`
			Hint      string `json:"entity_hint,omitempty"`
			Region    string `json:"region,omitempty"`
			Results   int    `json:"result_count"`
			CreatedAt string `json:"created_at"`
		}
		entries := make([]entry, len(lookups))
		for i, l := range lookups {
			entries[i] = entry{
				ID:        l.ID(),
				Sequence:  l.Sequence(),
				Operation: l.Operation(),
				Query:     l.Query(),
				Hint:      string(l.EntityHint()),
				Region:    l.Region(),
				Results:   l.ResultCount(),
				CreatedAt: l.CreatedAt().Format(time.RFC3339),
			}
		}
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}

	if len(lookups) == 0 {
		return r.writePlain("No lookups recorded.\n")
	}

	for _, l := range lookups {
		region := l.Region()
		if region == "" {
			region = "-"
		}
		r.writePlain("%4d  %-13s %-3s %4d  %s\n", l.Sequence(), l.Operation(), region, l.ResultCount(), l.Query())
	}
	return nil
}

// HistoryClear removes every recorded lookup.
func (r *Runner) HistoryClear(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.Database(); err != nil {
		return err
	}

	n, err := r.history.Clear()
	if err != nil {
		return err
	}
	return r.writePlain("✓ Cleared %d lookups\n", n)
}

// CachePurge removes album cache entries older than the configured TTL.
func (r *Runner) CachePurge(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.Database(); err != nil {
		return err
	}

	n, err := r.cache.Purge()
	if err != nil {
		return err
	}
	r.logger.Info("purged album cache", "removed", n, "ttl", r.config.Database.CacheTTL.Duration)
	return r.writePlain("✓ Purged %d expired albums\n", n)
}

// CacheClear empties the album cache.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.Database(); err != nil {
		return err
	}

	n, err := r.cache.Clear()
	if err != nil {
		return err
	}
	return r.writePlain("✓ Removed %d cached albums\n", n)
}
