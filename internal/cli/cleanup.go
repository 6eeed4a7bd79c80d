package cli

import (
	"context"
	"fmt"
	"time"
)

// Execute implements the go-flags Commander interface for CleanupCommand.
func (c *CleanupCommand) Execute(args []string) error {
	return withApp(c.globals, c.app, func(ctx context.Context, a *app) error {
		return c.run(ctx, a, time.Now())
	})
}

func (c *CleanupCommand) run(ctx context.Context, a *app, now time.Time) error {
	n, err := a.store.Cleanup(ctx, now)
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}

	if jsonOutput(c.globals) {
		return printJSON(map[string]any{
			"deleted_programs": n,
			"retention_days":   a.cfg.Storage.RetentionDays,
			"max_future_days":  a.cfg.Storage.MaxFutureDays,
		})
	}
	fmt.Printf("Deleted %s programs outside the retention window (%s back, %s ahead).\n",
		formatNumber(n),
		formatDurationHuman(a.cfg.Retention()),
		formatDurationHuman(a.cfg.MaxFuture()))
	return nil
}
