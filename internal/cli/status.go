package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/tvguide/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string `json:"version"`
	Backend           string `json:"backend"`
	DatabasePath      string `json:"database_path"`
	DatabaseSizeBytes int64  `json:"database_size_bytes"`
	Groups            int64  `json:"groups"`
	Channels          int64  `json:"channels"`
	Favorites         int64  `json:"favorites"`
	Programs          int64  `json:"programs"`
	OldestStart       string `json:"oldest_start,omitempty"`
	NewestStop        string `json:"newest_stop,omitempty"`
	RetentionDays     int    `json:"retention_days"`
	ImageCache        string `json:"image_cache"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	return withApp(c.globals, c.app, c.run)
}

func (c *StatusCommand) run(ctx context.Context, a *app) error {
	stats, err := a.store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	out := statusJSON{
		Version:           c.version,
		Backend:           stats.ActiveBackend,
		DatabasePath:      a.dbPath,
		DatabaseSizeBytes: getDatabaseSize(a.store.DB()),
		Groups:            stats.Groups,
		Channels:          stats.Channels,
		Favorites:         stats.Favorites,
		Programs:          stats.Programs,
		RetentionDays:     a.cfg.Storage.RetentionDays,
		ImageCache:        "file",
	}
	if a.cfg.Images.RedisURL != "" {
		out.ImageCache = "redis"
	}
	if !stats.OldestStart.IsZero() {
		out.OldestStart = stats.OldestStart.Format(time.RFC3339)
		out.NewestStop = stats.NewestStop.Format(time.RFC3339)
	}

	if jsonOutput(c.globals) {
		return printJSON(out)
	}
	c.printHuman(out, stats)
	return nil
}

func (c *StatusCommand) printHuman(out statusJSON, stats *storage.Stats) {
	fmt.Println("TV Guide Status")
	fmt.Println("===============")
	fmt.Printf("Version:       %s\n", out.Version)
	backend := out.Backend
	if backend == "" {
		backend = "(none)"
	}
	fmt.Printf("Backend:       %s\n", backend)
	fmt.Printf("Database:      %s (%s)\n", out.DatabasePath, formatBytes(out.DatabaseSizeBytes))
	fmt.Printf("Groups:        %s\n", formatNumber(out.Groups))
	fmt.Printf("Channels:      %s\n", formatNumber(out.Channels))
	fmt.Printf("Favorites:     %s\n", formatNumber(out.Favorites))
	fmt.Printf("Programs:      %s\n", formatNumber(out.Programs))
	if stats.Programs > 0 {
		fmt.Printf("Oldest start:  %s\n", formatTime(stats.OldestStart))
		fmt.Printf("Newest stop:   %s\n", formatTime(stats.NewestStop))
	}
	fmt.Printf("Retention:     %s\n", formatDurationHuman(time.Duration(out.RetentionDays)*24*time.Hour))
	fmt.Printf("Image cache:   %s\n", out.ImageCache)
}
