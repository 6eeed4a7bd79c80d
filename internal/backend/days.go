package backend

import (
	"context"
	"log/slog"
	"time"

	"github.com/runnerr0/tvguide/internal/guide"
)

// Day is one calendar day in a location. Start and End are UTC; End is
// the start of the following day.
type Day struct {
	Date  string // yyyy-MM-dd in the day's location
	Start time.Time
	End   time.Time
}

// Days returns tomorrow, today and yesterday relative to now in loc, in
// that order: the most future day comes first so that a fresh day lets
// the caller skip all older ones.
func Days(now time.Time, loc *time.Location) []Day {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	days := make([]Day, 0, 3)
	for _, offset := range []int{1, 0, -1} {
		start := today.AddDate(0, 0, offset)
		days = append(days, Day{
			Date:  start.Format("2006-01-02"),
			Start: start.UTC(),
			End:   start.AddDate(0, 0, 1).UTC(),
		})
	}
	return days
}

// Prober is the part of the store used by the freshness probe.
type Prober interface {
	ProgramExists(ctx context.Context, ch guide.ChannelID, since time.Time) (bool, error)
}

// Fresh reports whether programs of ch already reach the end of day.
func Fresh(ctx context.Context, p Prober, ch guide.ChannelID, day Day) (bool, error) {
	return p.ProgramExists(ctx, ch, day.End)
}

// PendingDays returns the days of ch that still need fetching: the days
// preceding the first fresh one. All probes are evaluated before the
// caller fetches anything, so the data stored for one day cannot mark
// another one fresh within the same call. A failing probe counts as not
// fresh.
func PendingDays(ctx context.Context, p Prober, ch guide.ChannelID, days []Day, log *slog.Logger) []Day {
	if log == nil {
		log = slog.Default()
	}
	for i, day := range days {
		fresh, err := Fresh(ctx, p, ch, day)
		if err != nil {
			log.Warn("freshness probe failed", "channel", ch, "date", day.Date, "error", err)
			continue
		}
		if fresh {
			log.Debug("day already fresh", "channel", ch, "date", day.Date)
			return days[:i]
		}
	}
	return days
}
