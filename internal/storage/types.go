package storage

import (
	"errors"
	"log/slog"
	"time"

	"github.com/runnerr0/tvguide/internal/guide"
)

var (
	// ErrNotFound is returned by point lookups and updates that match no row.
	ErrNotFound = errors.New("not found")

	// ErrNotPermutation is returned by SortFavorites when the new order is
	// not exactly a reordering of the current favorites.
	ErrNotPermutation = errors.New("favorite order is not a permutation of the current favorites")
)

// Stats holds aggregate counts about the guide database.
type Stats struct {
	Groups        int64
	Channels      int64
	Favorites     int64
	Programs      int64
	OldestStart   time.Time
	NewestStop    time.Time
	ActiveBackend string
}

// Notifier receives change notifications after the triggering write
// committed. Implementations must not call back into the store
// synchronously from a notification if they hold locks the caller needs.
type Notifier interface {
	GroupAdded(id guide.GroupID)
	ChannelAdded(id guide.ChannelID)
	ChannelDetailChanged(id guide.ChannelID, favorite bool)
	FavoritesUpdated()
	ProgramsAdded(ch guide.ChannelID, n int)
	ProgramUpdated(id guide.ProgramID)
	StoreReset()
}

// NopNotifier ignores every notification. Embed it to implement only a
// subset of Notifier.
type NopNotifier struct{}

func (NopNotifier) GroupAdded(guide.GroupID)                   {}
func (NopNotifier) ChannelAdded(guide.ChannelID)               {}
func (NopNotifier) ChannelDetailChanged(guide.ChannelID, bool) {}
func (NopNotifier) FavoritesUpdated()                          {}
func (NopNotifier) ProgramsAdded(guide.ChannelID, int)         {}
func (NopNotifier) ProgramUpdated(guide.ProgramID)             {}
func (NopNotifier) StoreReset()                                {}

// Options configures a SQLiteStore.
type Options struct {
	// Retention is how long programs are kept after they stopped.
	// Default: 7 days.
	Retention time.Duration
	// MaxFuture discards programs stopping further ahead than this.
	// Default: 30 days.
	MaxFuture time.Duration
	// Now returns the current time. Default: time.Now.
	Now func() time.Time
	// Logger receives statement failures. Default: slog.Default().
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Retention <= 0 {
		o.Retention = 7 * 24 * time.Hour
	}
	if o.MaxFuture <= 0 {
		o.MaxFuture = 30 * 24 * time.Hour
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}
