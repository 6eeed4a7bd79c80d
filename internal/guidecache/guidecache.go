// Package guidecache keeps presentation-ready lists of groups, channels
// and programs. Lists load lazily from the store and are invalidated by
// coordinator events.
package guidecache

import (
	"context"
	"slices"
	"sync"

	"github.com/runnerr0/tvguide/internal/coordinator"
	"github.com/runnerr0/tvguide/internal/guide"
)

// Reader is the part of the store the caches read from.
type Reader interface {
	Groups(ctx context.Context) ([]guide.GroupRecord, error)
	Channels(ctx context.Context, onlyFavorites bool) ([]guide.ChannelRecord, error)
	Programs(ctx context.Context, ch guide.ChannelID) ([]guide.ProgramRecord, error)
}

// list is a lazily loaded slice. Get returns copies.
type list[T any] struct {
	load func(ctx context.Context) ([]T, error)

	mu    sync.Mutex
	valid bool
	items []T
}

// Get returns the cached items, loading them first if needed.
func (l *list[T]) Get(ctx context.Context) ([]T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.valid {
		return slices.Clone(l.items), nil
	}
	return l.reloadLocked(ctx)
}

// Reload discards the cached items and loads them again.
func (l *list[T]) Reload(ctx context.Context) ([]T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reloadLocked(ctx)
}

func (l *list[T]) reloadLocked(ctx context.Context) ([]T, error) {
	items, err := l.load(ctx)
	if err != nil {
		l.valid = false
		return nil, err
	}
	l.items = items
	l.valid = true
	return slices.Clone(items), nil
}

// Invalidate makes the next Get load from the store.
func (l *list[T]) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.valid = false
	l.items = nil
}

// Valid reports whether the next Get is served from memory.
func (l *list[T]) Valid() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.valid
}

// GroupList caches all groups.
type GroupList struct {
	list[guide.GroupRecord]
}

// ChannelList caches all channels, or the favorites in favorite order.
type ChannelList struct {
	list[guide.ChannelRecord]
	onlyFavorites bool
}

// OnlyFavorites reports whether the list holds the favorites.
func (c *ChannelList) OnlyFavorites() bool { return c.onlyFavorites }

// ProgramList caches the programs of one channel.
type ProgramList struct {
	list[guide.ProgramRecord]
	channel guide.ChannelID
}

// Channel returns the channel whose programs are cached.
func (p *ProgramList) Channel() guide.ChannelID { return p.channel }

// NewGroupList creates an empty group list over r.
func NewGroupList(r Reader) *GroupList {
	return &GroupList{list[guide.GroupRecord]{load: r.Groups}}
}

// NewChannelList creates an empty channel list over r.
func NewChannelList(r Reader, onlyFavorites bool) *ChannelList {
	return &ChannelList{
		list: list[guide.ChannelRecord]{load: func(ctx context.Context) ([]guide.ChannelRecord, error) {
			return r.Channels(ctx, onlyFavorites)
		}},
		onlyFavorites: onlyFavorites,
	}
}

// NewProgramList creates an empty program list of ch over r.
func NewProgramList(r Reader, ch guide.ChannelID) *ProgramList {
	return &ProgramList{
		list: list[guide.ProgramRecord]{load: func(ctx context.Context) ([]guide.ProgramRecord, error) {
			return r.Programs(ctx, ch)
		}},
		channel: ch,
	}
}

// Caches holds one list per view.
type Caches struct {
	Groups    *GroupList
	Channels  *ChannelList
	Favorites *ChannelList

	r        Reader
	mu       sync.Mutex
	programs map[guide.ChannelID]*ProgramList
}

// New creates empty caches over r.
func New(r Reader) *Caches {
	return &Caches{
		Groups:    NewGroupList(r),
		Channels:  NewChannelList(r, false),
		Favorites: NewChannelList(r, true),
		r:         r,
		programs:  make(map[guide.ChannelID]*ProgramList),
	}
}

// Programs returns the program list of ch, creating it on first use.
func (c *Caches) Programs(ch guide.ChannelID) *ProgramList {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.programs[ch]
	if !ok {
		p = NewProgramList(c.r, ch)
		c.programs[ch] = p
	}
	return p
}

func (c *Caches) programLists() []*ProgramList {
	c.mu.Lock()
	defer c.mu.Unlock()
	lists := make([]*ProgramList, 0, len(c.programs))
	for _, p := range c.programs {
		lists = append(lists, p)
	}
	return lists
}

// InvalidateAll drops every cached list.
func (c *Caches) InvalidateAll() {
	c.Groups.Invalidate()
	c.Channels.Invalidate()
	c.Favorites.Invalidate()
	for _, p := range c.programLists() {
		p.Invalidate()
	}
}

// Subscriber delivers coordinator events.
type Subscriber interface {
	Subscribe(fn func(coordinator.Event)) (unsubscribe func())
}

// Bind invalidates the affected lists on every event of s.
func (c *Caches) Bind(s Subscriber) (unbind func()) {
	return s.Subscribe(c.Handle)
}

// Handle invalidates the lists ev affects.
func (c *Caches) Handle(ev coordinator.Event) {
	switch e := ev.(type) {
	case coordinator.EventGroupAdded:
		c.Groups.Invalidate()
	case coordinator.EventChannelAdded:
		// A new channel may resolve a favorite that had no channel row.
		c.Channels.Invalidate()
		c.Favorites.Invalidate()
	case coordinator.EventChannelChanged, coordinator.EventFavoritesUpdated:
		c.Favorites.Invalidate()
	case coordinator.EventProgramsAdded:
		c.mu.Lock()
		p, ok := c.programs[e.Channel]
		c.mu.Unlock()
		if ok {
			p.Invalidate()
		}
	case coordinator.EventProgramUpdated:
		for _, p := range c.programLists() {
			p.Invalidate()
		}
	case coordinator.EventStoreReset:
		c.InvalidateAll()
	}
}
