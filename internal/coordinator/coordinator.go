// Package coordinator runs fetch operations against the active backend
// and publishes their outcome together with the store's change
// notifications.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/runnerr0/tvguide/internal/backend"
	"github.com/runnerr0/tvguide/internal/guide"
	"github.com/runnerr0/tvguide/internal/storage"
)

// Options configures a Coordinator.
type Options struct {
	Logger *slog.Logger
}

// Coordinator owns one backend. Every fetch returns an operation id at
// once and later publishes exactly one EventFetchSucceeded or
// EventFetchFailed carrying that id. Operations of a synchronous backend
// complete before the call returns unless a backend switch is in
// progress; all others run on their own goroutine.
type Coordinator struct {
	store storage.Store
	log   *slog.Logger
	all   sync.WaitGroup

	switchMu sync.Mutex

	mu  sync.RWMutex
	gen *generation

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// generation is one backend activation. Operations run against the
// generation that was current when they started; ready is closed once
// the store has been prepared for the backend.
type generation struct {
	backend backend.Backend
	wg      sync.WaitGroup
	ready   chan struct{}
}

func newGeneration(b backend.Backend) *generation {
	return &generation{backend: b, ready: make(chan struct{})}
}

// New creates a coordinator for b and installs it as the store's
// notifier.
func New(store storage.Store, b backend.Backend, opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	gen := newGeneration(b)
	close(gen.ready)
	c := &Coordinator{
		store: store,
		gen:   gen,
		log:   opts.Logger.With("component", "coordinator"),
		subs:  make(map[int]func(Event)),
	}
	store.SetNotifier(c)
	return c
}

// Backend returns the active backend.
func (c *Coordinator) Backend() backend.Backend {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen.backend
}

// Subscribe registers fn for every event and returns a function removing
// it. fn may be called from any goroutine and must not block.
func (c *Coordinator) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Coordinator) publish(ev Event) {
	c.subMu.Lock()
	fns := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Wait blocks until every started operation published its terminal event.
func (c *Coordinator) Wait() {
	c.all.Wait()
}

// FetchGroups starts fetching the backend's group list.
func (c *Coordinator) FetchGroups(ctx context.Context) string {
	return c.start(ctx, OpFetchGroups, "", func(ctx context.Context, b backend.Backend) (string, error) {
		return "", b.FetchGroups(ctx)
	})
}

// FetchGroup starts fetching the channels of group id.
func (c *Coordinator) FetchGroup(ctx context.Context, id guide.GroupID) string {
	return c.start(ctx, OpFetchGroup, string(id), func(ctx context.Context, b backend.Backend) (string, error) {
		return "", b.FetchGroup(ctx, id)
	})
}

// FetchProgram starts fetching the programs of ch.
func (c *Coordinator) FetchProgram(ctx context.Context, ch guide.ChannelID) string {
	return c.start(ctx, OpFetchProgram, string(ch), func(ctx context.Context, b backend.Backend) (string, error) {
		return "", b.FetchProgram(ctx, ch)
	})
}

// FetchProgramDescription starts fetching the description of program id.
func (c *Coordinator) FetchProgramDescription(ctx context.Context, id guide.ProgramID, force bool) string {
	return c.start(ctx, OpFetchDescription, string(id), func(ctx context.Context, b backend.Backend) (string, error) {
		return "", b.FetchProgramDescription(ctx, id, force)
	})
}

// FetchImage starts downloading url into the image cache. The success
// event's Result is the cached path.
func (c *Coordinator) FetchImage(ctx context.Context, url string) string {
	return c.start(ctx, OpFetchImage, url, func(ctx context.Context, b backend.Backend) (string, error) {
		return b.FetchImage(ctx, url)
	})
}

// FetchFavorites starts FetchProgram for every favorite channel and
// returns the operation ids in favorite order.
func (c *Coordinator) FetchFavorites(ctx context.Context) ([]string, error) {
	favorites, err := c.store.Favorites(ctx)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	ids := make([]string, 0, len(favorites))
	for _, ch := range favorites {
		ids = append(ids, c.FetchProgram(ctx, ch))
	}
	return ids, nil
}

func (c *Coordinator) start(ctx context.Context, op Op, target string, fn func(context.Context, backend.Backend) (string, error)) string {
	id := uuid.NewString()

	c.mu.RLock()
	g := c.gen
	g.wg.Add(1)
	c.all.Add(1)
	c.mu.RUnlock()

	select {
	case <-g.ready:
		if g.backend.Synchronous() {
			c.run(ctx, id, op, target, g, fn)
			return id
		}
		go c.run(ctx, id, op, target, g, fn)
	default:
		go func() {
			<-g.ready
			c.run(ctx, id, op, target, g, fn)
		}()
	}
	return id
}

func (c *Coordinator) run(ctx context.Context, id string, op Op, target string, g *generation, fn func(context.Context, backend.Backend) (string, error)) {
	defer c.all.Done()
	defer g.wg.Done()

	b := g.backend
	log := c.log.With("op", op, "id", id, "backend", b.Kind())
	if target != "" {
		log = log.With("target", target)
	}
	log.Debug("operation started")

	result, err := fn(ctx, b)
	if err != nil {
		ferr := asFetchError(err)
		log.Warn("operation failed", "code", ferr.Code, "error", ferr.Message)
		c.publish(EventFetchFailed{ID: id, Op: op, Target: target, Err: ferr})
		return
	}
	log.Debug("operation succeeded")
	c.publish(EventFetchSucceeded{ID: id, Op: op, Target: target, Result: result})
}

func asFetchError(err error) *backend.Error {
	var be *backend.Error
	if errors.As(backend.FromTransport(err), &be) {
		return be
	}
	return &backend.Error{Code: backend.CodeNetwork, Message: err.Error()}
}

// SwitchBackend makes b the active backend. When b's kind differs from
// the one recorded in the store, the store is reset first. Operations
// started before the switch finish against the previous backend before
// the reset; operations started during the switch wait for it and then
// run against b.
func (c *Coordinator) SwitchBackend(ctx context.Context, b backend.Backend) error {
	c.switchMu.Lock()
	defer c.switchMu.Unlock()

	next := newGeneration(b)
	defer close(next.ready)

	c.mu.Lock()
	prev := c.gen
	c.gen = next
	c.mu.Unlock()

	prev.wg.Wait()

	recorded, err := c.store.Setting(ctx, storage.SettingBackend)
	if err != nil {
		return fmt.Errorf("read active backend: %w", err)
	}
	if recorded != string(b.Kind()) {
		c.log.Info("backend changed, resetting store", "from", recorded, "to", b.Kind())
		if err := c.store.Reset(ctx); err != nil {
			return fmt.Errorf("reset store: %w", err)
		}
		if err := c.store.SetSetting(ctx, storage.SettingBackend, string(b.Kind())); err != nil {
			return fmt.Errorf("record backend: %w", err)
		}
	}
	return nil
}

// EnsureBackend resets the store when it was filled by another backend
// than the active one.
func (c *Coordinator) EnsureBackend(ctx context.Context) error {
	return c.SwitchBackend(ctx, c.Backend())
}

// Store notifications.

func (c *Coordinator) GroupAdded(id guide.GroupID) { c.publish(EventGroupAdded{Group: id}) }

func (c *Coordinator) ChannelAdded(id guide.ChannelID) { c.publish(EventChannelAdded{Channel: id}) }

func (c *Coordinator) ChannelDetailChanged(id guide.ChannelID, favorite bool) {
	c.publish(EventChannelChanged{Channel: id, Favorite: favorite})
}

func (c *Coordinator) FavoritesUpdated() { c.publish(EventFavoritesUpdated{}) }

func (c *Coordinator) ProgramsAdded(ch guide.ChannelID, n int) {
	c.publish(EventProgramsAdded{Channel: ch, Count: n})
}

func (c *Coordinator) ProgramUpdated(id guide.ProgramID) { c.publish(EventProgramUpdated{Program: id}) }

func (c *Coordinator) StoreReset() { c.publish(EventStoreReset{}) }

var _ storage.Notifier = (*Coordinator)(nil)
