package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/runnerr0/tvguide/internal/coordinator"
	"github.com/runnerr0/tvguide/internal/guide"
)

// fetchResult is the outcome of one fetch operation.
type fetchResult struct {
	ID     string `json:"id"`
	Op     string `json:"op"`
	Target string `json:"target,omitempty"`
	OK     bool   `json:"ok"`
	Result string `json:"result,omitempty"`
	Code   int    `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
}

// runFetch starts operations through the coordinator, waits for all of
// them and reports one line per operation. It fails if any operation
// failed.
func runFetch(ctx context.Context, a *app, globals *GlobalFlags, start func(ctx context.Context) ([]string, error)) error {
	var (
		mu      sync.Mutex
		results = make(map[string]fetchResult)
	)
	unsubscribe := a.coord.Subscribe(func(ev coordinator.Event) {
		var r fetchResult
		switch e := ev.(type) {
		case coordinator.EventFetchSucceeded:
			r = fetchResult{ID: e.ID, Op: string(e.Op), Target: e.Target, OK: true, Result: e.Result}
		case coordinator.EventFetchFailed:
			r = fetchResult{ID: e.ID, Op: string(e.Op), Target: e.Target, Code: e.Err.Code, Error: e.Err.Message}
		default:
			return
		}
		mu.Lock()
		results[r.ID] = r
		mu.Unlock()
	})
	defer unsubscribe()

	ids, err := start(ctx)
	if err != nil {
		return err
	}
	a.coord.Wait()

	mu.Lock()
	ordered := make([]fetchResult, 0, len(ids))
	failed := 0
	for _, id := range ids {
		r := results[id]
		if !r.OK {
			failed++
		}
		ordered = append(ordered, r)
	}
	mu.Unlock()

	if jsonOutput(globals) {
		if err := printJSON(ordered); err != nil {
			return err
		}
	} else {
		for _, r := range ordered {
			printFetchResult(r)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d fetches failed", failed, len(ids))
	}
	return nil
}

func printFetchResult(r fetchResult) {
	target := r.Target
	if target == "" {
		target = "-"
	}
	switch {
	case r.OK && r.Result != "":
		fmt.Printf("ok      %s %s -> %s\n", r.Op, target, r.Result)
	case r.OK:
		fmt.Printf("ok      %s %s\n", r.Op, target)
	default:
		fmt.Printf("failed  %s %s: %s (code %d)\n", r.Op, target, r.Error, r.Code)
	}
}

// Execute implements the go-flags Commander interface for FetchGroupsCommand.
func (c *FetchGroupsCommand) Execute(args []string) error {
	return withApp(c.globals, c.app, func(ctx context.Context, a *app) error {
		return runFetch(ctx, a, c.globals, func(ctx context.Context) ([]string, error) {
			return []string{a.coord.FetchGroups(ctx)}, nil
		})
	})
}

// Execute implements the go-flags Commander interface for FetchGroupCommand.
func (c *FetchGroupCommand) Execute(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("fetch group requires at least one group ID")
	}
	return withApp(c.globals, c.app, func(ctx context.Context, a *app) error {
		return runFetch(ctx, a, c.globals, func(ctx context.Context) ([]string, error) {
			ids := make([]string, 0, len(args))
			for _, g := range args {
				ids = append(ids, a.coord.FetchGroup(ctx, guide.GroupID(g)))
			}
			return ids, nil
		})
	})
}

// Execute implements the go-flags Commander interface for FetchProgramsCommand.
func (c *FetchProgramsCommand) Execute(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("fetch programs requires at least one channel ID")
	}
	return withApp(c.globals, c.app, func(ctx context.Context, a *app) error {
		return runFetch(ctx, a, c.globals, func(ctx context.Context) ([]string, error) {
			ids := make([]string, 0, len(args))
			for _, ch := range guide.ChannelIDs(args) {
				ids = append(ids, a.coord.FetchProgram(ctx, ch))
			}
			return ids, nil
		})
	})
}

// Execute implements the go-flags Commander interface for FetchFavoritesCommand.
func (c *FetchFavoritesCommand) Execute(args []string) error {
	return withApp(c.globals, c.app, func(ctx context.Context, a *app) error {
		return runFetch(ctx, a, c.globals, a.coord.FetchFavorites)
	})
}

// Execute implements the go-flags Commander interface for FetchDescriptionCommand.
func (c *FetchDescriptionCommand) Execute(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("fetch description requires at least one program ID")
	}
	return withApp(c.globals, c.app, func(ctx context.Context, a *app) error {
		return runFetch(ctx, a, c.globals, func(ctx context.Context) ([]string, error) {
			ids := make([]string, 0, len(args))
			for _, p := range args {
				ids = append(ids, a.coord.FetchProgramDescription(ctx, guide.ProgramID(p), c.Force))
			}
			return ids, nil
		})
	})
}

// Execute implements the go-flags Commander interface for FetchImageCommand.
func (c *FetchImageCommand) Execute(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("fetch image requires at least one URL")
	}
	return withApp(c.globals, c.app, func(ctx context.Context, a *app) error {
		return runFetch(ctx, a, c.globals, func(ctx context.Context) ([]string, error) {
			ids := make([]string, 0, len(args))
			for _, u := range args {
				ids = append(ids, a.coord.FetchImage(ctx, u))
			}
			return ids, nil
		})
	})
}
