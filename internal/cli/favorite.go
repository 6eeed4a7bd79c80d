package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/runnerr0/tvguide/internal/guide"
	"github.com/runnerr0/tvguide/internal/storage"
)

// Execute implements the go-flags Commander interface for FavoriteAddCommand.
func (c *FavoriteAddCommand) Execute(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("favorite add requires at least one channel ID")
	}
	return withApp(c.globals, c.app, func(ctx context.Context, a *app) error {
		for _, ch := range guide.ChannelIDs(args) {
			ok, err := a.store.ChannelExists(ctx, ch)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("unknown channel %q", ch)
			}
			if err := a.store.AddFavorite(ctx, ch); err != nil {
				return fmt.Errorf("add favorite %s: %w", ch, err)
			}
		}
		return printFavorites(ctx, a, c.globals)
	})
}

// Execute implements the go-flags Commander interface for FavoriteRemoveCommand.
func (c *FavoriteRemoveCommand) Execute(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("favorite remove requires at least one channel ID")
	}
	return withApp(c.globals, c.app, func(ctx context.Context, a *app) error {
		for _, ch := range guide.ChannelIDs(args) {
			if err := a.store.RemoveFavorite(ctx, ch); err != nil {
				return fmt.Errorf("remove favorite %s: %w", ch, err)
			}
		}
		return printFavorites(ctx, a, c.globals)
	})
}

// Execute implements the go-flags Commander interface for FavoriteSortCommand.
func (c *FavoriteSortCommand) Execute(args []string) error {
	return withApp(c.globals, c.app, func(ctx context.Context, a *app) error {
		err := a.store.SortFavorites(ctx, guide.ChannelIDs(args))
		if errors.Is(err, storage.ErrNotPermutation) {
			return fmt.Errorf("sort favorites: the new order must list every current favorite exactly once")
		}
		if err != nil {
			return fmt.Errorf("sort favorites: %w", err)
		}
		return printFavorites(ctx, a, c.globals)
	})
}

// Execute implements the go-flags Commander interface for FavoriteClearCommand.
func (c *FavoriteClearCommand) Execute(args []string) error {
	return withApp(c.globals, c.app, func(ctx context.Context, a *app) error {
		if err := a.store.ClearFavorites(ctx); err != nil {
			return fmt.Errorf("clear favorites: %w", err)
		}
		return printFavorites(ctx, a, c.globals)
	})
}

// Execute implements the go-flags Commander interface for FavoriteListCommand.
func (c *FavoriteListCommand) Execute(args []string) error {
	return withApp(c.globals, c.app, func(ctx context.Context, a *app) error {
		return printFavorites(ctx, a, c.globals)
	})
}

// printFavorites prints the favorite channel ids in order.
func printFavorites(ctx context.Context, a *app, globals *GlobalFlags) error {
	favorites, err := a.store.Favorites(ctx)
	if err != nil {
		return fmt.Errorf("list favorites: %w", err)
	}
	if jsonOutput(globals) {
		if favorites == nil {
			favorites = []guide.ChannelID{}
		}
		return printJSON(favorites)
	}
	if len(favorites) == 0 {
		fmt.Println("No favorites.")
		return nil
	}
	for i, ch := range favorites {
		fmt.Printf("%3d  %s\n", i+1, ch)
	}
	return nil
}
