package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/runnerr0/tvguide/internal/guide"
)

var errAlreadyFavorite = errors.New("already a favorite")

// AddFavorite appends ch to the end of the favorite list. Adding a channel
// that is already a favorite is a no-op.
func (s *SQLiteStore) AddFavorite(ctx context.Context, ch guide.ChannelID) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var fav bool
		if err := tx.StmtContext(ctx, s.isFavorite).QueryRowContext(ctx, string(ch)).Scan(&fav); err != nil {
			return s.fail("is favorite", err, "channel", ch)
		}
		if fav {
			return errAlreadyFavorite
		}

		var n int64
		if err := tx.StmtContext(ctx, s.countFavorites).QueryRowContext(ctx).Scan(&n); err != nil {
			return s.fail("count favorites", err)
		}
		if _, err := tx.StmtContext(ctx, s.insertFavorite).ExecContext(ctx, n+1, string(ch)); err != nil {
			return s.fail("insert favorite", err, "channel", ch, "position", n+1)
		}
		return nil
	})
	if errors.Is(err, errAlreadyFavorite) {
		return nil
	}
	if err != nil {
		return err
	}

	s.notify().ChannelDetailChanged(ch, true)
	return nil
}

// RemoveFavorite drops ch from the favorite list. The remaining favorites
// are rewritten with contiguous positions 1..n in their previous order.
func (s *SQLiteStore) RemoveFavorite(ctx context.Context, ch guide.ChannelID) error {
	var removed bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ids, err := s.favoritesTx(ctx, tx)
		if err != nil {
			return err
		}

		keep := make([]guide.ChannelID, 0, len(ids))
		for _, id := range ids {
			if id == ch {
				removed = true
				continue
			}
			keep = append(keep, id)
		}
		if !removed {
			return nil
		}
		return s.rewriteFavoritesTx(ctx, tx, keep)
	})
	if err != nil {
		return err
	}

	if removed {
		s.notify().ChannelDetailChanged(ch, false)
	}
	return nil
}

// SortFavorites replaces the favorite order with order. order must contain
// exactly the current favorites; anything else returns ErrNotPermutation
// and leaves the list untouched. A single FavoritesUpdated notification is
// sent.
func (s *SQLiteStore) SortFavorites(ctx context.Context, order []guide.ChannelID) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ids, err := s.favoritesTx(ctx, tx)
		if err != nil {
			return err
		}
		if !isPermutation(ids, order) {
			return ErrNotPermutation
		}
		return s.rewriteFavoritesTx(ctx, tx, order)
	})
	if err != nil {
		return err
	}

	s.notify().FavoritesUpdated()
	return nil
}

// ClearFavorites removes every favorite, notifying each previously
// favorited channel.
func (s *SQLiteStore) ClearFavorites(ctx context.Context) error {
	var cleared []guide.ChannelID
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ids, err := s.favoritesTx(ctx, tx)
		if err != nil {
			return err
		}
		if _, err := tx.StmtContext(ctx, s.deleteFavorites).ExecContext(ctx); err != nil {
			return s.fail("delete favorites", err)
		}
		cleared = ids
		return nil
	})
	if err != nil {
		return err
	}

	n := s.notify()
	for _, id := range cleared {
		n.ChannelDetailChanged(id, false)
	}
	return nil
}

// FavoriteCount returns the number of favorites.
func (s *SQLiteStore) FavoriteCount(ctx context.Context) (uint, error) {
	return s.queryCount(ctx, "count favorites", s.countFavorites)
}

// Favorites returns the favorite channel ids ordered by position.
func (s *SQLiteStore) Favorites(ctx context.Context) ([]guide.ChannelID, error) {
	rows, err := s.selectFavorites.QueryContext(ctx)
	if err != nil {
		return nil, s.fail("select favorites", err)
	}
	ids, err := scanChannelIDs(rows)
	if err != nil {
		return nil, s.fail("scan favorites", err)
	}
	return ids, nil
}

// IsFavorite reports whether ch is a favorite.
func (s *SQLiteStore) IsFavorite(ctx context.Context, ch guide.ChannelID) (bool, error) {
	return s.queryBool(ctx, "is favorite", s.isFavorite, string(ch))
}

func (s *SQLiteStore) favoritesTx(ctx context.Context, tx *sql.Tx) ([]guide.ChannelID, error) {
	rows, err := tx.StmtContext(ctx, s.selectFavorites).QueryContext(ctx)
	if err != nil {
		return nil, s.fail("select favorites", err)
	}
	ids, err := scanChannelIDs(rows)
	if err != nil {
		return nil, s.fail("scan favorites", err)
	}
	return ids, nil
}

func (s *SQLiteStore) rewriteFavoritesTx(ctx context.Context, tx *sql.Tx, ids []guide.ChannelID) error {
	if _, err := tx.StmtContext(ctx, s.deleteFavorites).ExecContext(ctx); err != nil {
		return s.fail("delete favorites", err)
	}
	insert := tx.StmtContext(ctx, s.insertFavorite)
	for i, id := range ids {
		if _, err := insert.ExecContext(ctx, i+1, string(id)); err != nil {
			return s.fail("insert favorite", err, "channel", id, "position", i+1)
		}
	}
	return nil
}

func scanChannelIDs(rows *sql.Rows) ([]guide.ChannelID, error) {
	defer rows.Close()

	var ids []guide.ChannelID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, guide.ChannelID(id))
	}
	return ids, rows.Err()
}

// isPermutation reports whether order holds exactly the ids of current,
// each once.
func isPermutation(current, order []guide.ChannelID) bool {
	if len(current) != len(order) {
		return false
	}
	want := make(map[guide.ChannelID]bool, len(current))
	for _, id := range current {
		want[id] = true
	}
	for _, id := range order {
		if !want[id] {
			return false
		}
		delete(want, id)
	}
	return len(want) == 0
}
