package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/runnerr0/tvguide/internal/guide"
)

// AddChannel stores c as a member of group. Channels and groups are
// many-to-many: a channel listed by several groups keeps one row and gains
// one group_channels row per group, so the association is recorded even
// when the channel already exists. The channel row itself is only
// inserted once and a later fetch never overwrites it. The returned bool
// reports whether the channel row was inserted; ChannelAdded fires only
// in that case.
func (s *SQLiteStore) AddChannel(ctx context.Context, c guide.ChannelRecord, group guide.GroupID) (bool, error) {
	var inserted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		joinID := string(group) + "|" + string(c.ID)
		if _, err := tx.StmtContext(ctx, s.insertGroupChannel).ExecContext(ctx, joinID, string(group), string(c.ID)); err != nil {
			return s.fail("insert group channel", err, "group", group, "channel", c.ID)
		}

		var exists bool
		if err := tx.StmtContext(ctx, s.channelExists).QueryRowContext(ctx, string(c.ID)).Scan(&exists); err != nil {
			return s.fail("channel exists", err, "channel", c.ID)
		}
		if exists {
			return nil
		}

		res, err := tx.StmtContext(ctx, s.insertChannel).ExecContext(ctx,
			string(c.ID), c.Name, normalizeURL(c.URL), c.LogoURL)
		if err != nil {
			return s.fail("insert channel", err, "channel", c.ID)
		}
		n, _ := res.RowsAffected()
		inserted = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}

	if inserted {
		s.notify().ChannelAdded(c.ID)
	}
	return inserted, nil
}

// ChannelExists reports whether a channel with id is stored.
func (s *SQLiteStore) ChannelExists(ctx context.Context, id guide.ChannelID) (bool, error) {
	return s.queryBool(ctx, "channel exists", s.channelExists, string(id))
}

// ChannelCount returns the number of stored channels.
func (s *SQLiteStore) ChannelCount(ctx context.Context) (uint, error) {
	return s.queryCount(ctx, "count channels", s.countChannels)
}

// Channel returns the channel with id. A missing channel yields the zero
// record and ErrNotFound.
func (s *SQLiteStore) Channel(ctx context.Context, id guide.ChannelID) (guide.ChannelRecord, error) {
	c, err := scanChannel(s.selectChannel.QueryRowContext(ctx, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		s.log.Warn("channel not found", "channel", id)
		return guide.ChannelRecord{}, ErrNotFound
	}
	if err != nil {
		return guide.ChannelRecord{}, s.fail("select channel", err, "channel", id)
	}
	return c, nil
}

// Channels returns all channels ordered case-insensitively by name, or,
// with onlyFavorites, the favorite channels in favorite order. Favorites
// without a channel row are left out.
func (s *SQLiteStore) Channels(ctx context.Context, onlyFavorites bool) ([]guide.ChannelRecord, error) {
	if onlyFavorites {
		return s.favoriteChannels(ctx)
	}

	rows, err := s.selectChannels.QueryContext(ctx)
	if err != nil {
		return nil, s.fail("select channels", err)
	}
	defer rows.Close()

	var channels []guide.ChannelRecord
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, s.fail("scan channel", err)
		}
		channels = append(channels, c)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("select channels", err)
	}
	return channels, nil
}

func (s *SQLiteStore) favoriteChannels(ctx context.Context) ([]guide.ChannelRecord, error) {
	var channels []guide.ChannelRecord
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ids, err := s.favoritesTx(ctx, tx)
		if err != nil {
			return err
		}

		lookup := tx.StmtContext(ctx, s.selectChannel)
		for _, id := range ids {
			c, err := scanChannel(lookup.QueryRowContext(ctx, string(id)))
			if errors.Is(err, sql.ErrNoRows) {
				s.log.Debug("favorite without channel row", "channel", id)
				continue
			}
			if err != nil {
				return s.fail("select channel", err, "channel", id)
			}
			channels = append(channels, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return channels, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner) (guide.ChannelRecord, error) {
	var c guide.ChannelRecord
	var id string
	if err := row.Scan(&id, &c.Name, &c.URL, &c.LogoURL); err != nil {
		return guide.ChannelRecord{}, err
	}
	c.ID = guide.ChannelID(id)
	return c, nil
}
