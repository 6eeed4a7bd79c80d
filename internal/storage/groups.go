package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/runnerr0/tvguide/internal/guide"
)

// AddGroup inserts g unless a group with the same id exists. It reports
// whether a row was inserted; GroupAdded fires only in that case.
func (s *SQLiteStore) AddGroup(ctx context.Context, g guide.GroupRecord) (bool, error) {
	exists, err := s.GroupExists(ctx, g.ID)
	if err != nil || exists {
		return false, err
	}

	res, err := s.insertGroup.ExecContext(ctx, string(g.ID), g.Name, g.URL)
	if err != nil {
		return false, s.fail("insert group", err, "group", g.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	s.notify().GroupAdded(g.ID)
	return true, nil
}

// GroupExists reports whether a group with id is stored.
func (s *SQLiteStore) GroupExists(ctx context.Context, id guide.GroupID) (bool, error) {
	return s.queryBool(ctx, "group exists", s.groupExists, string(id))
}

// Group returns the group with id, or ErrNotFound.
func (s *SQLiteStore) Group(ctx context.Context, id guide.GroupID) (guide.GroupRecord, error) {
	var g guide.GroupRecord
	var gid string
	err := s.selectGroup.QueryRowContext(ctx, string(id)).Scan(&gid, &g.Name, &g.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return guide.GroupRecord{}, ErrNotFound
	}
	if err != nil {
		return guide.GroupRecord{}, s.fail("select group", err, "group", id)
	}
	g.ID = guide.GroupID(gid)
	return g, nil
}

// GroupCount returns the number of stored groups.
func (s *SQLiteStore) GroupCount(ctx context.Context) (uint, error) {
	return s.queryCount(ctx, "count groups", s.countGroups)
}

// Groups returns every group ordered case-insensitively by name.
func (s *SQLiteStore) Groups(ctx context.Context) ([]guide.GroupRecord, error) {
	rows, err := s.selectGroups.QueryContext(ctx)
	if err != nil {
		return nil, s.fail("select groups", err)
	}
	groups, err := scanGroups(rows)
	if err != nil {
		return nil, s.fail("scan groups", err)
	}
	return groups, nil
}

// ChannelGroups returns the groups containing ch, ordered like Groups.
func (s *SQLiteStore) ChannelGroups(ctx context.Context, ch guide.ChannelID) ([]guide.GroupRecord, error) {
	rows, err := s.selectChannelGroups.QueryContext(ctx, string(ch))
	if err != nil {
		return nil, s.fail("select channel groups", err, "channel", ch)
	}
	groups, err := scanGroups(rows)
	if err != nil {
		return nil, s.fail("scan channel groups", err, "channel", ch)
	}
	return groups, nil
}

func scanGroups(rows *sql.Rows) ([]guide.GroupRecord, error) {
	defer rows.Close()

	var groups []guide.GroupRecord
	for rows.Next() {
		var g guide.GroupRecord
		var id string
		if err := rows.Scan(&id, &g.Name, &g.URL); err != nil {
			return nil, err
		}
		g.ID = guide.GroupID(id)
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
