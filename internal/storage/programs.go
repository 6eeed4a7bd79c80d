package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/runnerr0/tvguide/internal/guide"
)

// AddProgram stores p; see AddPrograms.
func (s *SQLiteStore) AddProgram(ctx context.Context, p guide.ProgramRecord) error {
	return s.AddPrograms(ctx, []guide.ProgramRecord{p})
}

// AddPrograms stores ps in one transaction. Programs are insert-or-ignore
// by id; an empty id is derived from channel and start. Categories are
// inserted for existing programs too, without duplicates. A failing row is
// logged and skipped: the other rows are still committed and the row
// errors are returned joined.
func (s *SQLiteStore) AddPrograms(ctx context.Context, ps []guide.ProgramRecord) error {
	if len(ps) == 0 {
		return nil
	}

	added := make(map[guide.ChannelID]int)
	var order []guide.ChannelID
	var rowErrs []error

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		insert := tx.StmtContext(ctx, s.insertProgram)
		category := tx.StmtContext(ctx, s.insertCategory)

		for _, p := range ps {
			if p.ChannelID.IsZero() || p.Start.IsZero() || p.Stop.IsZero() {
				err := fmt.Errorf("program %q: channel, start and stop are required", p.ID)
				s.log.Warn("skip invalid program", "program", p.ID, "channel", p.ChannelID)
				rowErrs = append(rowErrs, err)
				continue
			}
			if p.ID.IsZero() {
				p.ID = guide.NewProgramID(p.ChannelID, p.Start)
			}

			res, err := insert.ExecContext(ctx,
				string(p.ID), p.URL, string(p.ChannelID),
				p.Start.Unix(), p.Stop.Unix(),
				p.Title, p.Subtitle, p.Description, p.DescriptionFetched)
			if err != nil {
				rowErrs = append(rowErrs, s.fail("insert program", err, "program", p.ID))
				continue
			}

			for i, c := range p.Categories {
				if _, err := category.ExecContext(ctx, string(p.ID), c, i); err != nil {
					rowErrs = append(rowErrs, s.fail("insert category", err, "program", p.ID, "category", c))
				}
			}

			if n, _ := res.RowsAffected(); n > 0 {
				if _, seen := added[p.ChannelID]; !seen {
					order = append(order, p.ChannelID)
				}
				added[p.ChannelID]++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	n := s.notify()
	for _, ch := range order {
		n.ProgramsAdded(ch, added[ch])
	}
	return errors.Join(rowErrs...)
}

// UpdateProgramDescription sets the description of program id and marks
// it fetched. It is the only in-place change made to a stored program.
func (s *SQLiteStore) UpdateProgramDescription(ctx context.Context, id guide.ProgramID, text string) error {
	res, err := s.updateDescription.ExecContext(ctx, text, string(id))
	if err != nil {
		return s.fail("update description", err, "program", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	s.notify().ProgramUpdated(id)
	return nil
}

// ProgramExists reports whether ch has a program stopping at or after
// since. Backends use it as the freshness probe for a day.
func (s *SQLiteStore) ProgramExists(ctx context.Context, ch guide.ChannelID, since time.Time) (bool, error) {
	return s.queryBool(ctx, "program exists", s.programExists, string(ch), since.Unix())
}

// ProgramCount returns the number of programs stored for ch.
func (s *SQLiteStore) ProgramCount(ctx context.Context, ch guide.ChannelID) (uint, error) {
	return s.queryCount(ctx, "count programs", s.countPrograms, string(ch))
}

// Program returns the program with id, including its categories.
func (s *SQLiteStore) Program(ctx context.Context, id guide.ProgramID) (guide.ProgramRecord, error) {
	p, err := scanProgram(s.selectProgram.QueryRowContext(ctx, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return guide.ProgramRecord{}, ErrNotFound
	}
	if err != nil {
		return guide.ProgramRecord{}, s.fail("select program", err, "program", id)
	}

	p.Categories, err = s.categories(ctx, p.ID)
	if err != nil {
		return guide.ProgramRecord{}, err
	}
	return p, nil
}

// Programs returns the programs of ch ordered by start.
func (s *SQLiteStore) Programs(ctx context.Context, ch guide.ChannelID) ([]guide.ProgramRecord, error) {
	rows, err := s.selectPrograms.QueryContext(ctx, string(ch))
	if err != nil {
		return nil, s.fail("select programs", err, "channel", ch)
	}
	programs, err := scanPrograms(rows)
	if err != nil {
		return nil, s.fail("scan programs", err, "channel", ch)
	}
	if err := s.attachCategories(ctx, programs); err != nil {
		return nil, err
	}
	return programs, nil
}

// AllPrograms returns every program grouped by channel, each list ordered
// by start.
func (s *SQLiteStore) AllPrograms(ctx context.Context) (map[guide.ChannelID][]guide.ProgramRecord, error) {
	rows, err := s.selectAllPrograms.QueryContext(ctx)
	if err != nil {
		return nil, s.fail("select all programs", err)
	}
	programs, err := scanPrograms(rows)
	if err != nil {
		return nil, s.fail("scan all programs", err)
	}
	if err := s.attachCategories(ctx, programs); err != nil {
		return nil, err
	}

	byChannel := make(map[guide.ChannelID][]guide.ProgramRecord)
	for _, p := range programs {
		byChannel[p.ChannelID] = append(byChannel[p.ChannelID], p)
	}
	return byChannel, nil
}

// attachCategories runs one category query per program. The program rows
// must already be closed: the store uses a single connection.
func (s *SQLiteStore) attachCategories(ctx context.Context, programs []guide.ProgramRecord) error {
	for i := range programs {
		cats, err := s.categories(ctx, programs[i].ID)
		if err != nil {
			return err
		}
		programs[i].Categories = cats
	}
	return nil
}

func (s *SQLiteStore) categories(ctx context.Context, id guide.ProgramID) ([]string, error) {
	rows, err := s.selectCategories.QueryContext(ctx, string(id))
	if err != nil {
		return nil, s.fail("select categories", err, "program", id)
	}
	defer rows.Close()

	var cats []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, s.fail("scan category", err, "program", id)
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("select categories", err, "program", id)
	}
	return cats, nil
}

func scanPrograms(rows *sql.Rows) ([]guide.ProgramRecord, error) {
	defer rows.Close()

	var programs []guide.ProgramRecord
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		programs = append(programs, p)
	}
	return programs, rows.Err()
}

func scanProgram(row rowScanner) (guide.ProgramRecord, error) {
	var (
		p           guide.ProgramRecord
		id, channel string
		start, stop int64
	)
	err := row.Scan(&id, &p.URL, &channel, &start, &stop,
		&p.Title, &p.Subtitle, &p.Description, &p.DescriptionFetched)
	if err != nil {
		return guide.ProgramRecord{}, err
	}
	p.ID = guide.ProgramID(id)
	p.ChannelID = guide.ChannelID(channel)
	p.Start = time.Unix(start, 0).UTC()
	p.Stop = time.Unix(stop, 0).UTC()
	return p, nil
}
