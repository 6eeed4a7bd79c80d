package storage

import (
	"context"
	"database/sql"
	"time"
)

// Cleanup deletes programs that stopped more than Retention before now or
// stop more than MaxFuture after now, together with their categories. It
// returns the number of programs deleted.
func (s *SQLiteStore) Cleanup(ctx context.Context, now time.Time) (int64, error) {
	oldest := now.Add(-s.opts.Retention).Unix()
	latest := now.Add(s.opts.MaxFuture).Unix()

	var deleted int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM program_categories WHERE program IN (
				SELECT id FROM programs WHERE stop < ? OR stop > ?
			)`, oldest, latest); err != nil {
			return s.fail("cleanup categories", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM programs WHERE stop < ? OR stop > ?`, oldest, latest)
		if err != nil {
			return s.fail("cleanup programs", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
