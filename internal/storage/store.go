package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/tvguide/internal/guide"
)

// Store defines the guide's persistence operations. Query results are
// copies; callers never hold references into storage.
type Store interface {
	AddGroup(ctx context.Context, g guide.GroupRecord) (bool, error)
	GroupExists(ctx context.Context, id guide.GroupID) (bool, error)
	Group(ctx context.Context, id guide.GroupID) (guide.GroupRecord, error)
	GroupCount(ctx context.Context) (uint, error)
	Groups(ctx context.Context) ([]guide.GroupRecord, error)
	ChannelGroups(ctx context.Context, ch guide.ChannelID) ([]guide.GroupRecord, error)

	AddChannel(ctx context.Context, c guide.ChannelRecord, group guide.GroupID) (bool, error)
	ChannelExists(ctx context.Context, id guide.ChannelID) (bool, error)
	ChannelCount(ctx context.Context) (uint, error)
	Channel(ctx context.Context, id guide.ChannelID) (guide.ChannelRecord, error)
	Channels(ctx context.Context, onlyFavorites bool) ([]guide.ChannelRecord, error)

	AddFavorite(ctx context.Context, ch guide.ChannelID) error
	RemoveFavorite(ctx context.Context, ch guide.ChannelID) error
	SortFavorites(ctx context.Context, order []guide.ChannelID) error
	ClearFavorites(ctx context.Context) error
	FavoriteCount(ctx context.Context) (uint, error)
	Favorites(ctx context.Context) ([]guide.ChannelID, error)
	IsFavorite(ctx context.Context, ch guide.ChannelID) (bool, error)

	AddProgram(ctx context.Context, p guide.ProgramRecord) error
	AddPrograms(ctx context.Context, ps []guide.ProgramRecord) error
	UpdateProgramDescription(ctx context.Context, id guide.ProgramID, text string) error
	ProgramExists(ctx context.Context, ch guide.ChannelID, since time.Time) (bool, error)
	ProgramCount(ctx context.Context, ch guide.ChannelID) (uint, error)
	Program(ctx context.Context, id guide.ProgramID) (guide.ProgramRecord, error)
	Programs(ctx context.Context, ch guide.ChannelID) ([]guide.ProgramRecord, error)
	AllPrograms(ctx context.Context) (map[guide.ChannelID][]guide.ProgramRecord, error)

	Cleanup(ctx context.Context, now time.Time) (int64, error)
	Reset(ctx context.Context) error
	Setting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	Stats(ctx context.Context) (*Stats, error)
	SetNotifier(n Notifier)
	Close() error
}

// SettingBackend records which backend populated the cache.
const SettingBackend = "backend"

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	opts Options
	log  *slog.Logger

	mu       sync.RWMutex
	notifier Notifier

	// Prepared statements
	insertGroup         *sql.Stmt
	groupExists         *sql.Stmt
	selectGroup         *sql.Stmt
	countGroups         *sql.Stmt
	selectGroups        *sql.Stmt
	selectChannelGroups *sql.Stmt

	insertChannel      *sql.Stmt
	insertGroupChannel *sql.Stmt
	channelExists      *sql.Stmt
	countChannels      *sql.Stmt
	selectChannel      *sql.Stmt
	selectChannels     *sql.Stmt

	insertFavorite  *sql.Stmt
	countFavorites  *sql.Stmt
	selectFavorites *sql.Stmt
	isFavorite      *sql.Stmt
	deleteFavorites *sql.Stmt

	insertProgram     *sql.Stmt
	insertCategory    *sql.Stmt
	selectProgram     *sql.Stmt
	selectPrograms    *sql.Stmt
	selectAllPrograms *sql.Stmt
	selectCategories  *sql.Stmt
	updateDescription *sql.Stmt
	programExists     *sql.Stmt
	countPrograms     *sql.Stmt

	getSetting *sql.Stmt
	putSetting *sql.Stmt
}

// NewSQLiteStore creates a SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB, opts Options) (*SQLiteStore, error) {
	opts.defaults()
	s := &SQLiteStore{
		db:       db,
		opts:     opts,
		log:      opts.Logger.With("component", "storage"),
		notifier: NopNotifier{},
	}

	if err := s.prepareStatements(); err != nil {
		s.Close()
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

// Open opens (creating if needed) the database file at path, applies
// migrations, prepares the store and purges programs outside the
// retention window. The returned store owns the *sql.DB.
func Open(ctx context.Context, path string, opts Options) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Single writer; also keeps ":memory:" on one connection.
	db.SetMaxOpenConns(1)

	if err := NewMigrationRunner(db).Run(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s, err := NewSQLiteStore(db, opts)
	if err != nil {
		db.Close()
		return nil, err
	}

	n, err := s.Cleanup(ctx, s.opts.Now())
	if err != nil {
		s.CloseDB()
		return nil, fmt.Errorf("startup cleanup: %w", err)
	}
	if n > 0 {
		s.log.Info("purged programs outside retention window", "count", n)
	}

	return s, nil
}

// DB returns the underlying database handle.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) prepareStatements() error {
	stmts := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.insertGroup, `INSERT OR IGNORE INTO guide_groups (id, name, url) VALUES (?, ?, ?)`},
		{&s.groupExists, `SELECT EXISTS(SELECT 1 FROM guide_groups WHERE id = ?)`},
		{&s.selectGroup, `SELECT id, name, url FROM guide_groups WHERE id = ?`},
		{&s.countGroups, `SELECT COUNT(*) FROM guide_groups`},
		{&s.selectGroups, `SELECT id, name, url FROM guide_groups ORDER BY name COLLATE NOCASE, id`},
		{&s.selectChannelGroups, `
			SELECT g.id, g.name, g.url
			FROM group_channels gc
			JOIN guide_groups g ON g.id = gc.group_id
			WHERE gc.channel_id = ?
			ORDER BY g.name COLLATE NOCASE, g.id`},

		{&s.insertChannel, `INSERT OR IGNORE INTO channels (id, name, url, image) VALUES (?, ?, ?, ?)`},
		{&s.insertGroupChannel, `INSERT OR IGNORE INTO group_channels (id, group_id, channel_id) VALUES (?, ?, ?)`},
		{&s.channelExists, `SELECT EXISTS(SELECT 1 FROM channels WHERE id = ?)`},
		{&s.countChannels, `SELECT COUNT(*) FROM channels`},
		{&s.selectChannel, `SELECT id, name, url, image FROM channels WHERE id = ?`},
		{&s.selectChannels, `SELECT id, name, url, image FROM channels ORDER BY name COLLATE NOCASE, id`},

		{&s.insertFavorite, `INSERT INTO favorites (position, channel) VALUES (?, ?)`},
		{&s.countFavorites, `SELECT COUNT(*) FROM favorites`},
		{&s.selectFavorites, `SELECT channel FROM favorites ORDER BY position`},
		{&s.isFavorite, `SELECT EXISTS(SELECT 1 FROM favorites WHERE channel = ?)`},
		{&s.deleteFavorites, `DELETE FROM favorites`},

		{&s.insertProgram, `
			INSERT OR IGNORE INTO programs
				(id, url, channel, start, stop, title, subtitle, description, description_fetched)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`},
		{&s.insertCategory, `INSERT OR IGNORE INTO program_categories (program, category, seq) VALUES (?, ?, ?)`},
		{&s.selectProgram, `
			SELECT id, url, channel, start, stop, title, subtitle, description, description_fetched
			FROM programs WHERE id = ?`},
		{&s.selectPrograms, `
			SELECT id, url, channel, start, stop, title, subtitle, description, description_fetched
			FROM programs WHERE channel = ? ORDER BY start`},
		{&s.selectAllPrograms, `
			SELECT id, url, channel, start, stop, title, subtitle, description, description_fetched
			FROM programs ORDER BY channel, start`},
		{&s.selectCategories, `SELECT category FROM program_categories WHERE program = ? ORDER BY seq, rowid`},
		{&s.updateDescription, `UPDATE programs SET description = ?, description_fetched = 1 WHERE id = ?`},
		{&s.programExists, `SELECT EXISTS(SELECT 1 FROM programs WHERE channel = ? AND stop >= ?)`},
		{&s.countPrograms, `SELECT COUNT(*) FROM programs WHERE channel = ?`},

		{&s.getSetting, `SELECT value FROM settings WHERE key = ?`},
		{&s.putSetting, `
			INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`},
	}

	for _, st := range stmts {
		stmt, err := s.db.Prepare(st.query)
		if err != nil {
			return err
		}
		*st.dst = stmt
	}
	return nil
}

// SetNotifier installs the receiver of change notifications. A nil
// notifier disables notifications.
func (s *SQLiteStore) SetNotifier(n Notifier) {
	if n == nil {
		n = NopNotifier{}
	}
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

func (s *SQLiteStore) notify() Notifier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notifier
}

// fail logs a statement failure and returns it wrapped with the operation name.
func (s *SQLiteStore) fail(op string, err error, attrs ...any) error {
	s.log.Error("statement failed", append([]any{"op", op, "error", err}, attrs...)...)
	return fmt.Errorf("%s: %w", op, err)
}

// withTx runs fn inside a transaction. Statements prepared on the store
// must be rebound with tx.StmtContext inside fn.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) queryCount(ctx context.Context, op string, stmt *sql.Stmt, args ...any) (uint, error) {
	var n int64
	if err := stmt.QueryRowContext(ctx, args...).Scan(&n); err != nil {
		return 0, s.fail(op, err)
	}
	return uint(n), nil
}

func (s *SQLiteStore) queryBool(ctx context.Context, op string, stmt *sql.Stmt, args ...any) (bool, error) {
	var b bool
	if err := stmt.QueryRowContext(ctx, args...).Scan(&b); err != nil {
		return false, s.fail(op, err, "args", args)
	}
	return b, nil
}

// Setting returns the value stored under key, or "" if unset.
func (s *SQLiteStore) Setting(ctx context.Context, key string) (string, error) {
	var v string
	err := s.getSetting.QueryRowContext(ctx, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", s.fail("get setting", err, "key", key)
	}
	return v, nil
}

// SetSetting stores value under key.
func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	if _, err := s.putSetting.ExecContext(ctx, key, value); err != nil {
		return s.fail("put setting", err, "key", key)
	}
	return nil
}

// Reset drops and recreates the whole schema. The prepared statements are
// kept: SQLite recompiles them against the recreated tables, so concurrent
// callers never see a closed statement.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	if err := NewMigrationRunner(s.db).Reset(ctx); err != nil {
		return s.fail("reset schema", err)
	}
	s.notify().StoreReset()
	return nil
}

// Stats returns aggregate counts about the database.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	counts := []struct {
		dst   *int64
		query string
	}{
		{&stats.Groups, "SELECT COUNT(*) FROM guide_groups"},
		{&stats.Channels, "SELECT COUNT(*) FROM channels"},
		{&stats.Favorites, "SELECT COUNT(*) FROM favorites"},
		{&stats.Programs, "SELECT COUNT(*) FROM programs"},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return nil, s.fail("stats", err, "query", c.query)
		}
	}

	if stats.Programs > 0 {
		var oldest, newest int64
		err := s.db.QueryRowContext(ctx, "SELECT MIN(start), MAX(stop) FROM programs").Scan(&oldest, &newest)
		if err != nil {
			return nil, s.fail("stats", err)
		}
		stats.OldestStart = time.Unix(oldest, 0).UTC()
		stats.NewestStop = time.Unix(newest, 0).UTC()
	}

	backend, err := s.Setting(ctx, SettingBackend)
	if err != nil {
		return nil, err
	}
	stats.ActiveBackend = backend

	return stats, nil
}

func (s *SQLiteStore) closeStatements() {
	stmts := []*sql.Stmt{
		s.insertGroup, s.groupExists, s.selectGroup, s.countGroups, s.selectGroups, s.selectChannelGroups,
		s.insertChannel, s.insertGroupChannel, s.channelExists, s.countChannels, s.selectChannel, s.selectChannels,
		s.insertFavorite, s.countFavorites, s.selectFavorites, s.isFavorite, s.deleteFavorites,
		s.insertProgram, s.insertCategory, s.selectProgram, s.selectPrograms, s.selectAllPrograms,
		s.selectCategories, s.updateDescription, s.programExists, s.countPrograms,
		s.getSetting, s.putSetting,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility (see CloseDB).
func (s *SQLiteStore) Close() error {
	s.closeStatements()
	return nil
}

// CloseDB releases the statements and closes the database handle.
func (s *SQLiteStore) CloseDB() error {
	s.closeStatements()
	return s.db.Close()
}
