package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"marketflow/internal/ports"
)

const schema = `CREATE TABLE IF NOT EXISTS seen_keys (
	scope      TEXT    NOT NULL,
	key        TEXT    NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (scope, key)
)`

// DB wraps the sqlite handle shared by all seen-key scopes.
type DB struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the store at path. A corrupted or unopenable file
// fails open to an in-memory store: the worst case is re-delivering old
// items, never a crash.
func Open(path string, logger *slog.Logger) *DB {
	db, err := open(path)
	if err != nil {
		if logger != nil {
			logger.Warn("seen store unusable, continuing with empty in-memory store", "path", path, "error", err)
		}
		db, err = open(":memory:")
		if err != nil {
			db = nil
		}
	}
	return &DB{db: db, logger: logger}
}

func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: serializes writes and keeps the :memory: fallback on a
	// single database instead of one per pooled connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close releases the underlying handle.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Scope returns a seen store for one alert family (news, calendar reminders,
// calendar results). Each scope deduplicates independently.
func (d *DB) Scope(name string, retentionCap int) *SeenStore {
	return &SeenStore{
		db:     d.db,
		scope:  name,
		cap:    retentionCap,
		logger: d.logger,
	}
}

// SeenStore tracks delivered identity keys for one scope, bounded by a
// retention cap with oldest-first eviction.
type SeenStore struct {
	db     *sql.DB
	scope  string
	cap    int
	logger *slog.Logger
}

var _ ports.SeenStore = (*SeenStore)(nil)

// IsSeen reports whether key was already committed. Storage trouble reads as
// "not seen"; duplicate delivery beats a crash.
func (s *SeenStore) IsSeen(ctx context.Context, key string) bool {
	if s.db == nil {
		return false
	}

	var one int
	err := sq.Select("1").
		From("seen_keys").
		Where(sq.Eq{"scope": s.scope, "key": key}).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		s.warn("seen lookup failed", "key", key, "error", err)
		return false
	}
	return true
}

// Commit records key as delivered. Idempotent: re-committing an existing key
// is a no-op.
func (s *SeenStore) Commit(ctx context.Context, key string) error {
	if s.db == nil {
		return nil
	}

	_, err := sq.Insert("seen_keys").
		Columns("scope", "key", "created_at").
		Values(s.scope, key, time.Now().UnixNano()).
		Suffix("ON CONFLICT (scope, key) DO NOTHING").
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("commit key: %w", err)
	}

	s.evict(ctx)
	return nil
}

// evict trims the oldest keys once the scope exceeds its retention cap.
// Long-horizon dedup is approximate by design; memory and disk stay bounded.
func (s *SeenStore) evict(ctx context.Context) {
	if s.cap <= 0 {
		return
	}

	var total int
	err := sq.Select("COUNT(*)").
		From("seen_keys").
		Where(sq.Eq{"scope": s.scope}).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&total)
	if err != nil || total <= s.cap {
		return
	}

	_, err = sq.Delete("seen_keys").
		Where(sq.Eq{"scope": s.scope}).
		Where(sq.Expr("key IN (SELECT key FROM seen_keys WHERE scope = ? ORDER BY created_at ASC, key ASC LIMIT ?)",
			s.scope, total-s.cap)).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		s.warn("eviction failed", "scope", s.scope, "error", err)
	}
}

func (s *SeenStore) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
