// Package sqlite provides a SQLite-backed session store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ankwata/ankwata/internal/lottery/domain"
	"github.com/ankwata/ankwata/internal/platform/storage/sqlitemigrate"
	"github.com/ankwata/ankwata/internal/storage"
	"github.com/ankwata/ankwata/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed payment session persistence.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a payment session SQLite store and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Create inserts a new session, rejecting duplicate references.
func (s *Store) Create(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	session.Reference = strings.TrimSpace(session.Reference)
	if session.Reference == "" {
		return fmt.Errorf("session reference is required")
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	result, err := s.sqlDB.ExecContext(ctx, `
INSERT OR IGNORE INTO payment_sessions (
	reference,
	state,
	winner,
	gateway_meta,
	created_at
) VALUES (?, ?, ?, ?, ?)
`,
		session.Reference,
		session.State.String(),
		session.Winner,
		[]byte(session.GatewayMeta),
		session.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create session rows affected: %w", err)
	}
	if inserted == 0 {
		return storage.ErrDuplicateReference
	}
	return nil
}

// Get returns the session stored under reference.
func (s *Store) Get(ctx context.Context, reference string) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Session{}, fmt.Errorf("storage is not configured")
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return domain.Session{}, fmt.Errorf("session reference is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT reference, state, winner, gateway_meta, created_at
FROM payment_sessions
WHERE reference = ?
`, reference)
	return scanSession(row)
}

// CompareAndTransition applies mutate when the stored state matches
// expected. The final UPDATE re-checks the expected state so concurrent
// confirmations for the same reference commit at most once.
func (s *Store) CompareAndTransition(ctx context.Context, reference string, expected domain.SessionState, mutate storage.Mutate) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Session{}, fmt.Errorf("storage is not configured")
	}
	if mutate == nil {
		return domain.Session{}, fmt.Errorf("mutate func is required")
	}

	session, err := s.Get(ctx, reference)
	if err != nil {
		return domain.Session{}, err
	}
	if session.State != expected {
		return domain.Session{}, storage.ErrStaleState
	}

	next := session
	if err := mutate(&next); err != nil {
		return domain.Session{}, err
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE payment_sessions
SET state = ?, winner = ?, gateway_meta = ?
WHERE reference = ? AND state = ?
`,
		next.State.String(),
		next.Winner,
		[]byte(next.GatewayMeta),
		session.Reference,
		expected.String(),
	)
	if err != nil {
		return domain.Session{}, fmt.Errorf("transition session: %w", err)
	}
	updated, err := result.RowsAffected()
	if err != nil {
		return domain.Session{}, fmt.Errorf("transition session rows affected: %w", err)
	}
	if updated == 0 {
		return domain.Session{}, storage.ErrStaleState
	}
	return next, nil
}

func scanSession(row *sql.Row) (domain.Session, error) {
	var session domain.Session
	var state string
	var meta []byte
	var createdAt int64
	if err := row.Scan(
		&session.Reference,
		&state,
		&session.Winner,
		&meta,
		&createdAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return domain.Session{}, storage.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	session.State = domain.ParseSessionState(state)
	if len(meta) > 0 {
		session.GatewayMeta = json.RawMessage(meta)
	}
	session.CreatedAt = time.UnixMilli(createdAt).UTC()
	return session, nil
}
