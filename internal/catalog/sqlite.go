package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/tierstore/tierstore/internal/tier"
)

// SQLiteStore keeps the catalog in a SQLite database in WAL mode.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and applies the
// schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening SQLite catalog: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.initDB(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing SQLite catalog: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initDB() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("executing %q: %w", p, err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS entries (
			tier       TEXT    NOT NULL,
			name       TEXT    NOT NULL,
			size       INTEGER NOT NULL DEFAULT 0,
			checksum   TEXT    NOT NULL DEFAULT '',
			mime_type  TEXT    NOT NULL DEFAULT '',
			updated_at TEXT    NOT NULL,
			PRIMARY KEY (tier, name)
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating catalog schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping pings the database.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Put upserts the entry.
func (s *SQLiteStore) Put(ctx context.Context, e *Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (tier, name, size, checksum, mime_type, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(tier, name) DO UPDATE SET
			size = excluded.size,
			checksum = excluded.checksum,
			mime_type = excluded.mime_type,
			updated_at = excluded.updated_at`,
		e.Tier.String(), e.Name, e.Size, e.Checksum, e.MimeType, formatTime(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("putting catalog entry %s/%s: %w", e.Tier, e.Name, err)
	}
	return nil
}

// Get returns the entry or (nil, nil).
func (s *SQLiteStore) Get(ctx context.Context, t tier.Tier, name string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT size, checksum, mime_type, updated_at FROM entries WHERE tier = ? AND name = ?`,
		t.String(), name,
	)
	e := Entry{Tier: t, Name: name}
	var updated string
	err := row.Scan(&e.Size, &e.Checksum, &e.MimeType, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting catalog entry %s/%s: %w", t, name, err)
	}
	e.UpdatedAt = parseTime(updated)
	return &e, nil
}

// List returns the tier's entries ordered by name.
func (s *SQLiteStore) List(ctx context.Context, t tier.Tier) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, size, checksum, mime_type, updated_at FROM entries WHERE tier = ? ORDER BY name`,
		t.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing catalog entries for %s: %w", t, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e := Entry{Tier: t}
		var updated string
		if err := rows.Scan(&e.Name, &e.Size, &e.Checksum, &e.MimeType, &updated); err != nil {
			return nil, fmt.Errorf("scanning catalog entry: %w", err)
		}
		e.UpdatedAt = parseTime(updated)
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ Store = (*SQLiteStore)(nil)
