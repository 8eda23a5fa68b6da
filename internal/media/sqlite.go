package media

import (
	"bytes"
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// SQLiteStore keeps media objects as BLOBs in a SQLite database, which suits
// small images and single-node deployments.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the database at dbPath, applies the
// performance PRAGMAs, and creates the media table.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening SQLite media database: %w", err)
	}

	s := &SQLiteStore{db: db, path: dbPath}
	if err := s.initDB(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing SQLite media database: %w", err)
	}
	return s, nil
}

// initDB applies PRAGMAs and creates the required table.
func (s *SQLiteStore) initDB() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("executing %q: %w", p, err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS media_data (
			name     TEXT PRIMARY KEY,
			data     BLOB NOT NULL,
			checksum TEXT NOT NULL
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating media schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores the data with INSERT OR REPLACE so that re-uploads overwrite.
func (s *SQLiteStore) Put(ctx context.Context, name string, reader io.Reader, size int64) (int64, string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return 0, "", fmt.Errorf("reading media data: %w", err)
	}
	if data == nil {
		// The NOT NULL column rejects a nil slice; store an empty BLOB instead.
		data = []byte{}
	}
	sum := md5.Sum(data)
	checksum := hex.EncodeToString(sum[:])

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO media_data (name, data, checksum) VALUES (?, ?, ?)`,
		name, data, checksum,
	)
	if err != nil {
		return 0, "", fmt.Errorf("putting media object %q: %w", name, err)
	}
	return int64(len(data)), checksum, nil
}

// Get loads the BLOB into memory and returns a reader over it.
func (s *SQLiteStore) Get(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM media_data WHERE name = ?`, name,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("getting media object %q: %w", name, err)
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

// Exists checks for a row with the given name.
func (s *SQLiteStore) Exists(ctx context.Context, name string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM media_data WHERE name = ?`, name,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking media object %q: %w", name, err)
	}
	return true, nil
}

// HealthCheck pings the database.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Location returns a sqlite:// URL for the database file.
func (s *SQLiteStore) Location() string {
	return "sqlite://" + s.path
}

var _ Store = (*SQLiteStore)(nil)
