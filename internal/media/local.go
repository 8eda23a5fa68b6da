package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tierstore/tierstore/internal/fsutil"
)

// LocalStore keeps media objects as flat files in a single directory.
type LocalStore struct {
	// RootDir is the directory holding the objects.
	RootDir string
}

// NewLocalStore creates a LocalStore rooted at dir, creating the directory if
// needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating media directory %q: %w", dir, err)
	}
	return &LocalStore{RootDir: dir}, nil
}

// CleanTempFiles removes temp files left behind by interrupted writes. It
// must not run while another process may be writing to the same directory.
func (s *LocalStore) CleanTempFiles() (int, error) {
	n, err := fsutil.CleanTempFiles(s.RootDir)
	if err != nil {
		return 0, fmt.Errorf("cleaning media temp files: %w", err)
	}
	return n, nil
}

// Put writes the object with the temp-file-then-rename pattern.
func (s *LocalStore) Put(ctx context.Context, name string, reader io.Reader, size int64) (int64, string, error) {
	n, sum, err := fsutil.WriteFileAtomic(s.RootDir, name, reader)
	if err != nil {
		return 0, "", fmt.Errorf("writing media object %q: %w", name, err)
	}
	return n, sum, nil
}

// Get opens the object file for reading.
func (s *LocalStore) Get(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	file, err := os.Open(filepath.Join(s.RootDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, 0, fmt.Errorf("opening media object %q: %w", name, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("stat media object %q: %w", name, err)
	}
	if info.IsDir() {
		file.Close()
		return nil, 0, fmt.Errorf("%w: %s is a directory", ErrNotFound, name)
	}
	return file, info.Size(), nil
}

// Exists checks whether a regular file named name exists.
func (s *LocalStore) Exists(ctx context.Context, name string) (bool, error) {
	ok, err := fsutil.IsRegularFile(filepath.Join(s.RootDir, name))
	if err != nil {
		return false, fmt.Errorf("checking media object %q: %w", name, err)
	}
	return ok, nil
}

// HealthCheck verifies that the root directory is accessible.
func (s *LocalStore) HealthCheck(ctx context.Context) error {
	_, err := os.Stat(s.RootDir)
	return err
}

// Location returns the root directory.
func (s *LocalStore) Location() string {
	return s.RootDir
}

var _ Store = (*LocalStore)(nil)
