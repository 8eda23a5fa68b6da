// Package fsutil provides crash-safe whole-file writes.
package fsutil

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tierstore/tierstore/internal/uid"
)

// FileMode is the permission used for files created by TierStore. Files are
// app-private, so group and other get nothing.
const FileMode os.FileMode = 0o600

// WriteFileAtomic replaces dir/name with the content of r using the
// crash-only pattern: write to a hidden temp file in dir, fsync, rename.
// Readers see either the old content or the new content, never a mix.
// It returns the number of bytes written and the hex MD5 of the content.
//
// dir must already exist; WriteFileAtomic never creates directories.
func WriteFileAtomic(dir, name string, r io.Reader) (n int64, checksum string, err error) {
	tmpPath := filepath.Join(dir, uid.TempName())
	tmpFile, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, FileMode)
	if err != nil {
		return 0, "", fmt.Errorf("creating temp file: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	h := md5.New()
	n, err = io.Copy(tmpFile, io.TeeReader(r, h))
	if err != nil {
		return 0, "", fmt.Errorf("writing file data: %w", err)
	}

	// Fsync before rename to guarantee durability.
	if err := tmpFile.Sync(); err != nil {
		return 0, "", fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		committed = true
		return 0, "", fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		os.Remove(tmpPath)
		committed = true
		return 0, "", fmt.Errorf("renaming temp file to final path: %w", err)
	}
	committed = true

	return n, hex.EncodeToString(h.Sum(nil)), nil
}

// CreateEmpty creates dir/name as an empty file if it does not exist yet.
// It reports whether the file was created by this call; an existing file is
// left untouched and is not an error.
func CreateEmpty(dir, name string) (bool, error) {
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, FileMode)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("creating file: %w", err)
	}
	if err := f.Close(); err != nil {
		return true, fmt.Errorf("closing new file: %w", err)
	}
	return true, nil
}

// ReadFile returns the full content of path. The handle is closed on every
// return path.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading file data: %w", err)
	}
	return data, nil
}

// IsRegularFile reports whether path exists and is a regular file. Stat
// errors other than non-existence are returned.
func IsRegularFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		return info.Mode().IsRegular(), nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// CleanTempFiles removes temp files left in dir by writes that crashed before
// their rename. A missing dir is not an error. It returns the number of files
// removed.
func CleanTempFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading directory %q: %w", dir, err)
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !uid.IsTempName(entry.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}
