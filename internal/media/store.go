// Package media defines the shared media collection behind the SharedMedia
// tier and its backends (local directory, memory, SQLite, and the AWS, GCP
// and Azure object stores).
package media

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is wrapped by every backend when an object does not exist.
var ErrNotFound = errors.New("media object not found")

// Store persists whole media objects by name. Implementations must be safe
// for concurrent use.
type Store interface {
	// Put writes the data from the reader under name, replacing any existing
	// object. It returns the number of bytes written and the hex MD5 of the
	// content.
	Put(ctx context.Context, name string, reader io.Reader, size int64) (bytesWritten int64, checksum string, err error)

	// Get retrieves the object. The caller closes the returned ReadCloser.
	// A missing object yields an error wrapping ErrNotFound.
	Get(ctx context.Context, name string) (io.ReadCloser, int64, error)

	// Exists reports whether an object is stored under name.
	Exists(ctx context.Context, name string) (bool, error)

	// HealthCheck verifies that the backend is operational.
	HealthCheck(ctx context.Context) error

	// Location describes where objects live, e.g. "s3://bucket/prefix".
	Location() string
}
