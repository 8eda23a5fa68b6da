// Package catalog indexes the files written through the storage tier
// manager: one entry per (tier, name) with size, checksum and MIME type.
package catalog

import (
	"context"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/tierstore/tierstore/internal/tier"
)

// Entry describes the latest known state of one stored file.
type Entry struct {
	Tier      tier.Tier
	Name      string
	Size      int64
	Checksum  string // hex MD5
	MimeType  string
	UpdatedAt time.Time
}

// Store persists catalog entries. All methods must be safe for concurrent
// use.
type Store interface {
	io.Closer

	// Put inserts or replaces the entry for (e.Tier, e.Name).
	Put(ctx context.Context, e *Entry) error

	// Get returns the entry, or (nil, nil) if none is recorded.
	Get(ctx context.Context, t tier.Tier, name string) (*Entry, error)

	// List returns every entry of the tier ordered by name.
	List(ctx context.Context, t tier.Tier) ([]Entry, error)

	// Ping verifies that the store is reachable.
	Ping(ctx context.Context) error
}

// DetectMimeType guesses the MIME type from the file extension, falling back
// to sniffing the content.
func DetectMimeType(name string, data []byte) string {
	if ext := filepath.Ext(name); ext != "" {
		if mt := mime.TypeByExtension(ext); mt != "" {
			return mt
		}
	}
	return http.DetectContentType(data)
}

// timeFormat is the layout used by stores that keep timestamps as strings.
const timeFormat = "2006-01-02T15:04:05.000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
