// Package storage routes whole-file reads and writes to the storage tier the
// caller names, enforcing the permission and naming rules of each tier.
package storage

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/tierstore/tierstore/internal/catalog"
	"github.com/tierstore/tierstore/internal/media"
	"github.com/tierstore/tierstore/internal/tier"
	"github.com/tierstore/tierstore/internal/uid"
)

// LocationProvider supplies the base directory of each filesystem tier.
// The external methods report false while external storage is unavailable.
type LocationProvider interface {
	InternalFilesDir() string
	InternalCacheDir() string
	ExternalFilesDir(subtype string) (string, bool)
	ExternalCacheDir() (string, bool)
}

// PermissionChecker answers whether external storage may be read or written.
type PermissionChecker interface {
	HasReadPermission() bool
	HasWritePermission() bool
}

// Notifier receives one user-facing message per terminal outcome of Create,
// Write and Read.
type Notifier interface {
	Notify(level slog.Level, message string)
}

// Catalog records the files written through the manager.
type Catalog interface {
	Put(ctx context.Context, e *catalog.Entry) error
	List(ctx context.Context, t tier.Tier) ([]catalog.Entry, error)
}

// Target is a resolved file location: the tier, its base location and the
// file name.
type Target struct {
	Tier tier.Tier
	Base string
	Name string
}

// Path returns the full location of the file. Media locations are URLs, so
// they are joined with a forward slash.
func (t Target) Path() string {
	if t.Tier == tier.SharedMedia {
		if strings.HasSuffix(t.Base, "/") {
			return t.Base + t.Name
		}
		return t.Base + "/" + t.Name
	}
	return filepath.Join(t.Base, t.Name)
}

// ValidName reports whether name can be used as a file name in any tier: it
// must be non-empty, must not contain a path separator or NUL byte, and must
// not be "." or "..". The temp-file prefix is reserved, since startup
// recovery removes such files.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." || uid.IsTempName(name) {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

// Option configures a Manager.
type Option func(*Manager)

// WithScopedStorage makes the write permission check always pass for the
// app's own external directories.
func WithScopedStorage(scoped bool) Option {
	return func(m *Manager) { m.scoped = scoped }
}

// WithExternalSubtype selects the subdirectory of the external files dir
// used by ExternalPersistent.
func WithExternalSubtype(subtype string) Option {
	return func(m *Manager) { m.subtype = subtype }
}

// WithMediaStore sets the backend of the SharedMedia tier. Without one,
// SharedMedia is unavailable.
func WithMediaStore(s media.Store) Option {
	return func(m *Manager) { m.media = s }
}

// WithCatalog enables catalog recording.
func WithCatalog(c Catalog) Option {
	return func(m *Manager) { m.catalog = c }
}

// WithNotifier sets the notifier. The default discards notifications.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

type discardNotifier struct{}

func (discardNotifier) Notify(slog.Level, string) {}
