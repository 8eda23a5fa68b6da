package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/tierstore/tierstore/internal/catalog"
	tierr "github.com/tierstore/tierstore/internal/errors"
	"github.com/tierstore/tierstore/internal/fsutil"
	"github.com/tierstore/tierstore/internal/media"
	"github.com/tierstore/tierstore/internal/metrics"
	"github.com/tierstore/tierstore/internal/tier"
)

type access int

const (
	accessRead access = iota
	accessWrite
)

// Manager places whole files in storage tiers. It holds no mutable state
// after construction and is safe for concurrent use.
type Manager struct {
	locations LocationProvider
	perms     PermissionChecker
	notifier  Notifier
	media     media.Store
	catalog   Catalog
	scoped    bool
	subtype   string
	now       func() time.Time
}

// NewManager creates a Manager over the given location provider and
// permission checker.
func NewManager(locations LocationProvider, perms PermissionChecker, opts ...Option) *Manager {
	m := &Manager{
		locations: locations,
		perms:     perms,
		notifier:  discardNotifier{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ScopedStorage reports whether the manager runs with scoped storage.
func (m *Manager) ScopedStorage() bool {
	return m.scoped
}

// Base returns the base location of t without checking permissions, and
// whether it is currently available.
func (m *Manager) Base(t tier.Tier) (string, bool) {
	switch t {
	case tier.InternalPersistent:
		return m.locations.InternalFilesDir(), true
	case tier.InternalCache:
		return m.locations.InternalCacheDir(), true
	case tier.ExternalPersistent:
		return m.locations.ExternalFilesDir(m.subtype)
	case tier.ExternalCache:
		return m.locations.ExternalCacheDir()
	case tier.SharedMedia:
		if m.media == nil {
			return "", false
		}
		return m.media.Location(), true
	}
	return "", false
}

// Resolve maps (t, name) to a Target without touching the file. Failures
// are notified like those of Create, Write and Read.
func (m *Manager) Resolve(ctx context.Context, t tier.Tier, name string) (Target, error) {
	if err := validate(t, name); err != nil {
		return Target{}, m.fail(t, "resolve", name, err)
	}
	target, err := m.locate(t, name)
	if err != nil {
		return Target{}, m.fail(t, "resolve", name, err)
	}
	return target, nil
}

// resolve validates, enforces the permission for the access mode on
// external tiers and only then consults the location provider.
func (m *Manager) resolve(t tier.Tier, name string, mode access) (Target, error) {
	if err := validate(t, name); err != nil {
		return Target{}, err
	}
	if t.IsExternal() && !m.allowed(mode) {
		verb := "read"
		if mode == accessWrite {
			verb = "write"
		}
		return Target{}, tierr.ErrPermissionDenied.WithName(name).
			WithMessage("%s permission for external storage not granted", verb)
	}
	return m.locate(t, name)
}

func (m *Manager) allowed(mode access) bool {
	if mode == accessWrite {
		return m.scoped || m.perms.HasWritePermission()
	}
	return m.perms.HasReadPermission()
}

func validate(t tier.Tier, name string) error {
	if !t.Valid() {
		return tierr.ErrInvalidTier.WithName(name).WithMessage("unknown storage tier %d", int(t))
	}
	if !ValidName(name) {
		return tierr.ErrInvalidName.WithName(name)
	}
	return nil
}

func (m *Manager) locate(t tier.Tier, name string) (Target, error) {
	base, ok := m.Base(t)
	if !ok {
		return Target{}, tierr.ErrIOFailure.WithName(name).
			WithMessage("%s storage is not available", t)
	}
	return Target{Tier: t, Base: base, Name: name}, nil
}

// Exists reports whether a regular file is stored under name in t. Invalid
// names, missing permissions and unavailable storage all report false.
// Exists never notifies.
func (m *Manager) Exists(ctx context.Context, t tier.Tier, name string) bool {
	target, err := m.resolve(t, name, accessRead)
	if err != nil {
		metrics.ObserveOperation(t.String(), "exists", string(tierr.KindOf(err)))
		return false
	}

	var ok bool
	if t == tier.SharedMedia {
		ok, err = m.media.Exists(ctx, name)
	} else {
		ok, err = fsutil.IsRegularFile(target.Path())
	}
	if err != nil {
		slog.Debug("Exists check failed", "tier", t, "name", name, "error", err)
		metrics.ObserveOperation(t.String(), "exists", string(tierr.KindIOFailure))
		return false
	}
	metrics.ObserveOperation(t.String(), "exists", "success")
	return ok
}

// Create makes an empty file under name unless one already exists, in which
// case it succeeds without touching it.
func (m *Manager) Create(ctx context.Context, t tier.Tier, name string) error {
	target, err := m.resolve(t, name, accessWrite)
	if err != nil {
		return m.fail(t, "create", name, err)
	}

	var created bool
	if t == tier.SharedMedia {
		created, err = m.createMedia(ctx, name)
	} else {
		created, err = m.createFile(target)
	}
	if err != nil {
		return m.fail(t, "create", name, tierr.ErrIOFailure.WithName(name).
			WithMessage("creating file in %s", t).Wrap(err))
	}

	if created {
		m.record(ctx, target, 0, emptyChecksum, nil)
		m.succeed(t, "create", fmt.Sprintf("Created %s in %s", name, t))
	} else {
		m.succeed(t, "create", fmt.Sprintf("%s already exists in %s", name, t))
	}
	return nil
}

var emptyChecksum = func() string {
	sum := md5.Sum(nil)
	return hex.EncodeToString(sum[:])
}()

func (m *Manager) createFile(target Target) (bool, error) {
	if err := os.MkdirAll(target.Base, 0o700); err != nil {
		return false, fmt.Errorf("creating base directory: %w", err)
	}
	created, err := fsutil.CreateEmpty(target.Base, target.Name)
	if err != nil || created {
		return created, err
	}
	regular, err := fsutil.IsRegularFile(target.Path())
	if err != nil {
		return false, err
	}
	if !regular {
		return false, fmt.Errorf("%s exists and is not a regular file", target.Path())
	}
	return false, nil
}

func (m *Manager) createMedia(ctx context.Context, name string) (bool, error) {
	ok, err := m.media.Exists(ctx, name)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}
	if _, _, err := m.media.Put(ctx, name, bytes.NewReader(nil), 0); err != nil {
		return false, err
	}
	return true, nil
}

// Write replaces the content stored under name with data and returns the
// number of bytes written. Readers observe either the old or the new
// content.
func (m *Manager) Write(ctx context.Context, t tier.Tier, name string, data []byte) (int64, error) {
	target, err := m.resolve(t, name, accessWrite)
	if err != nil {
		return 0, m.fail(t, "write", name, err)
	}

	var n int64
	var sum string
	if t == tier.SharedMedia {
		n, sum, err = m.media.Put(ctx, name, bytes.NewReader(data), int64(len(data)))
	} else {
		if err = os.MkdirAll(target.Base, 0o700); err == nil {
			n, sum, err = fsutil.WriteFileAtomic(target.Base, name, bytes.NewReader(data))
		}
	}
	if err != nil {
		return 0, m.fail(t, "write", name, tierr.ErrIOFailure.WithName(name).
			WithMessage("writing file to %s", t).Wrap(err))
	}

	metrics.ObserveBytes(t.String(), "in", n)
	m.record(ctx, target, n, sum, data)
	m.succeed(t, "write", fmt.Sprintf("Saved %s (%d bytes) to %s", name, n, t))
	return n, nil
}

// Read returns the entire content stored under name.
func (m *Manager) Read(ctx context.Context, t tier.Tier, name string) ([]byte, error) {
	target, err := m.resolve(t, name, accessRead)
	if err != nil {
		return nil, m.fail(t, "read", name, err)
	}

	var data []byte
	if t == tier.SharedMedia {
		data, err = m.readMedia(ctx, name)
	} else {
		data, err = fsutil.ReadFile(target.Path())
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, media.ErrNotFound) {
			return nil, m.fail(t, "read", name, tierr.ErrNotFound.WithName(name).
				WithMessage("file does not exist in %s", t))
		}
		return nil, m.fail(t, "read", name, tierr.ErrIOFailure.WithName(name).
			WithMessage("reading file from %s", t).Wrap(err))
	}

	metrics.ObserveBytes(t.String(), "out", int64(len(data)))
	m.succeed(t, "read", fmt.Sprintf("Read %s (%d bytes) from %s", name, len(data), t))
	return data, nil
}

func (m *Manager) readMedia(ctx context.Context, name string) ([]byte, error) {
	rc, _, err := m.media.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// List returns the catalog entries of t. External tiers need read
// permission. Failures are notified with the tier in place of a file name.
func (m *Manager) List(ctx context.Context, t tier.Tier) ([]catalog.Entry, error) {
	if !t.Valid() {
		return nil, m.fail(t, "list", t.String(), tierr.ErrInvalidTier.WithMessage("unknown storage tier %d", int(t)))
	}
	if t.IsExternal() && !m.allowed(accessRead) {
		return nil, m.fail(t, "list", t.String(), tierr.ErrPermissionDenied.WithMessage("read permission for external storage not granted"))
	}
	if m.catalog == nil {
		return nil, m.fail(t, "list", t.String(), tierr.ErrIOFailure.WithMessage("catalog is not configured"))
	}
	entries, err := m.catalog.List(ctx, t)
	if err != nil {
		return nil, m.fail(t, "list", t.String(), tierr.ErrIOFailure.WithMessage("listing %s", t).Wrap(err))
	}
	metrics.ObserveOperation(t.String(), "list", "success")
	return entries, nil
}

// record adds the file to the catalog. Failures are only reported.
func (m *Manager) record(ctx context.Context, target Target, size int64, checksum string, data []byte) {
	if m.catalog == nil {
		return
	}
	err := m.catalog.Put(ctx, &catalog.Entry{
		Tier:      target.Tier,
		Name:      target.Name,
		Size:      size,
		Checksum:  checksum,
		MimeType:  catalog.DetectMimeType(target.Name, data),
		UpdatedAt: m.now().UTC(),
	})
	if err != nil {
		slog.Warn("Catalog update failed", "tier", target.Tier, "name", target.Name, "error", err)
		m.notifier.Notify(slog.LevelWarn, fmt.Sprintf("Could not catalog %s: %v", target.Name, err))
	}
}

func (m *Manager) succeed(t tier.Tier, op, message string) {
	metrics.ObserveOperation(t.String(), op, "success")
	m.notifier.Notify(slog.LevelInfo, message)
}

// fail reports err once and returns it.
func (m *Manager) fail(t tier.Tier, op, name string, err error) error {
	metrics.ObserveOperation(t.String(), op, string(tierr.KindOf(err)))
	slog.Debug("Tier operation failed", "tier", t, "op", op, "name", name, "error", err)
	m.notifier.Notify(slog.LevelError, fmt.Sprintf("Failed to %s %s: %v", op, name, err))
	return err
}
