// Package location resolves the base directories of the filesystem tiers.
package location

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tierstore/tierstore/internal/config"
	"github.com/tierstore/tierstore/internal/fsutil"
)

// DirMode is the permission used for tier directories.
const DirMode os.FileMode = 0o700

// DirProvider lays the tiers out under two roots:
//
//	<internal_root>/files   InternalPersistent
//	<internal_root>/cache   InternalCache
//	<external_root>/files   ExternalPersistent (optionally /<subtype>)
//	<external_root>/cache   ExternalCache
//
// Directories are created on demand. External directories are only handed
// out while the external root exists.
type DirProvider struct {
	internalRoot string
	externalRoot string
}

// New creates a DirProvider from the locations config. With CreateExternal
// set, the external root is created here.
func New(cfg config.LocationsConfig) (*DirProvider, error) {
	p := &DirProvider{
		internalRoot: cfg.InternalRoot,
		externalRoot: cfg.ExternalRoot,
	}
	if err := os.MkdirAll(p.internalRoot, DirMode); err != nil {
		return nil, err
	}
	if cfg.CreateExternal && p.externalRoot != "" {
		if err := os.MkdirAll(p.externalRoot, DirMode); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Mounted reports whether external storage is available.
func (p *DirProvider) Mounted() bool {
	if p.externalRoot == "" {
		return false
	}
	info, err := os.Stat(p.externalRoot)
	return err == nil && info.IsDir()
}

func (p *DirProvider) InternalFilesDir() string {
	return ensure(filepath.Join(p.internalRoot, "files"))
}

func (p *DirProvider) InternalCacheDir() string {
	return ensure(filepath.Join(p.internalRoot, "cache"))
}

func (p *DirProvider) ExternalFilesDir(subtype string) (string, bool) {
	if !p.Mounted() {
		return "", false
	}
	dir := filepath.Join(p.externalRoot, "files")
	if subtype != "" {
		dir = filepath.Join(dir, subtype)
	}
	return ensureExternal(dir)
}

func (p *DirProvider) ExternalCacheDir() (string, bool) {
	if !p.Mounted() {
		return "", false
	}
	return ensureExternal(filepath.Join(p.externalRoot, "cache"))
}

// ensure creates dir, logging failures; the write that follows reports the
// error to the caller.
func ensure(dir string) string {
	if err := os.MkdirAll(dir, DirMode); err != nil {
		slog.Warn("Creating tier directory failed", "dir", dir, "error", err)
	}
	return dir
}

func ensureExternal(dir string) (string, bool) {
	if err := os.MkdirAll(dir, DirMode); err != nil {
		slog.Warn("Creating external directory failed", "dir", dir, "error", err)
		return "", false
	}
	return dir, true
}

// Path describes one resolved base directory.
type Path struct {
	Name      string `json:"name"`
	Dir       string `json:"dir"`
	Available bool   `json:"available"`
}

// Paths lists every base directory, in tier order.
func (p *DirProvider) Paths(subtype string) []Path {
	extFiles, extFilesOK := p.ExternalFilesDir(subtype)
	extCache, extCacheOK := p.ExternalCacheDir()
	return []Path{
		{Name: "internal files", Dir: p.InternalFilesDir(), Available: true},
		{Name: "internal cache", Dir: p.InternalCacheDir(), Available: true},
		{Name: "external files", Dir: extFiles, Available: extFilesOK},
		{Name: "external cache", Dir: extCache, Available: extCacheOK},
	}
}

// CleanTempFiles removes leftovers of interrupted writes from every
// available base directory and returns how many were removed.
func (p *DirProvider) CleanTempFiles(subtype string) int {
	total := 0
	for _, path := range p.Paths(subtype) {
		if !path.Available {
			continue
		}
		n, err := fsutil.CleanTempFiles(path.Dir)
		if err != nil {
			slog.Warn("Cleaning temp files failed", "dir", path.Dir, "error", err)
			continue
		}
		total += n
	}
	return total
}
