// Package permission implements the external storage permission checks.
package permission

import (
	"sort"
	"sync"
)

// Names of the runtime permissions guarding external storage.
const (
	ReadExternalStorage  = "READ_EXTERNAL_STORAGE"
	WriteExternalStorage = "WRITE_EXTERNAL_STORAGE"
)

// Static is a fixed answer, mostly for tests and the CLI.
type Static struct {
	Read  bool
	Write bool
}

func (s Static) HasReadPermission() bool  { return s.Read }
func (s Static) HasWritePermission() bool { return s.Write }

// Grants holds permissions that can be granted and revoked at runtime.
type Grants struct {
	mu      sync.RWMutex
	granted map[string]bool
}

// NewGrants creates a Grants with the initial read and write state.
func NewGrants(read, write bool) *Grants {
	g := &Grants{granted: make(map[string]bool)}
	g.granted[ReadExternalStorage] = read
	g.granted[WriteExternalStorage] = write
	return g
}

func (g *Grants) HasReadPermission() bool  { return g.has(ReadExternalStorage) }
func (g *Grants) HasWritePermission() bool { return g.has(WriteExternalStorage) }

func (g *Grants) has(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.granted[name]
}

// Grant marks the named permission as granted.
func (g *Grants) Grant(name string) {
	g.Apply(map[string]bool{name: true})
}

// Revoke marks the named permission as denied.
func (g *Grants) Revoke(name string) {
	g.Apply(map[string]bool{name: false})
}

// Apply records the outcome of a permission request, keyed by permission
// name. Permissions absent from results keep their state.
func (g *Grants) Apply(results map[string]bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for name, ok := range results {
		g.granted[name] = ok
	}
}

// Snapshot returns a copy of the current state.
func (g *Grants) Snapshot() map[string]bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]bool, len(g.granted))
	for k, v := range g.granted {
		out[k] = v
	}
	return out
}

// Missing lists the permissions that still need to be requested, sorted.
// Under scoped storage write access is implied and never missing.
func (g *Grants) Missing(scoped bool) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var missing []string
	if !g.granted[ReadExternalStorage] {
		missing = append(missing, ReadExternalStorage)
	}
	if !scoped && !g.granted[WriteExternalStorage] {
		missing = append(missing, WriteExternalStorage)
	}
	sort.Strings(missing)
	return missing
}
