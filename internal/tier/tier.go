// Package tier defines the storage tiers TierStore can place files in.
package tier

import (
	"fmt"
	"strings"
)

// Tier is a named combination of storage location (internal, external,
// shared) and persistence (persistent or cache).
type Tier int

const (
	// InternalPersistent is app-private storage that survives until the app
	// data is cleared.
	InternalPersistent Tier = iota + 1
	// InternalCache is app-private storage the OS may purge under pressure.
	InternalCache
	// ExternalPersistent is the app-scoped directory on external storage.
	ExternalPersistent
	// ExternalCache is the app-scoped cache directory on external storage.
	ExternalCache
	// SharedMedia is the shared media collection visible to other apps.
	SharedMedia
)

// All lists every tier in declaration order.
var All = []Tier{InternalPersistent, InternalCache, ExternalPersistent, ExternalCache, SharedMedia}

var names = map[Tier]string{
	InternalPersistent: "internal-persistent",
	InternalCache:      "internal-cache",
	ExternalPersistent: "external-persistent",
	ExternalCache:      "external-cache",
	SharedMedia:        "shared-media",
}

// String returns the kebab-case name of the tier, or "unknown" for values
// outside the enumeration.
func (t Tier) String() string {
	if n, ok := names[t]; ok {
		return n
	}
	return "unknown"
}

// Valid reports whether t is one of the declared tiers.
func (t Tier) Valid() bool {
	_, ok := names[t]
	return ok
}

// IsExternal reports whether the tier lives outside app-private storage and
// therefore needs the storage permissions.
func (t Tier) IsExternal() bool {
	return t == ExternalPersistent || t == ExternalCache || t == SharedMedia
}

// IsPersistent reports whether the tier routes to a location the OS does not
// purge on its own.
func (t Tier) IsPersistent() bool {
	return t == InternalPersistent || t == ExternalPersistent || t == SharedMedia
}

// Parse maps a tier name back to its Tier. Matching ignores case and accepts
// underscores in place of hyphens.
func Parse(s string) (Tier, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for t, n := range names {
		if n == norm {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown storage tier %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown storage tier %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
