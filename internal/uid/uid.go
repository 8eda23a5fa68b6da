// Package uid generates the random names TierStore uses for temp files and
// captured media.
package uid

import (
	"strings"

	"github.com/google/uuid"
)

// New returns a random version 4 UUID in its canonical 36-character form.
func New() string {
	return uuid.NewString()
}

// Compact returns a random UUID without hyphens (32 hex characters), suitable
// for temp file suffixes.
func Compact() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// TempName returns a hidden temp file name of the form ".tmp-<hex>".
func TempName() string {
	return ".tmp-" + Compact()
}

// IsTempName reports whether name was produced by TempName.
func IsTempName(name string) bool {
	return strings.HasPrefix(name, ".tmp-")
}
