// Package serialization exports catalog entries to JSON and imports them
// back, independent of the catalog engine on either side.
package serialization

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tierstore/tierstore/internal/catalog"
	"github.com/tierstore/tierstore/internal/storage"
	"github.com/tierstore/tierstore/internal/tier"
)

const (
	Version       = "0.1.0"
	ExportVersion = 1
)

const timeFormat = "2006-01-02T15:04:05.000Z"

// Header identifies an export document.
type Header struct {
	Version    int    `json:"version"`
	ExportedAt string `json:"exported_at"`
	Source     string `json:"source"`
}

// Entry is the JSON form of one catalog entry.
type Entry struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Checksum  string `json:"checksum"`
	MimeType  string `json:"mime_type"`
	UpdatedAt string `json:"updated_at"`
}

// Document is a full export: the header plus the entries of each exported
// tier, keyed by tier name.
type Document struct {
	Header  Header             `json:"tierstore_export"`
	Entries map[string][]Entry `json:"entries"`
}

// ExportOptions configures what to export.
type ExportOptions struct {
	// Tiers to export. Empty means every tier.
	Tiers []tier.Tier
}

// ImportOptions configures how to import.
type ImportOptions struct {
	// Replace overwrites entries that already exist. Otherwise they are
	// skipped.
	Replace bool
}

// ImportResult holds the result of an import operation, keyed by tier name.
type ImportResult struct {
	Counts   map[string]int
	Skipped  map[string]int
	Warnings []string
}

// ExportCatalog writes the entries of the selected tiers as indented JSON.
func ExportCatalog(ctx context.Context, store catalog.Store, opts *ExportOptions) ([]byte, error) {
	tiers := tier.All
	if opts != nil && len(opts.Tiers) > 0 {
		tiers = opts.Tiers
	}

	doc := Document{
		Header: Header{
			Version:    ExportVersion,
			ExportedAt: time.Now().UTC().Format(timeFormat),
			Source:     "go/" + Version,
		},
		Entries: make(map[string][]Entry, len(tiers)),
	}

	for _, t := range tiers {
		entries, err := store.List(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", t, err)
		}
		out := make([]Entry, 0, len(entries))
		for _, e := range entries {
			out = append(out, Entry{
				Name:      e.Name,
				Size:      e.Size,
				Checksum:  e.Checksum,
				MimeType:  e.MimeType,
				UpdatedAt: e.UpdatedAt.UTC().Format(timeFormat),
			})
		}
		doc.Entries[t.String()] = out
	}

	return json.MarshalIndent(doc, "", "  ")
}

// ImportCatalog loads an export document into store. Rows that cannot be
// imported are skipped with a warning; only a malformed document or a
// failing store aborts the import.
func ImportCatalog(ctx context.Context, store catalog.Store, data []byte, opts *ImportOptions) (*ImportResult, error) {
	if opts == nil {
		opts = &ImportOptions{}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if doc.Header.Version < 1 || doc.Header.Version > ExportVersion {
		return nil, fmt.Errorf("unsupported export version: %d", doc.Header.Version)
	}

	result := &ImportResult{
		Counts:  make(map[string]int),
		Skipped: make(map[string]int),
	}

	for _, t := range tier.All {
		rows, ok := doc.Entries[t.String()]
		if !ok {
			continue
		}
		inserted, skipped := 0, 0
		for _, row := range rows {
			e, err := toCatalogEntry(t, row)
			if err != nil {
				skipped++
				result.Warnings = append(result.Warnings, fmt.Sprintf("Skipped %s entry %q: %v", t, row.Name, err))
				continue
			}
			if !opts.Replace {
				existing, err := store.Get(ctx, t, e.Name)
				if err != nil {
					return nil, fmt.Errorf("looking up %s/%s: %w", t, e.Name, err)
				}
				if existing != nil {
					skipped++
					continue
				}
			}
			if err := store.Put(ctx, e); err != nil {
				return nil, fmt.Errorf("storing %s/%s: %w", t, e.Name, err)
			}
			inserted++
		}
		result.Counts[t.String()] = inserted
		result.Skipped[t.String()] = skipped
	}

	for name := range doc.Entries {
		if _, err := tier.Parse(name); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Skipped unknown tier %q", name))
		}
	}

	return result, nil
}

func toCatalogEntry(t tier.Tier, row Entry) (*catalog.Entry, error) {
	if !storage.ValidName(row.Name) {
		return nil, fmt.Errorf("invalid file name")
	}
	if row.Size < 0 {
		return nil, fmt.Errorf("negative size")
	}
	updated, err := time.Parse(timeFormat, row.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("bad updated_at: %w", err)
	}
	return &catalog.Entry{
		Tier:      t,
		Name:      row.Name,
		Size:      row.Size,
		Checksum:  row.Checksum,
		MimeType:  row.MimeType,
		UpdatedAt: updated,
	}, nil
}
