package serialization

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tierstore/tierstore/internal/catalog"
	"github.com/tierstore/tierstore/internal/tier"
)

var seedTime = time.Date(2026, 2, 25, 14, 30, 45, 0, time.UTC)

func seedStore(t *testing.T, s catalog.Store) {
	t.Helper()
	ctx := context.Background()
	entries := []catalog.Entry{
		{Tier: tier.InternalPersistent, Name: "notes.txt", Size: 5, Checksum: "5d41402abc4b2a76b9719d911017c592", MimeType: "text/plain; charset=utf-8", UpdatedAt: seedTime},
		{Tier: tier.InternalPersistent, Name: "a.bin", Size: 0, Checksum: "d41d8cd98f00b204e9800998ecf8427e", MimeType: "application/octet-stream", UpdatedAt: seedTime},
		{Tier: tier.SharedMedia, Name: "cat.jpg", Size: 142857, Checksum: "098f6bcd4621d373cade4e832627b4f6", MimeType: "image/jpeg", UpdatedAt: seedTime},
	}
	for i := range entries {
		if err := s.Put(ctx, &entries[i]); err != nil {
			t.Fatalf("seed Put: %v", err)
		}
	}
}

func TestExportCatalog(t *testing.T) {
	s := catalog.NewMemoryStore()
	seedStore(t, s)

	data, err := ExportCatalog(context.Background(), s, nil)
	if err != nil {
		t.Fatalf("ExportCatalog failed: %v", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if doc.Header.Version != ExportVersion || doc.Header.Source != "go/"+Version {
		t.Errorf("header = %+v", doc.Header)
	}
	if len(doc.Entries) != len(tier.All) {
		t.Errorf("exported %d tiers, want %d", len(doc.Entries), len(tier.All))
	}

	internal := doc.Entries["internal-persistent"]
	if len(internal) != 2 || internal[0].Name != "a.bin" || internal[1].Name != "notes.txt" {
		t.Errorf("internal-persistent = %+v", internal)
	}
	media := doc.Entries["shared-media"]
	if len(media) != 1 || media[0].UpdatedAt != "2026-02-25T14:30:45.000Z" || media[0].Size != 142857 {
		t.Errorf("shared-media = %+v", media)
	}
}

func TestExportSelectedTiers(t *testing.T) {
	s := catalog.NewMemoryStore()
	seedStore(t, s)

	data, err := ExportCatalog(context.Background(), s, &ExportOptions{Tiers: []tier.Tier{tier.SharedMedia}})
	if err != nil {
		t.Fatalf("ExportCatalog failed: %v", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if _, ok := doc.Entries["internal-persistent"]; ok || len(doc.Entries) != 1 {
		t.Errorf("entries = %v, want only shared-media", doc.Entries)
	}
}

func TestRoundTripIntoSQLite(t *testing.T) {
	ctx := context.Background()
	src := catalog.NewMemoryStore()
	seedStore(t, src)
	data, err := ExportCatalog(ctx, src, nil)
	if err != nil {
		t.Fatal(err)
	}

	dst, err := catalog.NewSQLiteStore(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer dst.Close()

	result, err := ImportCatalog(ctx, dst, data, nil)
	if err != nil {
		t.Fatalf("ImportCatalog failed: %v", err)
	}
	if result.Counts["internal-persistent"] != 2 || result.Counts["shared-media"] != 1 {
		t.Errorf("counts = %v", result.Counts)
	}

	got, err := dst.Get(ctx, tier.SharedMedia, "cat.jpg")
	if err != nil || got == nil {
		t.Fatalf("Get after import: %v, %v", got, err)
	}
	if got.Size != 142857 || got.MimeType != "image/jpeg" || !got.UpdatedAt.Equal(seedTime) {
		t.Errorf("imported entry = %+v", got)
	}
}

func TestImportSkipsExistingUnlessReplace(t *testing.T) {
	ctx := context.Background()
	src := catalog.NewMemoryStore()
	seedStore(t, src)
	data, err := ExportCatalog(ctx, src, nil)
	if err != nil {
		t.Fatal(err)
	}

	dst := catalog.NewMemoryStore()
	if err := dst.Put(ctx, &catalog.Entry{Tier: tier.InternalPersistent, Name: "notes.txt", Size: 99, UpdatedAt: seedTime}); err != nil {
		t.Fatal(err)
	}

	result, err := ImportCatalog(ctx, dst, data, &ImportOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Counts["internal-persistent"] != 1 || result.Skipped["internal-persistent"] != 1 {
		t.Errorf("merge counts = %v, skipped = %v", result.Counts, result.Skipped)
	}
	if got, _ := dst.Get(ctx, tier.InternalPersistent, "notes.txt"); got.Size != 99 {
		t.Errorf("existing entry overwritten: %+v", got)
	}

	if _, err := ImportCatalog(ctx, dst, data, &ImportOptions{Replace: true}); err != nil {
		t.Fatal(err)
	}
	if got, _ := dst.Get(ctx, tier.InternalPersistent, "notes.txt"); got.Size != 5 {
		t.Errorf("replace did not overwrite: %+v", got)
	}
}

func TestImportInvalidRows(t *testing.T) {
	doc := `{
  "tierstore_export": {"version": 1, "exported_at": "2026-02-25T12:00:00.000Z", "source": "go/0.1.0"},
  "entries": {
    "internal-cache": [
      {"name": "ok.txt", "size": 1, "updated_at": "2026-02-25T12:00:00.000Z"},
      {"name": "../escape", "size": 1, "updated_at": "2026-02-25T12:00:00.000Z"},
      {"name": "neg.txt", "size": -1, "updated_at": "2026-02-25T12:00:00.000Z"},
      {"name": "when.txt", "size": 1, "updated_at": "yesterday"}
    ],
    "floppy-disk": []
  }
}`
	dst := catalog.NewMemoryStore()
	result, err := ImportCatalog(context.Background(), dst, []byte(doc), nil)
	if err != nil {
		t.Fatalf("ImportCatalog failed: %v", err)
	}
	if result.Counts["internal-cache"] != 1 || result.Skipped["internal-cache"] != 3 {
		t.Errorf("counts = %v, skipped = %v", result.Counts, result.Skipped)
	}
	if len(result.Warnings) != 4 {
		t.Fatalf("warnings = %v, want 4", result.Warnings)
	}
	if !strings.Contains(result.Warnings[3], "floppy-disk") {
		t.Errorf("last warning = %q", result.Warnings[3])
	}
}

func TestImportRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{"},
		{"missing header", `{"entries": {}}`},
		{"future version", `{"tierstore_export": {"version": 2}, "entries": {}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ImportCatalog(context.Background(), catalog.NewMemoryStore(), []byte(tt.data), nil); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
