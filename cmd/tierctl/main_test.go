package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tierstore.yaml")
	content := fmt.Sprintf(`
locations:
  internal_root: %s
  external_root: %s
media:
  backend: memory
catalog:
  engine: sqlite
  sqlite:
    path: %s
`, filepath.Join(dir, "internal"), filepath.Join(dir, "external"), filepath.Join(dir, "catalog.db"))
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWriteReadList(t *testing.T) {
	cfg := writeConfig(t)

	var out bytes.Buffer
	if rc := run("write", []string{"-config", cfg, "-name", "a.txt", "-data", "hello"}, nil, &out); rc != 0 {
		t.Fatalf("write exit code %d", rc)
	}

	out.Reset()
	if rc := run("read", []string{"-config", cfg, "-name", "a.txt"}, nil, &out); rc != 0 {
		t.Fatalf("read exit code %d", rc)
	}
	if out.String() != "hello" {
		t.Errorf("read = %q, want hello", out.String())
	}

	out.Reset()
	if rc := run("list", []string{"-config", cfg}, nil, &out); rc != 0 {
		t.Fatalf("list exit code %d", rc)
	}
	if !strings.Contains(out.String(), "a.txt") {
		t.Errorf("list output = %q", out.String())
	}
}

func TestWriteFromStdin(t *testing.T) {
	cfg := writeConfig(t)

	var out bytes.Buffer
	stdin := strings.NewReader("from stdin")
	if rc := run("write", []string{"-config", cfg, "-tier", "internal-cache", "-name", "b.bin"}, stdin, &out); rc != 0 {
		t.Fatalf("write exit code %d", rc)
	}
	out.Reset()
	if rc := run("read", []string{"-config", cfg, "-tier", "internal-cache", "-name", "b.bin"}, nil, &out); rc != 0 {
		t.Fatalf("read exit code %d", rc)
	}
	if out.String() != "from stdin" {
		t.Errorf("read = %q", out.String())
	}
}

func TestExistsAndErrors(t *testing.T) {
	cfg := writeConfig(t)
	var out bytes.Buffer

	if rc := run("exists", []string{"-config", cfg, "-name", "missing"}, nil, &out); rc != 1 {
		t.Errorf("exists on missing file: exit code %d, want 1", rc)
	}
	if rc := run("read", []string{"-config", cfg, "-name", "missing"}, nil, &out); rc != 1 {
		t.Errorf("read on missing file: exit code %d, want 1", rc)
	}
	if rc := run("write", []string{"-config", cfg, "-tier", "floppy", "-name", "x"}, nil, &out); rc != 1 {
		t.Errorf("unknown tier: exit code %d, want 1", rc)
	}
	if rc := run("frobnicate", nil, nil, &out); rc != 1 {
		t.Errorf("unknown command: exit code %d, want 1", rc)
	}
}

func TestCreateAndPaths(t *testing.T) {
	cfg := writeConfig(t)

	var out bytes.Buffer
	if rc := run("create", []string{"-config", cfg, "-name", "empty.dat"}, nil, &out); rc != 0 {
		t.Fatalf("create exit code %d", rc)
	}
	if !strings.HasSuffix(strings.TrimSpace(out.String()), filepath.Join("files", "empty.dat")) {
		t.Errorf("create output = %q", out.String())
	}

	out.Reset()
	if rc := run("paths", []string{"-config", cfg}, nil, &out); rc != 0 {
		t.Fatalf("paths exit code %d", rc)
	}
	for _, want := range []string{"internal files", "external cache", "shared media"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("paths output missing %q: %q", want, out.String())
		}
	}
}

func TestExportImport(t *testing.T) {
	src := writeConfig(t)
	var out bytes.Buffer
	if rc := run("write", []string{"-config", src, "-name", "kept.txt", "-data", "abc"}, nil, &out); rc != 0 {
		t.Fatalf("write exit code %d", rc)
	}

	out.Reset()
	if rc := run("export", []string{"-config", src}, nil, &out); rc != 0 {
		t.Fatalf("export exit code %d", rc)
	}
	if !strings.Contains(out.String(), `"kept.txt"`) {
		t.Fatalf("export output = %q", out.String())
	}

	dst := writeConfig(t)
	exported := out.String()
	out.Reset()
	if rc := run("import", []string{"-config", dst}, strings.NewReader(exported), &out); rc != 0 {
		t.Fatalf("import exit code %d", rc)
	}
	out.Reset()
	if rc := run("list", []string{"-config", dst}, nil, &out); rc != 0 {
		t.Fatalf("list exit code %d", rc)
	}
	if !strings.Contains(out.String(), "kept.txt") {
		t.Errorf("list after import = %q", out.String())
	}
}

func TestCommandsLeaveInFlightTempFiles(t *testing.T) {
	cfg := writeConfig(t)
	files := filepath.Join(filepath.Dir(cfg), "internal", "files")
	if err := os.MkdirAll(files, 0o700); err != nil {
		t.Fatal(err)
	}
	inFlight := filepath.Join(files, ".tmp-0123456789abcdef")
	if err := os.WriteFile(inFlight, []byte("partial"), 0o600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	for _, command := range []string{"paths", "exists", "list"} {
		run(command, []string{"-config", cfg, "-name", "other.txt"}, nil, &out)
		if _, err := os.Stat(inFlight); err != nil {
			t.Fatalf("after %s: temp file of a concurrent write was removed: %v", command, err)
		}
	}
}

func TestCreateRejectsReservedName(t *testing.T) {
	cfg := writeConfig(t)
	var out bytes.Buffer
	if rc := run("create", []string{"-config", cfg, "-name", ".tmp-notes"}, nil, &out); rc != 1 {
		t.Errorf("create .tmp-notes: exit code %d, want 1", rc)
	}
	if out.Len() != 0 {
		t.Errorf("create printed %q for a rejected name", out.String())
	}
}
