package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromFileMissingIsEmpty(t *testing.T) {
	contacted, err := FromFile(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contacted.Entries) != 0 {
		t.Fatalf("expected empty history, got %+v", contacted.Entries)
	}
}

func TestAppendAndRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	contacted := &Contacted{}
	added := contacted.Append(
		Entry{CompanyName: "Acme", ContactEmail: "ada@acme.io", ContactedAt: at},
		Entry{CompanyName: "ACME", ContactEmail: "other@acme.io", ContactedAt: at},
		Entry{CompanyName: "Globex", ContactEmail: "hello@globex.dev", ContactedAt: at},
	)
	if added != 2 {
		t.Fatalf("expected 2 entries added, got %d", added)
	}

	if err := contacted.ToFile(path); err != nil {
		t.Fatalf("write: %v", err)
	}

	// a shorter rewrite must not leave trailing bytes from the previous content
	shorter := &Contacted{Entries: contacted.Entries[:1]}
	if err := shorter.ToFile(path); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	loaded, err := FromFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !loaded.Has("acme") || loaded.Has("Globex") {
		t.Fatalf("unexpected history contents: %+v", loaded.Entries)
	}
}

func TestToFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "outreach", "contacted.json")

	contacted := &Contacted{}
	contacted.Append(Entry{CompanyName: "Acme", ContactEmail: "ada@acme.io"})
	if err := contacted.ToFile(path); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := FromFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !loaded.Has("Acme") {
		t.Fatalf("expected Acme in %+v", loaded.Entries)
	}
}

func TestToFileFailsWhenParentIsAFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := (&Contacted{}).ToFile(filepath.Join(blocker, "contacted.json")); err == nil {
		t.Fatal("expected error when the parent is a regular file")
	}
}

func TestFromFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("[oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := FromFile(path); err == nil {
		t.Fatal("expected decode error")
	}
}
