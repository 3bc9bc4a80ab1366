package execution

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/netgrid-io/netgrid/pkg/util"
)

func TestNewID(t *testing.T) {
	now := time.Date(2026, 8, 24, 15, 30, 0, 0, time.UTC)
	got := NewID(now, "1b9f04a2-5e1c-4f7d-9c3e-000000000000")
	if got != "exec_20260824_153000_1b9f04a2" {
		t.Errorf("NewID = %q", got)
	}
	// Short job ids pass through untruncated.
	if got := NewID(now, "abc"); got != "exec_20260824_153000_abc" {
		t.Errorf("NewID short = %q", got)
	}
}

func TestStoreLifecycle(t *testing.T) {
	dataDir := t.TempDir()
	s := NewStore(dataDir)

	e, err := s.Create("exec_20260824_153000_aaaa")
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range []string{e.TextDir, e.JSONDir} {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Fatalf("subdirectory %s missing: %v", d, err)
		}
	}

	meta := Metadata{
		ExecutionID: e.ID,
		JobID:       "job-1",
		Timestamp:   "2026-08-24T15:30:00Z",
		Status:      "running",
		Devices:     []DeviceRef{{ID: "gbr-lon-r1", Name: "gbr-lon-r1", IP: "10.1.1.1"}},
		Commands:    []string{"show version"},
	}
	if err := s.WriteMetadata(e.ID, meta); err != nil {
		t.Fatal(err)
	}

	got, err := s.ReadMetadata(e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.JobID != "job-1" || got.Status != "running" {
		t.Errorf("metadata round-trip = %+v", got)
	}
	if len(got.Devices) != 1 || got.Devices[0].IP != "10.1.1.1" {
		t.Errorf("devices = %+v", got.Devices)
	}

	if _, err := s.ReadMetadata("exec_nope"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("missing metadata error = %v, want ErrNotFound", err)
	}

	// No tmp leftovers from the atomic write.
	entries, _ := os.ReadDir(e.Dir)
	for _, entry := range entries {
		if entry.Name() != "metadata.json" && entry.Name() != "TEXT" && entry.Name() != "JSON" {
			t.Errorf("unexpected leftover %q in run dir", entry.Name())
		}
	}
}

func TestSetCurrent(t *testing.T) {
	dataDir := t.TempDir()
	s := NewStore(dataDir)

	if _, err := s.Current(); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("current with no link = %v, want ErrNotFound", err)
	}

	first, err := s.Create("exec_20260824_100000_aaaa")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetCurrent(first.ID); err != nil {
		t.Fatal(err)
	}
	cur, err := s.Current()
	if err != nil {
		t.Fatal(err)
	}
	if cur.ID != first.ID {
		t.Errorf("current = %s, want %s", cur.ID, first.ID)
	}
	if cur.TextDir != filepath.Join(first.Dir, "TEXT") {
		t.Errorf("text dir = %s", cur.TextDir)
	}

	// Repointing swaps over an existing link.
	second, err := s.Create("exec_20260824_110000_bbbb")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetCurrent(second.ID); err != nil {
		t.Fatal(err)
	}
	cur, err = s.Current()
	if err != nil {
		t.Fatal(err)
	}
	if cur.ID != second.ID {
		t.Errorf("current after swap = %s, want %s", cur.ID, second.ID)
	}
}

func TestListNewestFirst(t *testing.T) {
	dataDir := t.TempDir()
	s := NewStore(dataDir)

	if got, err := s.List(); err != nil || got != nil {
		t.Fatalf("empty list = %v, %v", got, err)
	}

	runs := []struct{ id, ts string }{
		{"exec_20260823_090000_aaaa", "2026-08-23T09:00:00Z"},
		{"exec_20260824_153000_bbbb", "2026-08-24T15:30:00Z"},
		{"exec_20260824_100000_cccc", "2026-08-24T10:00:00Z"},
	}
	for _, r := range runs {
		if _, err := s.Create(r.id); err != nil {
			t.Fatal(err)
		}
		if err := s.WriteMetadata(r.id, Metadata{
			ExecutionID: r.id, JobID: "job", Timestamp: r.ts, Status: "completed",
		}); err != nil {
			t.Fatal(err)
		}
	}
	// A run without metadata is skipped, not an error.
	if _, err := s.Create("exec_20260824_160000_dddd"); err != nil {
		t.Fatal(err)
	}

	got, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("entries = %d, want 3", len(got))
	}
	wantOrder := []string{
		"exec_20260824_153000_bbbb",
		"exec_20260824_100000_cccc",
		"exec_20260823_090000_aaaa",
	}
	for i, want := range wantOrder {
		if got[i].ExecutionID != want {
			t.Errorf("entry %d = %s, want %s", i, got[i].ExecutionID, want)
		}
	}
}

func TestWriteFileAtomicOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := WriteFileAtomic(path, []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(path, []byte("two")); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "two" {
		t.Errorf("content = %q, want overwrite to win", data)
	}
}
