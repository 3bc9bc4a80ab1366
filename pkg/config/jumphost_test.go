package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSourceDefaultsWhenFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jumphost.json")
	defaults := Jumphost{Enabled: true, Host: "bastion.example.net", Port: 22, Username: "jumper"}

	s, err := NewSource(path, defaults)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Current(); got != defaults {
		t.Errorf("Current = %+v, want defaults %+v", got, defaults)
	}
}

func TestSourceSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "jumphost.json")
	s, err := NewSource(path, Jumphost{})
	if err != nil {
		t.Fatal(err)
	}

	record := Jumphost{Enabled: true, Host: "bastion.example.net", Username: "jumper", Password: "secret"}
	if err := s.Save(record); err != nil {
		t.Fatal(err)
	}
	// Port defaults on save.
	if got := s.Current(); got.Port != 22 {
		t.Errorf("port = %d, want 22", got.Port)
	}

	// The record is private to the operator.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("file mode = %o, want 0600", info.Mode().Perm())
	}

	// A fresh source reads the persisted record, not the defaults.
	reloaded, err := NewSource(path, Jumphost{})
	if err != nil {
		t.Fatal(err)
	}
	got := reloaded.Current()
	if !got.Enabled || got.Host != "bastion.example.net" || got.Password != "secret" {
		t.Errorf("reloaded = %+v", got)
	}
}

func TestSourceSaveValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jumphost.json")
	s, err := NewSource(path, Jumphost{})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(Jumphost{Enabled: true}); err == nil {
		t.Fatal("enabled record without host should fail validation")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("invalid record must not be persisted")
	}
}

func TestSourceInvalidatesObservers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jumphost.json")
	s, err := NewSource(path, Jumphost{})
	if err != nil {
		t.Fatal(err)
	}

	calls := 0
	s.OnInvalidate(func() { calls++ })

	if err := s.Save(Jumphost{Enabled: false}); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("observer calls = %d, want 1", calls)
	}

	// Failed saves do not invalidate.
	s.Save(Jumphost{Enabled: true})
	if calls != 1 {
		t.Errorf("observer calls after invalid save = %d, want still 1", calls)
	}
}

func TestSourceRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jumphost.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSource(path, Jumphost{}); err == nil {
		t.Error("corrupt record should fail to load")
	}
}
