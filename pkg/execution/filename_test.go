package execution

import (
	"testing"
	"time"
)

func TestFilenameRoundTrip(t *testing.T) {
	ts := time.Date(2026, 8, 24, 15, 30, 5, 0, time.Local)

	name := Filename("gbr-lon-r1", "show ospf neighbor", ts, "txt")
	if name != "gbr-lon-r1_show_ospf_neighbor_2026-08-24_15-30-05.txt" {
		t.Fatalf("Filename = %q", name)
	}

	p, err := ParseFilename("gbr-lon-r1", name)
	if err != nil {
		t.Fatal(err)
	}
	if p.Command != "show ospf neighbor" {
		t.Errorf("command = %q", p.Command)
	}
	if !p.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", p.Timestamp, ts)
	}
	if p.Ext != "txt" {
		t.Errorf("ext = %q", p.Ext)
	}
}

func TestFilenameSlashCommand(t *testing.T) {
	ts := time.Date(2026, 8, 24, 15, 30, 5, 0, time.Local)
	name := Filename("deu-fra-r2", "show interfaces Gi0/0/0/1", ts, "json")
	if name != "deu-fra-r2_show_interfaces_Gi0-0-0-1_2026-08-24_15-30-05.json" {
		t.Fatalf("Filename = %q", name)
	}

	// Slash substitution is lossy: hyphens stay hyphens on the way back.
	p, err := ParseFilename("deu-fra-r2", name)
	if err != nil {
		t.Fatal(err)
	}
	if p.Command != "show interfaces Gi0-0-0-1" {
		t.Errorf("command = %q", p.Command)
	}
}

func TestParseFilenameErrors(t *testing.T) {
	tests := []struct {
		device string
		name   string
	}{
		{"gbr-lon-r1", "metadata.json"},
		{"gbr-lon-r1", "gbr-lon-r1_show_version.txt"},
		{"gbr-lon-r1", "deu-fra-r2_show_version_2026-08-24_15-30-05.txt"},
		{"gbr-lon-r1", "gbr-lon-r1_show_version_2026-08-24_15-30-05.csv"},
	}
	for _, tt := range tests {
		if _, err := ParseFilename(tt.device, tt.name); err == nil {
			t.Errorf("ParseFilename(%q, %q) succeeded, want error", tt.device, tt.name)
		}
	}
}
