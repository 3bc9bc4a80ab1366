package inventory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeInventory(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeInventory(t, `devices:
  - id: gbr-lon-r1
    name: gbr-lon-r1
    address: 10.1.1.1
  - id: deu-fra-r2
    name: deu-fra-r2
    address: 10.2.1.1
    port: 2222
    platform: ASR-9901
`)
	devices, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(devices) != 2 {
		t.Fatalf("devices = %d, want 2", len(devices))
	}
	// Defaults fill in.
	if devices[0].Port != 22 || devices[0].Protocol != "ssh" {
		t.Errorf("defaults = port %d protocol %q, want 22/ssh", devices[0].Port, devices[0].Protocol)
	}
	if devices[1].Port != 2222 {
		t.Errorf("explicit port = %d, want 2222", devices[1].Port)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing id", "devices:\n  - name: r1\n    address: 10.0.0.1\n", "missing id"},
		{"missing name", "devices:\n  - id: r1\n    address: 10.0.0.1\n", "missing name"},
		{"missing address", "devices:\n  - id: r1\n    name: r1\n", "missing address"},
		{"duplicate id", `devices:
  - id: r1
    name: r1
    address: 10.0.0.1
  - id: r1
    name: r1-again
    address: 10.0.0.2
`, "duplicate device id"},
		{"bad yaml", "devices: [", "parsing inventory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeInventory(t, tt.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing file should error")
	}
}

func TestCountry(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"gbr-lon-r1", "GBR"},
		{"deu-r6", "DEU"},
		{"USA-nyc-r1", "USA"},
		{"r1", "UNK"},
		{"12x-r1", "UNK"},
		{"", "UNK"},
	}
	for _, tt := range tests {
		d := Device{Name: tt.name}
		if got := d.Country(); got != tt.want {
			t.Errorf("Country(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
