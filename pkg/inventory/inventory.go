// Package inventory defines the device inventory consumed by automation jobs.
package inventory

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Device is one router in the inventory. Username/Password are historical
// fields kept for round-tripping older inventories; authentication uses the
// credentials resolver, never these fields.
type Device struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Address  string `yaml:"address" json:"address"`
	Port     int    `yaml:"port,omitempty" json:"port"`
	Protocol string `yaml:"protocol,omitempty" json:"protocol"`
	Software string `yaml:"software,omitempty" json:"software"`
	Platform string `yaml:"platform,omitempty" json:"platform"`
	Username string `yaml:"username,omitempty" json:"-"`
	Password string `yaml:"password,omitempty" json:"-"`
}

// Country derives the ISO 3166-1 alpha-3 style country code from the first
// three characters of the hostname ("deu-r6" -> "DEU"). Returns "UNK" when
// the name is too short or not alphabetic.
func (d Device) Country() string {
	if len(d.Name) < 3 {
		return "UNK"
	}
	code := d.Name[:3]
	for _, r := range code {
		if !unicode.IsLetter(r) {
			return "UNK"
		}
	}
	return strings.ToUpper(code)
}

// File is the on-disk inventory document.
type File struct {
	Devices []Device `yaml:"devices"`
}

// Load reads and validates a YAML inventory file.
func Load(path string) ([]Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing inventory %s: %w", path, err)
	}

	seen := make(map[string]bool, len(f.Devices))
	for i := range f.Devices {
		d := &f.Devices[i]
		if d.ID == "" {
			return nil, fmt.Errorf("inventory %s: device %d: missing id", path, i)
		}
		if d.Name == "" {
			return nil, fmt.Errorf("inventory %s: device %s: missing name", path, d.ID)
		}
		if d.Address == "" {
			return nil, fmt.Errorf("inventory %s: device %s: missing address", path, d.ID)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("inventory %s: duplicate device id %s", path, d.ID)
		}
		seen[d.ID] = true
		if d.Port == 0 {
			d.Port = 22
		}
		if d.Protocol == "" {
			d.Protocol = "ssh"
		}
	}
	return f.Devices, nil
}
