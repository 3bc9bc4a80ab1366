package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Jumphost is the bastion configuration. When enabled, all device sessions are
// tunneled through the jumphost and its credentials are used for device
// authentication.
type Jumphost struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks the record for internal consistency.
func (j Jumphost) Validate() error {
	if j.Enabled && j.Host == "" {
		return &ConfigError{Field: "jumphost.host", Reason: "required when jumphost is enabled"}
	}
	return nil
}

// Source is the mutable store for the jumphost record. Current returns a
// snapshot; Save persists a new record and notifies invalidation observers so
// cached transports (the shared bastion tunnel) are torn down before the next
// connect.
type Source struct {
	mu        sync.Mutex
	path      string
	current   Jumphost
	observers []func()
}

// NewSource loads the record from path, falling back to defaults when the
// file does not exist.
func NewSource(path string, defaults Jumphost) (*Source, error) {
	s := &Source{path: path, current: defaults}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	var j Jumphost
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, err
	}
	if j.Port == 0 {
		j.Port = 22
	}
	s.current = j
	return s, nil
}

// Current returns a snapshot of the jumphost record.
func (s *Source) Current() Jumphost {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Save validates and persists a new record, then invalidates observers.
func (s *Source) Save(j Jumphost) error {
	if err := j.Validate(); err != nil {
		return err
	}
	if j.Port == 0 {
		j.Port = 22
	}

	s.mu.Lock()
	data, err := json.MarshalIndent(j, "", "    ")
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		s.mu.Unlock()
		return err
	}
	s.current = j
	observers := append([]func(){}, s.observers...)
	s.mu.Unlock()

	// Observers run outside the lock; they may call back into Current.
	for _, fn := range observers {
		fn()
	}
	return nil
}

// OnInvalidate registers a callback invoked after every successful Save.
func (s *Source) OnInvalidate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}
