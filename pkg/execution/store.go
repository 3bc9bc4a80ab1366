// Package execution manages the on-disk layout of job runs. Each run gets an
// isolated directory data/executions/<execution_id>/ with TEXT/ and JSON/
// subdirectories plus a metadata.json; data/current is a symlink to the most
// recently completed run.
package execution

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/netgrid-io/netgrid/pkg/util"
)

// NewID derives an execution id from the start time and job id:
// "exec_20260824_153000_1b9f04a2".
func NewID(now time.Time, jobID string) string {
	short := jobID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("exec_%s_%s", now.Format("20060102_150405"), short)
}

// DeviceRef identifies a device in execution metadata.
type DeviceRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	IP   string `json:"ip"`
}

// Results summarizes a finished run.
type Results struct {
	TotalDevices     int     `json:"total_devices"`
	CompletedDevices int     `json:"completed_devices"`
	ProgressPercent  float64 `json:"progress_percent"`
}

// Metadata is the per-run metadata.json document. Results and time fields
// are only populated by the final write.
type Metadata struct {
	ExecutionID  string      `json:"execution_id"`
	JobID        string      `json:"job_id"`
	Timestamp    string      `json:"timestamp"`
	StartTime    string      `json:"start_time,omitempty"`
	EndTime      string      `json:"end_time,omitempty"`
	Status       string      `json:"status"`
	Devices      []DeviceRef `json:"devices"`
	Commands     []string    `json:"commands"`
	TotalDevices int         `json:"total_devices,omitempty"`
	Results      *Results    `json:"results,omitempty"`
	Files        *FileDirs   `json:"files,omitempty"`
}

// FileDirs records where a run's artifacts landed.
type FileDirs struct {
	TextDir string `json:"text_dir"`
	JSONDir string `json:"json_dir"`
}

// Execution is one run's directory handle.
type Execution struct {
	ID      string
	Dir     string
	TextDir string
	JSONDir string
}

// Summary is one entry of a run listing.
type Summary struct {
	ExecutionID string `json:"execution_id"`
	Timestamp   string `json:"timestamp"`
	Devices     int    `json:"devices"`
	Status      string `json:"status"`
	JobID       string `json:"job_id"`
}

// Store manages execution directories under a data root.
type Store struct {
	dataDir string
}

// NewStore creates a store rooted at dataDir.
func NewStore(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

func (s *Store) executionsDir() string {
	return filepath.Join(s.dataDir, "executions")
}

func (s *Store) currentLink() string {
	return filepath.Join(s.dataDir, "current")
}

// Create makes the run directory with TEXT/ and JSON/ subdirectories.
func (s *Store) Create(executionID string) (*Execution, error) {
	dir := filepath.Join(s.executionsDir(), executionID)
	e := &Execution{
		ID:      executionID,
		Dir:     dir,
		TextDir: filepath.Join(dir, "TEXT"),
		JSONDir: filepath.Join(dir, "JSON"),
	}
	for _, d := range []string{e.TextDir, e.JSONDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return nil, &util.OpError{Op: "create execution", Err: err}
		}
	}
	return e, nil
}

// WriteMetadata writes metadata.json for a run atomically.
func (s *Store) WriteMetadata(executionID string, m Metadata) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.executionsDir(), executionID, "metadata.json")
	return WriteFileAtomic(path, data)
}

// ReadMetadata loads a run's metadata.json.
func (s *Store) ReadMetadata(executionID string) (*Metadata, error) {
	path := filepath.Join(s.executionsDir(), executionID, "metadata.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// SetCurrent atomically repoints the data/current symlink at the run. The
// swap goes through a temp link and rename so readers never observe a
// missing pointer.
func (s *Store) SetCurrent(executionID string) error {
	target := filepath.Join(s.executionsDir(), executionID)
	link := s.currentLink()
	tmp := link + ".tmp"

	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Symlink(target, tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, link); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Current resolves the data/current pointer to an execution handle.
func (s *Store) Current() (*Execution, error) {
	target, err := os.Readlink(s.currentLink())
	if err != nil {
		return nil, util.ErrNotFound
	}
	id := filepath.Base(target)
	return &Execution{
		ID:      id,
		Dir:     target,
		TextDir: filepath.Join(target, "TEXT"),
		JSONDir: filepath.Join(target, "JSON"),
	}, nil
}

// List returns summaries for all runs, newest first. Runs without readable
// metadata are skipped.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.executionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []Summary
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		m, err := s.ReadMetadata(entry.Name())
		if err != nil {
			continue
		}
		out = append(out, Summary{
			ExecutionID: entry.Name(),
			Timestamp:   m.Timestamp,
			Devices:     len(m.Devices),
			Status:      m.Status,
			JobID:       m.JobID,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

// WriteFileAtomic writes data via a temp file, fsync, and rename so a crash
// never leaves a partial artifact in place.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
