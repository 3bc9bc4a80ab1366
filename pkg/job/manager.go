package job

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/netgrid-io/netgrid/pkg/inventory"
	"github.com/netgrid-io/netgrid/pkg/util"
)

// Manager owns all job state behind a single mutex. Every mutation
// broadcasts a deep-copied snapshot; subscribers observe updates in order.
type Manager struct {
	mu          sync.Mutex
	clock       clockwork.Clock
	jobs        map[string]*Job
	broadcaster *Broadcaster
}

// NewManager creates a manager with the given clock (use a fake in tests)
// and broadcaster.
func NewManager(clock clockwork.Clock, broadcaster *Broadcaster) *Manager {
	return &Manager{
		clock:       clock,
		jobs:        make(map[string]*Job),
		broadcaster: broadcaster,
	}
}

// CreateJob registers a new running job for the device list and returns its
// id. Device and country progress structures are initialized to pending.
func (m *Manager) CreateJob(devices []inventory.Device) string {
	jobID := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()

	progress := make(map[string]*DeviceProgress, len(devices))
	countries := make(map[string]*CountryStats)
	for _, d := range devices {
		country := d.Country()
		progress[d.ID] = &DeviceProgress{
			DeviceName: d.Name,
			Country:    country,
			Status:     DevicePending,
			Commands:   []CommandProgress{},
		}
		if _, ok := countries[country]; !ok {
			countries[country] = &CountryStats{}
		}
		countries[country].TotalDevices++
		countries[country].PendingDevices++
	}

	m.jobs[jobID] = &Job{
		ID:              jobID,
		Status:          StatusRunning,
		StartTime:       m.clock.Now().Format(time.RFC3339),
		TotalDevices:    len(devices),
		Results:         make(map[string]DeviceResult),
		Errors:          []string{},
		DeviceProgress:  progress,
		CountryStats:    countries,
	}
	m.broadcast(jobID, EventJobCreated)

	util.WithFields(map[string]interface{}{
		"job":     jobID,
		"devices": len(devices),
	}).Info("job created")
	return jobID
}

// GetJob returns a deep copy of the job, or ErrNotFound.
func (m *Manager) GetJob(jobID string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return nil, util.ErrNotFound
	}
	return copyJob(j), nil
}

// LatestJob returns a copy of the most recently started job, or ErrNotFound
// when none exist.
func (m *Manager) LatestJob() (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.jobs) == 0 {
		return nil, util.ErrNotFound
	}
	all := make([]*Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		all = append(all, j)
	}
	sort.Slice(all, func(i, k int) bool { return all[i].StartTime > all[k].StartTime })
	return copyJob(all[0]), nil
}

// SetExecutionID ties the job to its execution directory.
func (m *Manager) SetExecutionID(jobID, executionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[jobID]; ok {
		j.ExecutionID = executionID
	}
}

// InitDeviceCommands seeds the per-command tracking list for a device and
// adds the command count to the country rollup.
func (m *Manager) InitDeviceCommands(jobID, deviceID string, commands []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return
	}
	p, ok := j.DeviceProgress[deviceID]
	if !ok {
		return
	}
	p.TotalCommands = len(commands)
	p.Commands = make([]CommandProgress, len(commands))
	for i, cmd := range commands {
		p.Commands[i] = CommandProgress{Command: cmd, Status: CommandPending}
	}
	if cs, ok := j.CountryStats[p.Country]; ok {
		cs.TotalCommands += len(commands)
	}
}

// UpdateDeviceStatus moves a device through its lifecycle. Active statuses
// set the job's current device; terminal ones clear it when it matches.
func (m *Manager) UpdateDeviceStatus(jobID, deviceID string, status DeviceStatus, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return
	}
	p, ok := j.DeviceProgress[deviceID]
	if !ok {
		return
	}
	p.Status = status
	if errMsg != "" {
		p.Errors = append(p.Errors, errMsg)
	}

	switch status {
	case DeviceConnecting, DeviceConnected, DeviceExecuting:
		j.CurrentDevice = &CurrentDevice{
			DeviceID:   deviceID,
			DeviceName: p.DeviceName,
			Country:    p.Country,
			Status:     string(status),
		}
	case DeviceCompleted, DeviceFailed, DeviceDisconnected:
		if j.CurrentDevice != nil && j.CurrentDevice.DeviceID == deviceID {
			j.CurrentDevice = nil
		}
	}
	m.recomputeCountryStats(j)
	m.broadcast(jobID, EventDeviceStatus)
}

// UpdateCurrentExecution records the command a device is actively running.
func (m *Manager) UpdateCurrentExecution(jobID string, current CurrentDevice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return
	}
	j.CurrentDevice = &current
	m.broadcast(jobID, EventExecution)
}

// UpdateDeviceCommandStatus updates one command slot of a device. Terminal
// statuses bump completed counts and the device percent.
func (m *Manager) UpdateDeviceCommandStatus(jobID, deviceID string, commandIndex int, status CommandStatus, executionTime float64, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return
	}
	p, ok := j.DeviceProgress[deviceID]
	if !ok {
		return
	}

	if commandIndex >= 0 && commandIndex < len(p.Commands) {
		cmd := &p.Commands[commandIndex]
		cmd.Status = status
		switch status {
		case CommandSuccess:
			cmd.Percent = 100
		case CommandRunning, CommandFailed:
			cmd.Percent = 0
		}
		if executionTime > 0 {
			cmd.ExecutionTime = executionTime
		}
		if errMsg != "" {
			cmd.Error = errMsg
		}
	}

	if status == CommandSuccess || status == CommandFailed {
		p.CompletedCommands++
		if cs, ok := j.CountryStats[p.Country]; ok {
			cs.CompletedCommands++
		}
	}
	if status == CommandRunning {
		p.Status = DeviceRunning
	}
	if p.TotalCommands > 0 {
		p.Percent = p.CompletedCommands * 100 / p.TotalCommands
	}

	m.recomputeCountryStats(j)
	m.broadcast(jobID, EventCommandUpdate)
}

// UpdateJobProgress records a device's final result and advances overall
// progress. The job completes when every device has reported.
func (m *Manager) UpdateJobProgress(jobID, deviceID string, result DeviceResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return
	}

	j.CompletedDevices++
	j.ProgressPercent = j.CompletedDevices * 100 / j.TotalDevices
	j.Results[deviceID] = result

	if p, ok := j.DeviceProgress[deviceID]; ok {
		if result.Status != "" {
			p.Status = DeviceStatus(result.Status)
		} else {
			p.Status = DeviceCompleted
		}
	}

	event := EventProgress
	if j.CompletedDevices == j.TotalDevices {
		j.Status = StatusCompleted
		j.EndTime = m.clock.Now().Format(time.RFC3339)
		j.CurrentDevice = nil
		event = EventJobCompleted
	}

	m.recomputeCountryStats(j)
	m.broadcast(jobID, event)
}

// StopJob requests a cooperative stop. Only running jobs transition to
// stopping; in-flight device work finishes, pending work is skipped.
func (m *Manager) StopJob(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok || j.Status != StatusRunning {
		return
	}
	j.StopRequested = true
	j.Status = StatusStopping
	m.broadcast(jobID, EventJobStopping)
	util.WithJob(jobID).Warn("stop requested")
}

// IsStopRequested reports whether StopJob was called.
func (m *Manager) IsStopRequested(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	return ok && j.StopRequested
}

// FailJob marks the job failed with a terminal error.
func (m *Manager) FailJob(jobID, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return
	}
	j.Status = StatusFailed
	j.Error = errMsg
	j.EndTime = m.clock.Now().Format(time.RFC3339)
	j.CurrentDevice = nil
	m.broadcast(jobID, EventJobFailed)
	util.WithFields(map[string]interface{}{"job": jobID, "error": errMsg}).Error("job failed")
}

// recomputeCountryStats rebuilds every country rollup from device progress.
// Caller holds the lock.
func (m *Manager) recomputeCountryStats(j *Job) {
	now := m.clock.Now()

	for _, cs := range j.CountryStats {
		cs.CompletedDevices = 0
		cs.RunningDevices = 0
		cs.FailedDevices = 0
		cs.PendingDevices = 0
	}

	for _, p := range j.DeviceProgress {
		cs, ok := j.CountryStats[p.Country]
		if !ok {
			continue
		}
		switch {
		case p.Status == DeviceCompleted:
			cs.CompletedDevices++
		case p.Status == DeviceFailed:
			cs.FailedDevices++
		case p.Status.active():
			cs.RunningDevices++
			// Start time latches on the first device to go active.
			if cs.StartTime == "" {
				cs.StartTime = now.Format(time.RFC3339)
			}
		default:
			cs.PendingDevices++
		}
	}

	for _, cs := range j.CountryStats {
		if cs.TotalDevices > 0 {
			cs.DevicePercent = cs.CompletedDevices * 100 / cs.TotalDevices
		}
		if cs.TotalCommands > 0 {
			cs.CommandPercent = cs.CompletedCommands * 100 / cs.TotalCommands
		}
		// Command percent is the more granular signal.
		cs.Percent = cs.CommandPercent

		if cs.StartTime != "" {
			if start, err := time.Parse(time.RFC3339, cs.StartTime); err == nil {
				cs.ElapsedSeconds = now.Sub(start).Seconds()
			}
		}
		if cs.CompletedDevices+cs.FailedDevices == cs.TotalDevices &&
			cs.EndTime == "" && cs.StartTime != "" {
			cs.EndTime = now.Format(time.RFC3339)
		}
	}
}

// broadcast publishes a snapshot. Caller holds the lock; the broadcaster
// never blocks.
func (m *Manager) broadcast(jobID string, kind EventKind) {
	if m.broadcaster == nil {
		return
	}
	j, ok := m.jobs[jobID]
	if !ok {
		return
	}
	m.broadcaster.Publish(snapshotOf(j, kind))
}

func snapshotOf(j *Job, kind EventKind) Snapshot {
	s := Snapshot{
		Event:            kind,
		JobID:            j.ID,
		Status:           j.Status,
		ProgressPercent:  j.ProgressPercent,
		TotalDevices:     j.TotalDevices,
		CompletedDevices: j.CompletedDevices,
		DeviceProgress:   make(map[string]DeviceProgress, len(j.DeviceProgress)),
		CountryStats:     make(map[string]CountryStats, len(j.CountryStats)),
		Errors:           append([]string{}, j.Errors...),
	}
	if j.CurrentDevice != nil {
		cd := *j.CurrentDevice
		s.CurrentDevice = &cd
	}
	for id, p := range j.DeviceProgress {
		cp := *p
		cp.Commands = append([]CommandProgress{}, p.Commands...)
		cp.Errors = append([]string{}, p.Errors...)
		s.DeviceProgress[id] = cp
	}
	for c, cs := range j.CountryStats {
		s.CountryStats[c] = *cs
	}
	return s
}

func copyJob(j *Job) *Job {
	out := *j
	out.Results = make(map[string]DeviceResult, len(j.Results))
	for k, v := range j.Results {
		v.Commands = append([]CommandOutcome{}, v.Commands...)
		out.Results[k] = v
	}
	out.Errors = append([]string{}, j.Errors...)
	out.DeviceProgress = make(map[string]*DeviceProgress, len(j.DeviceProgress))
	for k, v := range j.DeviceProgress {
		cp := *v
		cp.Commands = append([]CommandProgress{}, v.Commands...)
		cp.Errors = append([]string{}, v.Errors...)
		out.DeviceProgress[k] = &cp
	}
	out.CountryStats = make(map[string]*CountryStats, len(j.CountryStats))
	for k, v := range j.CountryStats {
		cs := *v
		out.CountryStats[k] = &cs
	}
	if j.CurrentDevice != nil {
		cd := *j.CurrentDevice
		out.CurrentDevice = &cd
	}
	return &out
}
