// Package job tracks automation job state: per-device and per-command
// progress, country rollups, and the event stream consumed by subscribers.
package job

// Status is the lifecycle state of a job.
type Status string

const (
	StatusRunning   Status = "running"
	StatusStopping  Status = "stopping"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// DeviceStatus tracks one device through its connect/execute/disconnect arc.
type DeviceStatus string

const (
	DevicePending       DeviceStatus = "pending"
	DeviceConnecting    DeviceStatus = "connecting"
	DeviceConnected     DeviceStatus = "connected"
	DeviceExecuting     DeviceStatus = "executing"
	DeviceRunning       DeviceStatus = "running"
	DeviceDisconnecting DeviceStatus = "disconnecting"
	DeviceDisconnected  DeviceStatus = "disconnected"
	DeviceCompleted     DeviceStatus = "completed"
	DeviceFailed        DeviceStatus = "failed"
	DeviceConnFailed    DeviceStatus = "connection_failed"
	DeviceStopped       DeviceStatus = "stopped"
)

// activeStatuses count as "running" in country rollups.
func (s DeviceStatus) active() bool {
	switch s {
	case DeviceRunning, DeviceConnecting, DeviceConnected, DeviceExecuting, DeviceDisconnecting:
		return true
	}
	return false
}

// CommandStatus is the state of one command on one device.
type CommandStatus string

const (
	CommandPending CommandStatus = "pending"
	CommandRunning CommandStatus = "running"
	CommandSuccess CommandStatus = "success"
	CommandFailed  CommandStatus = "failed"
)

// EventKind labels broadcast events.
type EventKind string

const (
	EventJobCreated    EventKind = "job_created"
	EventDeviceStatus  EventKind = "device_status_update"
	EventCommandUpdate EventKind = "command_update"
	EventProgress      EventKind = "progress_update"
	EventExecution     EventKind = "execution_update"
	EventJobStopping   EventKind = "job_stopping"
	EventJobCompleted  EventKind = "job_completed"
	EventJobFailed     EventKind = "job_failed"
)

// CommandProgress is the tracked state of one command on one device.
type CommandProgress struct {
	Command       string        `json:"command"`
	Status        CommandStatus `json:"status"`
	Percent       int           `json:"percent"`
	ExecutionTime float64       `json:"execution_time,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// DeviceProgress is the tracked state of one device within a job.
type DeviceProgress struct {
	DeviceName        string            `json:"device_name"`
	Country           string            `json:"country"`
	Status            DeviceStatus      `json:"status"`
	CompletedCommands int               `json:"completed_commands"`
	TotalCommands     int               `json:"total_commands"`
	Percent           int               `json:"percent"`
	Commands          []CommandProgress `json:"commands"`
	Errors            []string          `json:"errors,omitempty"`
}

// CountryStats is the per-country rollup, recomputed from device progress on
// every update.
type CountryStats struct {
	TotalDevices      int     `json:"total_devices"`
	CompletedDevices  int     `json:"completed_devices"`
	RunningDevices    int     `json:"running_devices"`
	FailedDevices     int     `json:"failed_devices"`
	PendingDevices    int     `json:"pending_devices"`
	TotalCommands     int     `json:"total_commands"`
	CompletedCommands int     `json:"completed_commands"`
	StartTime         string  `json:"start_time,omitempty"`
	EndTime           string  `json:"end_time,omitempty"`
	ElapsedSeconds    float64 `json:"elapsed_seconds"`
	DevicePercent     int     `json:"device_percent"`
	CommandPercent    int     `json:"command_percent"`
	Percent           int     `json:"percent"`
}

// CurrentDevice identifies the device a job is actively working on.
type CurrentDevice struct {
	DeviceID       string `json:"device_id"`
	DeviceName     string `json:"device_name"`
	Country        string `json:"country"`
	Status         string `json:"status"`
	CurrentCommand string `json:"current_command,omitempty"`
}

// CommandOutcome is the recorded result of one command in a device result.
type CommandOutcome struct {
	Command       string  `json:"command"`
	Status        string  `json:"status"`
	ExecutionTime float64 `json:"execution_time_seconds,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// DeviceResult is the final per-device record stored on job completion.
type DeviceResult struct {
	DeviceID   string           `json:"device_id"`
	DeviceName string           `json:"device_name"`
	Status     string           `json:"status"`
	Error      string           `json:"error,omitempty"`
	Commands   []CommandOutcome `json:"commands"`
}

// Job is the full tracked state of one automation run.
type Job struct {
	ID               string                     `json:"id"`
	Status           Status                     `json:"status"`
	StartTime        string                     `json:"start_time"`
	EndTime          string                     `json:"end_time,omitempty"`
	TotalDevices     int                        `json:"total_devices"`
	CompletedDevices int                        `json:"completed_devices"`
	ProgressPercent  int                        `json:"progress_percent"`
	Results          map[string]DeviceResult    `json:"results"`
	Errors           []string                   `json:"errors"`
	Error            string                     `json:"error,omitempty"`
	StopRequested    bool                       `json:"stop_requested"`
	DeviceProgress   map[string]*DeviceProgress `json:"device_progress"`
	CountryStats     map[string]*CountryStats   `json:"country_stats"`
	CurrentDevice    *CurrentDevice             `json:"current_device"`
	ExecutionID      string                     `json:"execution_id,omitempty"`
}

// Snapshot is the broadcast view of a job, deep-copied so subscribers never
// race the manager.
type Snapshot struct {
	Event            EventKind                 `json:"event"`
	JobID            string                    `json:"job_id"`
	Status           Status                    `json:"status"`
	ProgressPercent  int                       `json:"progress_percent"`
	TotalDevices     int                       `json:"total_devices"`
	CompletedDevices int                       `json:"completed_devices"`
	CurrentDevice    *CurrentDevice            `json:"current_device"`
	DeviceProgress   map[string]DeviceProgress `json:"device_progress"`
	CountryStats     map[string]CountryStats   `json:"country_stats"`
	Errors           []string                  `json:"errors"`
}
