// Package runner executes single commands on a connected device session and
// persists both raw and parsed artifacts into the execution directory.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/netgrid-io/netgrid/pkg/device"
	"github.com/netgrid-io/netgrid/pkg/execution"
	"github.com/netgrid-io/netgrid/pkg/parser"
	"github.com/netgrid-io/netgrid/pkg/util"
)

// OSPFCommands is the default data-collection battery used when a job does
// not supply its own command list.
var OSPFCommands = []string{
	"terminal length 0",
	"show process cpu",
	"show process memory",
	"show route connected",
	"show route ospf",
	"show ospf database",
	"show ospf database self-originate",
	"show ospf database router",
	"show ospf database network",
	"show ospf interface brief",
	"show ospf neighbor",
	"show running-config router ospf",
	"show cdp neighbor",
	"show cdp neighbor detail",
	"show interface description",
	"show interface brief",
	"show ipv4 interface brief",
	"show interface",
	"show bundle",
}

// commandTimeouts maps a lowercase command prefix to its read timeout. Large
// outputs (full configs, LSA databases) get longer budgets.
var commandTimeouts = []struct {
	prefix  string
	timeout time.Duration
}{
	{"show running-config", 180 * time.Second},
	{"show ospf database", 120 * time.Second},
	{"show interface", 120 * time.Second},
	{"show cdp neighbor detail", 90 * time.Second},
	{"terminal length 0", 10 * time.Second},
}

const defaultTimeout = 60 * time.Second

// CommandTimeout returns the read timeout for a command by longest-prefix
// table match.
func CommandTimeout(command string) time.Duration {
	cmd := strings.ToLower(strings.TrimSpace(command))
	for _, e := range commandTimeouts {
		if strings.HasPrefix(cmd, e.prefix) {
			return e.timeout
		}
	}
	return defaultTimeout
}

// CommandResult reports one command's outcome. Status is "success" whenever
// the transport delivered output before the timeout; device-side error text
// still counts as success.
type CommandResult struct {
	Status        string  `json:"status"`
	Command       string  `json:"command"`
	DeviceID      string  `json:"device_id"`
	DeviceName    string  `json:"device_name"`
	Output        string  `json:"output,omitempty"`
	OutputLength  int     `json:"output_length"`
	ExecutionTime float64 `json:"execution_time_seconds"`
	Filename      string  `json:"filename,omitempty"`
	Timestamp     string  `json:"timestamp"`
	Error         string  `json:"error,omitempty"`
}

// artifact is the JSON document written beside the raw text output.
type artifact struct {
	Command       string        `json:"command"`
	DeviceID      string        `json:"device_id"`
	DeviceName    string        `json:"device_name"`
	Timestamp     string        `json:"timestamp"`
	ExecutionTime float64       `json:"execution_time_seconds"`
	ParsedData    parser.Result `json:"parsed_data"`
	RawOutput     string        `json:"raw_output"`
}

// Runner executes commands against sessions and writes artifacts into one
// execution's TEXT/ and JSON/ directories.
type Runner struct {
	exec *execution.Execution
}

// New creates a runner bound to an execution directory.
func New(exec *execution.Execution) *Runner {
	return &Runner{exec: exec}
}

// Run executes the command on the session, writes the TEXT and JSON
// artifacts atomically, and returns the result. Only transport failures and
// timeouts produce an error status.
func (r *Runner) Run(ctx context.Context, sess *device.Session, command string) CommandResult {
	d := sess.Device()
	start := time.Now()

	util.WithFields(map[string]interface{}{
		"device":  d.Name,
		"command": command,
	}).Info("executing command")

	output, elapsed, err := sess.Run(ctx, command, CommandTimeout(command))
	if err != nil {
		util.WithFields(map[string]interface{}{
			"device":  d.Name,
			"command": command,
			"error":   err,
		}).Error("command failed")
		return CommandResult{
			Status:     "error",
			Command:    command,
			DeviceID:   d.ID,
			DeviceName: d.Name,
			Timestamp:  start.Format(time.RFC3339),
			Error:      err.Error(),
		}
	}

	seconds := elapsed.Seconds()
	textName := execution.Filename(d.Name, command, start, "txt")

	banner := fmt.Sprintf("# Command: %s\n# Device: %s (%s)\n# Timestamp: %s\n# Execution Time: %.2fs\n#%s\n\n",
		command, d.Name, d.ID, start.Format(time.RFC3339), seconds, strings.Repeat("=", 78))
	if err := execution.WriteFileAtomic(
		filepath.Join(r.exec.TextDir, textName), []byte(banner+output)); err != nil {
		return r.writeFailure(d.ID, d.Name, command, start, err)
	}

	doc := artifact{
		Command:       command,
		DeviceID:      d.ID,
		DeviceName:    d.Name,
		Timestamp:     start.Format(time.RFC3339),
		ExecutionTime: seconds,
		ParsedData:    parser.Parse(command, output),
		RawOutput:     output,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return r.writeFailure(d.ID, d.Name, command, start, err)
	}
	jsonName := execution.Filename(d.Name, command, start, "json")
	if err := execution.WriteFileAtomic(filepath.Join(r.exec.JSONDir, jsonName), data); err != nil {
		return r.writeFailure(d.ID, d.Name, command, start, err)
	}

	util.WithFields(map[string]interface{}{
		"device":   d.Name,
		"command":  command,
		"duration": fmt.Sprintf("%.2fs", seconds),
	}).Info("command completed")

	return CommandResult{
		Status:        "success",
		Command:       command,
		DeviceID:      d.ID,
		DeviceName:    d.Name,
		Output:        output,
		OutputLength:  len(output),
		ExecutionTime: seconds,
		Filename:      textName,
		Timestamp:     start.Format(time.RFC3339),
	}
}

func (r *Runner) writeFailure(deviceID, deviceName, command string, start time.Time, err error) CommandResult {
	werr := &util.OpError{Op: "write", Device: deviceName, Err: err}
	util.WithField("error", werr).Error("artifact write failed")
	return CommandResult{
		Status:     "error",
		Command:    command,
		DeviceID:   deviceID,
		DeviceName: deviceName,
		Timestamp:  start.Format(time.RFC3339),
		Error:      werr.Error(),
	}
}

// HealthStatus reports a device health probe.
type HealthStatus struct {
	Healthy bool
	Reason  string
}

// CheckHealth probes CPU and memory load. Either exceeding 70% fails the
// device before any data collection starts.
func (r *Runner) CheckHealth(ctx context.Context, sess *device.Session) HealthStatus {
	cpuRes := r.Run(ctx, sess, "show process cpu")
	if cpuRes.Status != "success" {
		return HealthStatus{Healthy: false, Reason: fmt.Sprintf("Failed to check CPU: %s", cpuRes.Error)}
	}
	cpu := parser.ParseProcessCPU(cpuRes.Output)
	if cpu.CPU1Min > 70 {
		return HealthStatus{Healthy: false, Reason: fmt.Sprintf("High CPU usage: %d%% (>70%%)", cpu.CPU1Min)}
	}

	memRes := r.Run(ctx, sess, "show process memory")
	if memRes.Status != "success" {
		return HealthStatus{Healthy: false, Reason: fmt.Sprintf("Failed to check Memory: %s", memRes.Error)}
	}
	if pct := parser.MemoryUtilization(memRes.Output); pct > 70 {
		return HealthStatus{Healthy: false, Reason: fmt.Sprintf("High Memory usage: %.1f%% (>70%%)", pct)}
	}
	return HealthStatus{Healthy: true, Reason: "OK"}
}
