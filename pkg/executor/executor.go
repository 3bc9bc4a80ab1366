// Package executor orchestrates automation jobs: batching, rate limiting,
// per-batch worker pools, and the per-device connect/run/disconnect arc.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/jonboulle/clockwork"

	"github.com/netgrid-io/netgrid/pkg/device"
	"github.com/netgrid-io/netgrid/pkg/execution"
	"github.com/netgrid-io/netgrid/pkg/inventory"
	"github.com/netgrid-io/netgrid/pkg/job"
	"github.com/netgrid-io/netgrid/pkg/runner"
	"github.com/netgrid-io/netgrid/pkg/util"
)

const (
	connectTimeout  = 10 * time.Second
	maxBatchWorkers = 10
	sleepChunk      = time.Second
)

// Options tune one automation run.
type Options struct {
	Commands       []string // empty means the default OSPF battery
	BatchSize      int      // devices per batch, default 10
	DevicesPerHour int      // 0 disables rate limiting
	HealthGate     bool     // probe CPU/memory before collecting
}

// Executor runs automation jobs against the device pool.
type Executor struct {
	pool  *device.Pool
	jobs  *job.Manager
	store *execution.Store
	clock clockwork.Clock
}

// New creates an executor.
func New(pool *device.Pool, jobs *job.Manager, store *execution.Store, clock clockwork.Clock) *Executor {
	return &Executor{pool: pool, jobs: jobs, store: store, clock: clock}
}

// Start creates the job and its execution directory, then runs the job in
// the background. It returns the job id immediately.
func (e *Executor) Start(ctx context.Context, devices []inventory.Device, opts Options) (string, error) {
	if len(devices) == 0 {
		return "", fmt.Errorf("no devices selected")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if len(opts.Commands) == 0 {
		opts.Commands = runner.OSPFCommands
	}

	jobID := e.jobs.CreateJob(devices)
	executionID := execution.NewID(e.clock.Now(), jobID)
	e.jobs.SetExecutionID(jobID, executionID)

	exec, err := e.store.Create(executionID)
	if err != nil {
		e.jobs.FailJob(jobID, err.Error())
		return "", err
	}

	refs := make([]execution.DeviceRef, len(devices))
	for i, d := range devices {
		refs[i] = execution.DeviceRef{ID: d.ID, Name: d.Name, IP: d.Address}
	}
	meta := execution.Metadata{
		ExecutionID:  executionID,
		JobID:        jobID,
		Timestamp:    e.clock.Now().Format(time.RFC3339),
		Status:       "running",
		Devices:      refs,
		Commands:     opts.Commands,
		TotalDevices: len(devices),
	}
	if err := e.store.WriteMetadata(executionID, meta); err != nil {
		e.jobs.FailJob(jobID, err.Error())
		return "", err
	}

	go e.execute(ctx, jobID, exec, devices, refs, opts)
	return jobID, nil
}

// execute runs all batches, then finalizes metadata and the current pointer.
func (e *Executor) execute(ctx context.Context, jobID string, exec *execution.Execution, devices []inventory.Device, refs []execution.DeviceRef, opts Options) {
	util.WithFields(map[string]interface{}{
		"job":        jobID,
		"execution":  exec.ID,
		"devices":    len(devices),
		"batch_size": opts.BatchSize,
		"rate":       opts.DevicesPerHour,
	}).Info("job started")

	batchDelay := batchInterval(opts.BatchSize, opts.DevicesPerHour)
	if batchDelay > 0 {
		util.WithField("delay", batchDelay).Info("rate limiting active")
	}

	var batches [][]inventory.Device
	for i := 0; i < len(devices); i += opts.BatchSize {
		end := i + opts.BatchSize
		if end > len(devices) {
			end = len(devices)
		}
		batches = append(batches, devices[i:end])
	}

	for idx, batch := range batches {
		if e.jobs.IsStopRequested(jobID) {
			util.WithJob(jobID).Warn("job stopped before batch")
			e.finalize(jobID, exec, refs, opts)
			return
		}
		util.WithFields(map[string]interface{}{
			"batch":   idx + 1,
			"batches": len(batches),
			"devices": len(batch),
		}).Info("processing batch")

		e.processBatch(ctx, jobID, exec, batch, opts)

		if idx < len(batches)-1 && batchDelay > 0 {
			if !e.sleepInterruptible(jobID, batchDelay) {
				e.finalize(jobID, exec, refs, opts)
				return
			}
		}
	}

	e.finalize(jobID, exec, refs, opts)
}

// batchInterval is the pause between batches that keeps the fleet average at
// devicesPerHour. Zero disables rate limiting.
func batchInterval(batchSize, devicesPerHour int) time.Duration {
	if batchSize <= 0 || devicesPerHour <= 0 {
		return 0
	}
	seconds := float64(batchSize) / float64(devicesPerHour) * 3600
	return time.Duration(seconds * float64(time.Second))
}

// sleepInterruptible sleeps in one-second chunks, returning false when a
// stop request interrupts the wait.
func (e *Executor) sleepInterruptible(jobID string, total time.Duration) bool {
	var slept time.Duration
	for slept < total {
		if e.jobs.IsStopRequested(jobID) {
			return false
		}
		e.clock.Sleep(sleepChunk)
		slept += sleepChunk
	}
	return true
}

// processBatch fans the batch out over a bounded worker pool, then
// disconnects every device in the batch.
func (e *Executor) processBatch(ctx context.Context, jobID string, exec *execution.Execution, batch []inventory.Device, opts Options) {
	workers := len(batch)
	if workers > maxBatchWorkers {
		workers = maxBatchWorkers
	}
	if workers < 1 {
		workers = 1
	}

	pool := pond.NewPool(workers)
	group := pool.NewGroupContext(ctx)
	for _, d := range batch {
		d := d
		group.Submit(func() {
			e.processDevice(ctx, jobID, exec, d, opts)
		})
	}
	group.Wait()
	pool.StopAndWait()

	for _, d := range batch {
		if !e.pool.IsConnected(d.ID) {
			continue
		}
		e.jobs.UpdateDeviceStatus(jobID, d.ID, job.DeviceDisconnecting, "")
		if err := e.pool.Disconnect(d.ID); err != nil {
			util.WithFields(map[string]interface{}{
				"device": d.Name,
				"error":  err,
			}).Warn("disconnect failed")
		}
		e.jobs.UpdateDeviceStatus(jobID, d.ID, job.DeviceDisconnected, "")
	}
}

// processDevice runs the full arc for one device: connect, optional health
// gate, the command list, and the final result record.
func (e *Executor) processDevice(ctx context.Context, jobID string, exec *execution.Execution, d inventory.Device, opts Options) {
	if e.jobs.IsStopRequested(jobID) {
		return
	}

	e.jobs.InitDeviceCommands(jobID, d.ID, opts.Commands)
	result := job.DeviceResult{DeviceID: d.ID, DeviceName: d.Name}
	run := runner.New(exec)

	if !e.pool.IsConnected(d.ID) {
		e.jobs.UpdateDeviceStatus(jobID, d.ID, job.DeviceConnecting, "")
		if _, err := e.pool.Connect(ctx, d, connectTimeout); err != nil {
			result.Status = "failed"
			result.Error = fmt.Sprintf("Connection failed: %v", err)
			e.jobs.UpdateJobProgress(jobID, d.ID, result)
			e.jobs.UpdateDeviceStatus(jobID, d.ID, job.DeviceConnFailed, err.Error())
			return
		}
		e.jobs.UpdateDeviceStatus(jobID, d.ID, job.DeviceConnected, "")
	}

	sess, err := e.pool.Get(d.ID)
	if err != nil {
		result.Status = "failed"
		result.Error = err.Error()
		e.jobs.UpdateDeviceStatus(jobID, d.ID, job.DeviceFailed, err.Error())
		e.jobs.UpdateJobProgress(jobID, d.ID, result)
		return
	}

	if opts.HealthGate {
		if health := run.CheckHealth(ctx, sess); !health.Healthy {
			result.Status = "failed"
			result.Error = health.Reason
			e.jobs.UpdateDeviceStatus(jobID, d.ID, job.DeviceFailed, health.Reason)
			e.jobs.UpdateJobProgress(jobID, d.ID, result)
			return
		}
	}

	successes, failures := 0, 0
	stopped := false
	for i, cmd := range opts.Commands {
		if e.jobs.IsStopRequested(jobID) {
			stopped = true
			break
		}
		e.jobs.UpdateCurrentExecution(jobID, job.CurrentDevice{
			DeviceID:       d.ID,
			DeviceName:     d.Name,
			Country:        d.Country(),
			Status:         string(job.DeviceExecuting),
			CurrentCommand: cmd,
		})
		e.jobs.UpdateDeviceCommandStatus(jobID, d.ID, i, job.CommandRunning, 0, "")

		res := run.Run(ctx, sess, cmd)
		result.Commands = append(result.Commands, job.CommandOutcome{
			Command:       cmd,
			Status:        res.Status,
			ExecutionTime: res.ExecutionTime,
			Error:         res.Error,
		})
		if res.Status == "success" {
			successes++
			e.jobs.UpdateDeviceCommandStatus(jobID, d.ID, i, job.CommandSuccess, res.ExecutionTime, "")
		} else {
			failures++
			e.jobs.UpdateDeviceCommandStatus(jobID, d.ID, i, job.CommandFailed, res.ExecutionTime, res.Error)
		}
	}

	result.Status = deviceOutcome(stopped, successes, failures)
	e.jobs.UpdateJobProgress(jobID, d.ID, result)
}

// deviceOutcome is the aggregate result status for one device's battery.
// A stop mid-battery reports stopped even when every command so far
// succeeded; completed means the full battery ran.
func deviceOutcome(stopped bool, successes, failures int) string {
	switch {
	case stopped:
		return string(job.DeviceStopped)
	case failures == 0:
		return "completed"
	case successes > 0:
		return "partial_success"
	default:
		return "failed"
	}
}

// finalize rewrites metadata with final results and repoints data/current.
// A stopped job still finalizes so its partial artifacts stay reachable.
func (e *Executor) finalize(jobID string, exec *execution.Execution, refs []execution.DeviceRef, opts Options) {
	j, err := e.jobs.GetJob(jobID)
	if err != nil {
		return
	}

	// Devices a stop prevented from ever starting still get a result, so the
	// job reaches its terminal state and subscribers see completion.
	if j.Status == job.StatusStopping {
		for id, p := range j.DeviceProgress {
			if p.Status != job.DevicePending {
				continue
			}
			e.jobs.UpdateJobProgress(jobID, id, job.DeviceResult{
				DeviceID:   id,
				DeviceName: p.DeviceName,
				Status:     string(job.DeviceStopped),
			})
		}
		j, err = e.jobs.GetJob(jobID)
		if err != nil {
			return
		}
	}
	status := string(j.Status)

	meta := execution.Metadata{
		ExecutionID: exec.ID,
		JobID:       jobID,
		Timestamp:   e.clock.Now().Format(time.RFC3339),
		StartTime:   j.StartTime,
		EndTime:     j.EndTime,
		Status:      status,
		Devices:     refs,
		Commands:    opts.Commands,
		Results: &execution.Results{
			TotalDevices:     j.TotalDevices,
			CompletedDevices: j.CompletedDevices,
			ProgressPercent:  float64(j.ProgressPercent),
		},
		Files: &execution.FileDirs{
			TextDir: exec.TextDir,
			JSONDir: exec.JSONDir,
		},
	}
	if err := e.store.WriteMetadata(exec.ID, meta); err != nil {
		util.WithField("error", err).Error("final metadata write failed")
		return
	}
	if err := e.store.SetCurrent(exec.ID); err != nil {
		util.WithField("error", err).Error("current pointer update failed")
		return
	}
	util.WithFields(map[string]interface{}{
		"job":       jobID,
		"execution": exec.ID,
		"status":    status,
	}).Info("execution complete")
}
