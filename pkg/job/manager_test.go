package job

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/netgrid-io/netgrid/pkg/inventory"
	"github.com/netgrid-io/netgrid/pkg/util"
)

func testDevices() []inventory.Device {
	return []inventory.Device{
		{ID: "gbr-lon-r1", Name: "gbr-lon-r1", Address: "10.1.1.1"},
		{ID: "gbr-lon-r2", Name: "gbr-lon-r2", Address: "10.1.1.2"},
		{ID: "deu-fra-r1", Name: "deu-fra-r1", Address: "10.2.1.1"},
	}
}

func TestCreateJobInitialState(t *testing.T) {
	m := NewManager(clockwork.NewFakeClock(), nil)
	id := m.CreateJob(testDevices())

	j, err := m.GetJob(id)
	if err != nil {
		t.Fatal(err)
	}
	if j.Status != StatusRunning {
		t.Errorf("status = %s, want running", j.Status)
	}
	if j.TotalDevices != 3 || j.CompletedDevices != 0 {
		t.Errorf("device counts = %d/%d, want 0/3", j.CompletedDevices, j.TotalDevices)
	}
	if len(j.DeviceProgress) != 3 {
		t.Fatalf("device progress entries = %d, want 3", len(j.DeviceProgress))
	}
	for id, p := range j.DeviceProgress {
		if p.Status != DevicePending {
			t.Errorf("device %s status = %s, want pending", id, p.Status)
		}
	}

	gbr, ok := j.CountryStats["GBR"]
	if !ok {
		t.Fatal("GBR rollup missing")
	}
	if gbr.TotalDevices != 2 || gbr.PendingDevices != 2 {
		t.Errorf("GBR = %+v, want 2 total, 2 pending", gbr)
	}
	deu := j.CountryStats["DEU"]
	if deu == nil || deu.TotalDevices != 1 {
		t.Errorf("DEU rollup = %+v, want 1 device", deu)
	}

	if _, err := m.GetJob("no-such-job"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("missing job error = %v, want ErrNotFound", err)
	}
}

func TestJobProgressToCompletion(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewManager(clock, nil)
	devices := testDevices()
	id := m.CreateJob(devices)

	commands := []string{"show version", "show ospf neighbor"}
	for _, d := range devices {
		m.InitDeviceCommands(id, d.ID, commands)
	}

	j, _ := m.GetJob(id)
	if got := j.CountryStats["GBR"].TotalCommands; got != 4 {
		t.Errorf("GBR total commands = %d, want 4", got)
	}

	// First device runs both commands and reports.
	m.UpdateDeviceStatus(id, "gbr-lon-r1", DeviceConnecting, "")
	j, _ = m.GetJob(id)
	if j.CurrentDevice == nil || j.CurrentDevice.DeviceID != "gbr-lon-r1" {
		t.Fatalf("current device = %+v, want gbr-lon-r1", j.CurrentDevice)
	}
	if got := j.CountryStats["GBR"].RunningDevices; got != 1 {
		t.Errorf("GBR running = %d, want 1", got)
	}

	m.UpdateDeviceCommandStatus(id, "gbr-lon-r1", 0, CommandRunning, 0, "")
	m.UpdateDeviceCommandStatus(id, "gbr-lon-r1", 0, CommandSuccess, 1.5, "")
	j, _ = m.GetJob(id)
	p := j.DeviceProgress["gbr-lon-r1"]
	if p.CompletedCommands != 1 || p.Percent != 50 {
		t.Errorf("after one command: completed=%d percent=%d, want 1/50", p.CompletedCommands, p.Percent)
	}
	if p.Commands[0].Status != CommandSuccess || p.Commands[0].Percent != 100 {
		t.Errorf("command slot = %+v, want success at 100%%", p.Commands[0])
	}
	if p.Commands[0].ExecutionTime != 1.5 {
		t.Errorf("execution time = %v, want 1.5", p.Commands[0].ExecutionTime)
	}

	m.UpdateDeviceCommandStatus(id, "gbr-lon-r1", 1, CommandSuccess, 2.0, "")
	m.UpdateDeviceStatus(id, "gbr-lon-r1", DeviceCompleted, "")
	m.UpdateJobProgress(id, "gbr-lon-r1", DeviceResult{DeviceID: "gbr-lon-r1", Status: "completed"})

	j, _ = m.GetJob(id)
	if j.CompletedDevices != 1 || j.ProgressPercent != 33 {
		t.Errorf("job progress = %d devices, %d%%, want 1 and 33", j.CompletedDevices, j.ProgressPercent)
	}
	if j.CurrentDevice != nil {
		t.Errorf("current device = %+v, want cleared", j.CurrentDevice)
	}
	if got := j.CountryStats["GBR"].CompletedDevices; got != 1 {
		t.Errorf("GBR completed = %d, want 1", got)
	}

	// One device fails to connect, one finishes: the job completes either way.
	m.UpdateDeviceStatus(id, "gbr-lon-r2", DeviceConnFailed, "dial tcp: connection refused")
	m.UpdateJobProgress(id, "gbr-lon-r2", DeviceResult{DeviceID: "gbr-lon-r2", Status: "failed", Error: "dial tcp: connection refused"})
	m.UpdateDeviceStatus(id, "deu-fra-r1", DeviceCompleted, "")
	m.UpdateJobProgress(id, "deu-fra-r1", DeviceResult{DeviceID: "deu-fra-r1", Status: "completed"})

	j, _ = m.GetJob(id)
	if j.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", j.Status)
	}
	if j.EndTime == "" {
		t.Error("end time not set on completion")
	}
	if j.ProgressPercent != 100 {
		t.Errorf("progress = %d%%, want 100", j.ProgressPercent)
	}
	if got := j.DeviceProgress["gbr-lon-r2"].Status; got != DeviceFailed {
		t.Errorf("failed device status = %s, want failed (from result)", got)
	}
	if got := j.DeviceProgress["gbr-lon-r2"].Errors; len(got) != 1 {
		t.Errorf("failed device errors = %v, want the dial error", got)
	}
	if len(j.Results) != 3 {
		t.Errorf("results = %d, want 3", len(j.Results))
	}
}

func TestCountryStatsConnFailedCountsPending(t *testing.T) {
	// connection_failed is neither completed, failed nor active, so the
	// rollup buckets it as pending until the final result lands.
	m := NewManager(clockwork.NewFakeClock(), nil)
	id := m.CreateJob(testDevices()[:1])

	m.UpdateDeviceStatus(id, "gbr-lon-r1", DeviceConnFailed, "no route to host")
	j, _ := m.GetJob(id)
	gbr := j.CountryStats["GBR"]
	if gbr.PendingDevices != 1 || gbr.FailedDevices != 0 {
		t.Errorf("rollup = %+v, want pending=1 failed=0", gbr)
	}

	m.UpdateJobProgress(id, "gbr-lon-r1", DeviceResult{DeviceID: "gbr-lon-r1", Status: "failed"})
	j, _ = m.GetJob(id)
	gbr = j.CountryStats["GBR"]
	if gbr.FailedDevices != 1 || gbr.PendingDevices != 0 {
		t.Errorf("rollup after result = %+v, want failed=1", gbr)
	}
}

func TestCountryElapsedTime(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewManager(clock, nil)
	id := m.CreateJob(testDevices()[:2])

	m.UpdateDeviceStatus(id, "gbr-lon-r1", DeviceConnecting, "")
	clock.Advance(30 * time.Second)
	m.UpdateDeviceStatus(id, "gbr-lon-r1", DeviceExecuting, "")

	j, _ := m.GetJob(id)
	gbr := j.CountryStats["GBR"]
	if gbr.StartTime == "" {
		t.Fatal("start time not latched on first active device")
	}
	if gbr.ElapsedSeconds != 30 {
		t.Errorf("elapsed = %v, want 30", gbr.ElapsedSeconds)
	}
	if gbr.EndTime != "" {
		t.Errorf("end time = %q, want unset while devices remain", gbr.EndTime)
	}

	m.UpdateDeviceStatus(id, "gbr-lon-r1", DeviceCompleted, "")
	m.UpdateDeviceStatus(id, "gbr-lon-r2", DeviceCompleted, "")
	j, _ = m.GetJob(id)
	if j.CountryStats["GBR"].EndTime == "" {
		t.Error("end time not set once every device finished")
	}
}

func TestStopJob(t *testing.T) {
	m := NewManager(clockwork.NewFakeClock(), nil)
	id := m.CreateJob(testDevices()[:1])

	if m.IsStopRequested(id) {
		t.Fatal("stop requested before StopJob")
	}
	m.StopJob(id)
	if !m.IsStopRequested(id) {
		t.Fatal("stop not recorded")
	}
	j, _ := m.GetJob(id)
	if j.Status != StatusStopping {
		t.Errorf("status = %s, want stopping", j.Status)
	}

	// Stop on a finished job is a no-op.
	m.UpdateJobProgress(id, "gbr-lon-r1", DeviceResult{DeviceID: "gbr-lon-r1", Status: "completed"})
	j, _ = m.GetJob(id)
	if j.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", j.Status)
	}
	m.StopJob(id)
	j, _ = m.GetJob(id)
	if j.Status != StatusCompleted {
		t.Errorf("StopJob mutated a completed job: status = %s", j.Status)
	}
}

func TestFailJob(t *testing.T) {
	m := NewManager(clockwork.NewFakeClock(), nil)
	id := m.CreateJob(testDevices()[:1])

	m.FailJob(id, "bastion tunnel unavailable")
	j, _ := m.GetJob(id)
	if j.Status != StatusFailed {
		t.Errorf("status = %s, want failed", j.Status)
	}
	if j.Error != "bastion tunnel unavailable" {
		t.Errorf("error = %q", j.Error)
	}
	if j.EndTime == "" {
		t.Error("end time not set on failure")
	}
}

func TestLatestJob(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewManager(clock, nil)

	if _, err := m.LatestJob(); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("latest on empty manager = %v, want ErrNotFound", err)
	}

	first := m.CreateJob(testDevices()[:1])
	clock.Advance(time.Minute)
	second := m.CreateJob(testDevices()[:1])

	j, err := m.LatestJob()
	if err != nil {
		t.Fatal(err)
	}
	if j.ID != second {
		t.Errorf("latest = %s, want %s (not %s)", j.ID, second, first)
	}
}

func TestGetJobReturnsCopy(t *testing.T) {
	m := NewManager(clockwork.NewFakeClock(), nil)
	id := m.CreateJob(testDevices()[:1])

	j, _ := m.GetJob(id)
	j.DeviceProgress["gbr-lon-r1"].Status = DeviceFailed
	j.Status = StatusFailed

	fresh, _ := m.GetJob(id)
	if fresh.Status != StatusRunning {
		t.Errorf("mutation through copy leaked: status = %s", fresh.Status)
	}
	if fresh.DeviceProgress["gbr-lon-r1"].Status != DevicePending {
		t.Error("mutation through copied device progress leaked")
	}
}

func TestManagerBroadcastsEvents(t *testing.T) {
	b := NewBroadcaster()
	m := NewManager(clockwork.NewFakeClock(), b)

	events, cancel := b.Subscribe()
	defer cancel()

	id := m.CreateJob(testDevices()[:1])
	m.UpdateDeviceStatus(id, "gbr-lon-r1", DeviceConnecting, "")
	m.UpdateJobProgress(id, "gbr-lon-r1", DeviceResult{DeviceID: "gbr-lon-r1", Status: "completed"})

	want := []EventKind{EventJobCreated, EventDeviceStatus, EventJobCompleted}
	for i, kind := range want {
		select {
		case s := <-events:
			if s.Event != kind {
				t.Errorf("event %d = %s, want %s", i, s.Event, kind)
			}
			if s.JobID != id {
				t.Errorf("event %d job = %s, want %s", i, s.JobID, id)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d (%s)", i, kind)
		}
	}
}
