package main

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/netgrid-io/netgrid/pkg/job"
)

// Append-only progress output: no ANSI cursor rewriting, so it stays safe
// for pipes, CI logs, and scrollback.
var progressState struct {
	mu          sync.Mutex
	lastPercent int
	lastDevice  string
}

func renderProgress(w io.Writer, snap job.Snapshot) {
	progressState.mu.Lock()
	defer progressState.mu.Unlock()

	switch snap.Event {
	case job.EventJobCreated:
		fmt.Fprintf(w, "  queued %d devices\n", snap.TotalDevices)
	case job.EventDeviceStatus:
		if snap.CurrentDevice == nil {
			return
		}
		key := snap.CurrentDevice.DeviceName + "/" + snap.CurrentDevice.Status
		if key == progressState.lastDevice {
			return
		}
		progressState.lastDevice = key
		fmt.Fprintf(w, "  %-24s %s\n", snap.CurrentDevice.DeviceName, snap.CurrentDevice.Status)
	case job.EventProgress:
		if snap.ProgressPercent == progressState.lastPercent {
			return
		}
		progressState.lastPercent = snap.ProgressPercent
		fmt.Fprintf(w, "  [%3d%%] %d/%d devices\n",
			snap.ProgressPercent, snap.CompletedDevices, snap.TotalDevices)
	case job.EventJobStopping:
		fmt.Fprintln(w, "  stopping after current batch")
	}
}

// printCountrySummary writes the per-country rollup table.
func printCountrySummary(w io.Writer, stats map[string]job.CountryStats) {
	if len(stats) == 0 {
		return
	}
	countries := make([]string, 0, len(stats))
	for c := range stats {
		countries = append(countries, c)
	}
	sort.Strings(countries)

	fmt.Fprintf(w, "\n  %-8s %9s %9s %7s %8s\n", "COUNTRY", "COMPLETED", "FAILED", "TOTAL", "PERCENT")
	for _, c := range countries {
		s := stats[c]
		fmt.Fprintf(w, "  %-8s %9d %9d %7d %7d%%\n",
			c, s.CompletedDevices, s.FailedDevices, s.TotalDevices, s.Percent)
	}
}
