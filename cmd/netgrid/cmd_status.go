package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/netgrid-io/netgrid/pkg/job"
)

func newStatusCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "status [job-id]",
		Short: "Show job progress or the latest archived execution",
		Long: `Query a running API for live job state. Without a reachable server the
status falls back to the archived execution metadata on disk.

  netgrid status                 # latest job (or latest archive)
  netgrid status <job-id>        # specific job`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "latest"
			if len(args) > 0 {
				target = args[0]
			}

			if j, err := fetchJob(server, target); err == nil {
				printJob(j)
				return nil
			}

			// No live server: report from the archive.
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			exec, err := a.store.Current()
			if err != nil {
				return fmt.Errorf("no running server and no archived execution: %w", err)
			}
			meta, err := a.store.ReadMetadata(exec.ID)
			if err != nil {
				return err
			}
			fmt.Printf("Execution:  %s\n", meta.ExecutionID)
			fmt.Printf("Job:        %s\n", meta.JobID)
			fmt.Printf("Status:     %s\n", meta.Status)
			fmt.Printf("Timestamp:  %s\n", meta.Timestamp)
			fmt.Printf("Devices:    %d\n", meta.TotalDevices)
			if meta.Results != nil {
				fmt.Printf("Completed:  %d (%.0f%%)\n",
					meta.Results.CompletedDevices, meta.Results.ProgressPercent)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://127.0.0.1:8080", "API address")
	return cmd
}

func fetchJob(server, target string) (*job.Job, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(server + "/api/jobs/" + target)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}
	var j job.Job
	if err := json.NewDecoder(resp.Body).Decode(&j); err != nil {
		return nil, err
	}
	return &j, nil
}

func printJob(j *job.Job) {
	fmt.Printf("Job:        %s\n", j.ID)
	fmt.Printf("Status:     %s\n", j.Status)
	fmt.Printf("Progress:   %d%% (%d/%d devices)\n",
		j.ProgressPercent, j.CompletedDevices, j.TotalDevices)
	if j.ExecutionID != "" {
		fmt.Printf("Execution:  %s\n", j.ExecutionID)
	}
	if j.CurrentDevice != nil {
		fmt.Printf("Current:    %s (%s)\n", j.CurrentDevice.DeviceName, j.CurrentDevice.Status)
	}
	if len(j.Errors) > 0 {
		fmt.Printf("Errors:     %d\n", len(j.Errors))
	}

	stats := make(map[string]job.CountryStats, len(j.CountryStats))
	for c, s := range j.CountryStats {
		if s != nil {
			stats[c] = *s
		}
	}
	printCountrySummary(os.Stdout, stats)
}
