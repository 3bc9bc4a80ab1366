package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/netgrid-io/netgrid/pkg/executor"
	"github.com/netgrid-io/netgrid/pkg/inventory"
	"github.com/netgrid-io/netgrid/pkg/job"
)

func newRunCmd() *cobra.Command {
	var (
		commands       []string
		deviceIDs      []string
		batchSize      int
		devicesPerHour int
		healthGate     bool
	)

	cmd := &cobra.Command{
		Use:   "run <inventory.yaml>",
		Short: "Run a collection job against the fleet",
		Long: `Connect to every device in the inventory, execute the command battery,
and archive the output under the data directory.

Without --command the default OSPF discovery battery runs. Devices are
processed in batches; --devices-per-hour spaces the batches so the fleet
average matches the requested rate. Ctrl-C requests a graceful stop: the
current batch finishes and the partial archive is finalized.

  netgrid run inventory.yaml
  netgrid run inventory.yaml --device lon-r1 --device lon-r2
  netgrid run inventory.yaml --batch-size 5 --devices-per-hour 60
  netgrid run inventory.yaml --command "show version"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			devices, err := inventory.Load(args[0])
			if err != nil {
				return fmt.Errorf("loading inventory: %w", err)
			}
			devices = filterDevices(devices, deviceIDs)
			if len(devices) == 0 {
				return fmt.Errorf("no devices selected")
			}

			events, cancel := a.broadcaster.Subscribe()
			defer cancel()

			jobID, err := a.executor.Start(ctx, devices, executor.Options{
				Commands:       commands,
				BatchSize:      batchSize,
				DevicesPerHour: devicesPerHour,
				HealthGate:     healthGate,
			})
			if err != nil {
				return err
			}

			j, _ := a.jobs.GetJob(jobID)
			fmt.Fprintf(os.Stderr, "netgrid: job %s, %d devices, execution %s\n",
				jobID, len(devices), j.ExecutionID)

			// Ctrl-C requests a graceful stop; a second one aborts.
			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigs)

			stopped := false
			for {
				select {
				case <-sigs:
					if stopped {
						return fmt.Errorf("aborted")
					}
					stopped = true
					fmt.Fprintln(os.Stderr, "netgrid: stop requested, finishing current batch")
					a.jobs.StopJob(jobID)
				case snap, ok := <-events:
					if !ok {
						return nil
					}
					if snap.JobID != jobID {
						continue
					}
					renderProgress(os.Stdout, snap)
					switch snap.Event {
					case job.EventJobCompleted:
						printCountrySummary(os.Stdout, snap.CountryStats)
						fmt.Printf("\ndone: %d/%d devices, archive %s\n",
							snap.CompletedDevices, snap.TotalDevices, j.ExecutionID)
						return nil
					case job.EventJobFailed:
						return fmt.Errorf("job failed: %s", firstError(snap.Errors))
					}
				}
			}
		},
	}

	cmd.Flags().StringArrayVarP(&commands, "command", "c", nil, "Command to run (repeatable; default: OSPF battery)")
	cmd.Flags().StringArrayVarP(&deviceIDs, "device", "d", nil, "Restrict to device id (repeatable)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 10, "Devices per batch")
	cmd.Flags().IntVar(&devicesPerHour, "devices-per-hour", 0, "Rate limit (0 disables)")
	cmd.Flags().BoolVar(&healthGate, "health-gate", false, "Skip devices with CPU or memory above 70%")
	return cmd
}

func filterDevices(devices []inventory.Device, ids []string) []inventory.Device {
	if len(ids) == 0 {
		return devices
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []inventory.Device
	for _, d := range devices {
		if want[d.ID] || want[d.Name] {
			out = append(out, d)
		}
	}
	return out
}

func firstError(errs []string) string {
	if len(errs) == 0 {
		return "unknown error"
	}
	return errs[0]
}
