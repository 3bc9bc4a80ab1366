package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func newStopCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "stop [job-id]",
		Short: "Request a graceful stop of a running job",
		Long: `Ask the API to stop a job. The current batch finishes and the partial
archive is finalized; no new batches start.

  netgrid stop                   # stop the latest job
  netgrid stop <job-id>`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := ""
			if len(args) > 0 {
				jobID = args[0]
			}
			if jobID == "" {
				j, err := fetchJob(server, "latest")
				if err != nil {
					return fmt.Errorf("finding latest job: %w", err)
				}
				jobID = j.ID
			}

			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Post(server+"/api/jobs/"+jobID+"/stop", "application/json", nil)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				var body struct {
					Error string `json:"error"`
				}
				json.NewDecoder(resp.Body).Decode(&body)
				if body.Error != "" {
					return fmt.Errorf("stop failed: %s", body.Error)
				}
				return fmt.Errorf("server returned %s", resp.Status)
			}
			fmt.Printf("stop requested for job %s\n", jobID)
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://127.0.0.1:8080", "API address")
	return cmd
}
