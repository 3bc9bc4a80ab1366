package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/netgrid-io/netgrid/pkg/executor"
	"github.com/netgrid-io/netgrid/pkg/inventory"
	"github.com/netgrid-io/netgrid/pkg/stream"
	"github.com/netgrid-io/netgrid/pkg/topology"
	"github.com/netgrid-io/netgrid/pkg/util"
)

func newServeCmd() *cobra.Command {
	var (
		listen        string
		inventoryPath string
		logJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API and live progress stream",
		Long: `Run the long-lived API. Jobs started over the API stream their progress
to websocket subscribers on /ws.

  POST /api/jobs                start a job
  GET  /api/jobs/latest         latest job state
  GET  /api/jobs/{id}           job state
  POST /api/jobs/{id}/stop      request a graceful stop
  GET  /api/executions          archived executions
  GET  /api/topology            stored topology graph
  GET  /api/interfaces          interface capacity view
  GET  /ws                      websocket progress stream`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if logJSON {
				util.SetJSONFormat()
			}

			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			devices, err := inventory.Load(inventoryPath)
			if err != nil {
				return fmt.Errorf("loading inventory: %w", err)
			}

			srv := &apiServer{app: a, devices: devices}
			mux := http.NewServeMux()
			mux.Handle("/ws", stream.NewServer(a.broadcaster))
			mux.HandleFunc("/api/jobs", srv.handleJobs)
			mux.HandleFunc("/api/jobs/", srv.handleJob)
			mux.HandleFunc("/api/executions", srv.handleExecutions)
			mux.HandleFunc("/api/topology", srv.handleTopology)
			mux.HandleFunc("/api/interfaces", srv.handleInterfaces)

			util.WithFields(map[string]interface{}{
				"listen":  listen,
				"devices": len(devices),
			}).Info("api listening")

			httpSrv := &http.Server{
				Addr:              listen,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}
			return httpSrv.ListenAndServe()
		},
	}

	cmd.Flags().StringVar(&listen, "listen", ":8080", "Listen address")
	cmd.Flags().StringVarP(&inventoryPath, "inventory", "i", "inventory.yaml", "Inventory file")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Emit logs as JSON")
	return cmd
}

type apiServer struct {
	app     *app
	devices []inventory.Device
}

// startRequest is the POST /api/jobs body.
type startRequest struct {
	DeviceIDs      []string `json:"device_ids,omitempty"`
	Commands       []string `json:"commands,omitempty"`
	BatchSize      int      `json:"batch_size,omitempty"`
	DevicesPerHour int      `json:"devices_per_hour,omitempty"`
	HealthGate     bool     `json:"health_gate,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		devices := filterDevices(s.devices, req.DeviceIDs)
		if len(devices) == 0 {
			writeError(w, http.StatusBadRequest, "no devices selected")
			return
		}
		jobID, err := s.app.executor.Start(r.Context(), devices, executor.Options{
			Commands:       req.Commands,
			BatchSize:      req.BatchSize,
			DevicesPerHour: req.DevicesPerHour,
			HealthGate:     req.HealthGate,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		j, _ := s.app.jobs.GetJob(jobID)
		writeJSON(w, http.StatusAccepted, j)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleJob serves /api/jobs/{id}, /api/jobs/latest, and /api/jobs/{id}/stop.
func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] == "latest" && r.Method == http.MethodGet:
		j, err := s.app.jobs.LatestJob()
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, j)
	case len(parts) == 1 && r.Method == http.MethodGet:
		j, err := s.app.jobs.GetJob(parts[0])
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, j)
	case len(parts) == 2 && parts[1] == "stop" && r.Method == http.MethodPost:
		if _, err := s.app.jobs.GetJob(parts[0]); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.app.jobs.StopJob(parts[0])
		writeJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *apiServer) handleExecutions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	list, err := s.app.store.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *apiServer) handleTopology(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	store := topology.NewStore(s.app.env.RedisAddr, 0)
	if err := store.Connect(); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	defer store.Close()
	topo, err := store.LoadTopology()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, topo)
}

func (s *apiServer) handleInterfaces(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	store := topology.NewStore(s.app.env.RedisAddr, 0)
	if err := store.Connect(); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	defer store.Close()
	records, err := store.ListInterfaces(r.URL.Query().Get("router"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}
