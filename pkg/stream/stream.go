// Package stream serves live job progress over websockets. Each connection
// receives every job snapshot as a job_update frame, optionally filtered to
// one job by a subscribe frame.
package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/netgrid-io/netgrid/pkg/job"
	"github.com/netgrid-io/netgrid/pkg/util"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
)

// clientFrame is what a connected client may send: a keepalive ping or a
// job subscription.
type clientFrame struct {
	Type  string `json:"type"`
	JobID string `json:"job_id,omitempty"`
}

// serverFrame is what the server sends back.
type serverFrame struct {
	Type  string        `json:"type"`
	JobID string        `json:"job_id,omitempty"`
	Data  *job.Snapshot `json:"data,omitempty"`
}

// Server upgrades HTTP connections and relays job snapshots.
type Server struct {
	broadcaster *job.Broadcaster
	upgrader    websocket.Upgrader
}

// NewServer creates a stream server over the given broadcaster.
func NewServer(b *job.Broadcaster) *Server {
	return &Server{
		broadcaster: b,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and runs it until either side closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		util.WithField("error", err).Warn("websocket upgrade failed")
		return
	}
	c := &client{conn: conn}
	c.run(s.broadcaster)
}

// client is one websocket connection. The filter job id is guarded by mu
// because the reader goroutine updates it while the writer reads it.
type client struct {
	conn *websocket.Conn

	mu     sync.Mutex
	filter string
}

func (c *client) setFilter(jobID string) {
	c.mu.Lock()
	c.filter = jobID
	c.mu.Unlock()
}

func (c *client) wants(jobID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter == "" || c.filter == jobID
}

func (c *client) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

// run pumps snapshots to the client while reading control frames, until the
// connection drops.
func (c *client) run(b *job.Broadcaster) {
	defer c.conn.Close()

	events, cancel := b.Subscribe()
	defer cancel()

	done := make(chan struct{})

	// Reader: control frames and liveness.
	go func() {
		defer close(done)
		c.conn.SetReadLimit(4096)
		c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		for {
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				return
			}
			c.conn.SetReadDeadline(time.Now().Add(pongTimeout))

			var frame clientFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				continue
			}
			switch frame.Type {
			case "ping":
				if err := c.writeJSON(serverFrame{Type: "pong"}); err != nil {
					return
				}
			case "subscribe":
				c.setFilter(frame.JobID)
			}
		}
	}()

	for {
		select {
		case snap, ok := <-events:
			if !ok {
				return
			}
			if !c.wants(snap.JobID) {
				continue
			}
			frame := serverFrame{Type: "job_update", JobID: snap.JobID, Data: &snap}
			if err := c.writeJSON(frame); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
