package device

import (
	"context"
	"fmt"
	"net"
	"time"

	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/netgrid-io/netgrid/pkg/bastion"
	"github.com/netgrid-io/netgrid/pkg/config"
	"github.com/netgrid-io/netgrid/pkg/credentials"
	"github.com/netgrid-io/netgrid/pkg/inventory"
	"github.com/netgrid-io/netgrid/pkg/util"
)

// ConnectionError reports a failed device connection. Transport and auth
// failures both land here; there is no silent fallback path.
type ConnectionError struct {
	Device string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Device, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Pool owns the per-device session lifecycle. When the jumphost is enabled,
// every session rides a direct-tcpip channel on the shared bastion tunnel;
// a bastion failure fails the connect, it never falls back to a direct dial.
type Pool struct {
	mu       sync.Mutex
	source   *config.Source
	env      *config.Env
	tunnel   *bastion.Tunnel
	active   map[string]*Session
	channels map[string]net.Conn
}

// NewPool creates a pool bound to the jumphost source and environment.
func NewPool(source *config.Source, env *config.Env, tunnel *bastion.Tunnel) *Pool {
	return &Pool{
		source:   source,
		env:      env,
		tunnel:   tunnel,
		active:   make(map[string]*Session),
		channels: make(map[string]net.Conn),
	}
}

// Connect establishes a session to the device, detecting the CLI dialect
// from inventory hints. Idempotent: an existing live session is returned
// as-is.
func (p *Pool) Connect(ctx context.Context, d inventory.Device, timeout time.Duration) (*Session, error) {
	p.mu.Lock()
	if s, ok := p.active[d.ID]; ok {
		p.mu.Unlock()
		return s, nil
	}
	p.mu.Unlock()

	j := p.source.Current()
	creds, err := credentials.Resolve(j, p.env)
	if err != nil {
		return nil, &ConnectionError{Device: d.Name, Err: err}
	}
	dialect := DetectDialect(d)

	var conn net.Conn
	if j.Enabled {
		ch, err := p.tunnel.OpenChannel(ctx, d.Address, d.Port)
		if err != nil {
			return nil, &ConnectionError{Device: d.Name, Err: err}
		}
		conn = ch
	} else {
		addr := net.JoinHostPort(d.Address, fmt.Sprintf("%d", d.Port))
		dialer := net.Dialer{Timeout: timeout}
		c, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, &ConnectionError{Device: d.Name, Err: err}
		}
		conn = c
	}

	sess, err := openSession(conn, d, dialect, creds.Username, creds.Password, timeout)
	if err != nil {
		conn.Close()
		return nil, &ConnectionError{Device: d.Name, Err: err}
	}

	p.mu.Lock()
	p.active[d.ID] = sess
	if j.Enabled {
		p.channels[d.ID] = conn
	}
	p.mu.Unlock()

	util.WithFields(map[string]interface{}{
		"device":  d.Name,
		"dialect": string(dialect),
	}).Info("device connected")
	return sess, nil
}

// Get returns the live session for a device id.
func (p *Pool) Get(deviceID string) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.active[deviceID]
	if !ok {
		return nil, util.ErrNotConnected
	}
	return s, nil
}

// IsConnected reports whether a session exists for the device id.
func (p *Pool) IsConnected(deviceID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.active[deviceID]
	return ok
}

// Disconnect closes the device session and its bastion channel.
func (p *Pool) Disconnect(deviceID string) error {
	p.mu.Lock()
	sess, ok := p.active[deviceID]
	ch := p.channels[deviceID]
	delete(p.active, deviceID)
	delete(p.channels, deviceID)
	p.mu.Unlock()

	if !ok {
		return nil
	}
	err := sess.close()
	if ch != nil {
		ch.Close()
	}
	util.WithDevice(sess.device.Name).Info("device disconnected")
	return err
}

// DisconnectAll closes every session and, once no devices remain, the shared
// bastion tunnel. Errors are accumulated, not short-circuited.
func (p *Pool) DisconnectAll() error {
	p.mu.Lock()
	ids := make([]string, 0, len(p.active))
	for id := range p.active {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	var errs *multierror.Error
	for _, id := range ids {
		if err := p.Disconnect(id); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	p.mu.Lock()
	empty := len(p.active) == 0
	p.mu.Unlock()
	if empty {
		if err := p.tunnel.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}
