// Package bastion maintains the shared SSH tunnel through the jumphost.
// Device connections are carried as direct-tcpip channels over one bastion
// client, so only a single SSH session is visible on the jumphost regardless
// of how many devices are active.
package bastion

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/crypto/ssh"

	"github.com/netgrid-io/netgrid/pkg/config"
	"github.com/netgrid-io/netgrid/pkg/util"
)

const (
	connectTimeout = 30 * time.Second
	maxRetries     = 3
)

// TunnelError reports a bastion failure at a specific stage.
type TunnelError struct {
	Stage string // "connect" or "channel"
	Host  string
	Err   error
}

func (e *TunnelError) Error() string {
	return fmt.Sprintf("bastion %s %s: %v", e.Stage, e.Host, e.Err)
}

func (e *TunnelError) Unwrap() error { return e.Err }

// Tunnel is the shared jumphost transport. All methods are safe for
// concurrent use; EnsureConnected dials lazily on first demand.
type Tunnel struct {
	mu     sync.Mutex
	source *config.Source
	client *ssh.Client
}

// NewTunnel creates a tunnel bound to the jumphost source. The tunnel
// registers itself for invalidation so a settings change tears down the
// cached client before the next connect.
func NewTunnel(source *config.Source) *Tunnel {
	t := &Tunnel{source: source}
	source.OnInvalidate(func() {
		if err := t.Close(); err != nil {
			util.WithField("error", err).Warn("closing bastion after settings change")
		}
	})
	return t
}

// Active reports whether a bastion client is currently established.
func (t *Tunnel) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client != nil
}

// EnsureConnected establishes the bastion SSH client if it is not already up.
// Dial attempts are retried with exponential backoff, up to three tries
// within the connect timeout.
func (t *Tunnel) EnsureConnected(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil {
		// A cached client can be a dead transport after a jumphost restart;
		// probe it before reuse instead of failing the next channel dial.
		if _, _, err := t.client.SendRequest("keepalive@netgrid.io", true, nil); err == nil {
			return nil
		}
		t.client.Close()
		t.client = nil
	}

	j := t.source.Current()
	if err := j.Validate(); err != nil {
		return err
	}
	if !j.Enabled {
		return &TunnelError{Stage: "connect", Host: j.Host, Err: fmt.Errorf("jumphost is disabled")}
	}

	addr := net.JoinHostPort(j.Host, fmt.Sprintf("%d", j.Port))
	cfg := &ssh.ClientConfig{
		User:            j.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(j.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         connectTimeout,
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries-1), ctx)

	var client *ssh.Client
	dial := func() error {
		c, err := ssh.Dial("tcp", addr, cfg)
		if err != nil {
			util.WithFields(map[string]interface{}{
				"jumphost": addr,
				"error":    err,
			}).Warn("bastion dial failed, retrying")
			return err
		}
		client = c
		return nil
	}
	if err := backoff.Retry(dial, policy); err != nil {
		return &TunnelError{Stage: "connect", Host: j.Host, Err: err}
	}

	util.WithField("jumphost", addr).Info("bastion connected")
	t.client = client
	return nil
}

// OpenChannel opens a direct-tcpip channel to target:port through the bastion.
// The returned net.Conn is usable as the transport for a device SSH handshake.
func (t *Tunnel) OpenChannel(ctx context.Context, target string, port int) (net.Conn, error) {
	if err := t.EnsureConnected(ctx); err != nil {
		return nil, err
	}

	t.mu.Lock()
	client := t.client
	t.mu.Unlock()
	if client == nil {
		return nil, &TunnelError{Stage: "channel", Host: target, Err: fmt.Errorf("bastion not connected")}
	}

	conn, err := client.Dial("tcp", net.JoinHostPort(target, fmt.Sprintf("%d", port)))
	if err != nil {
		// A dead bastion surfaces here; drop the cached client so the next
		// attempt redials.
		t.mu.Lock()
		if t.client == client {
			t.client.Close()
			t.client = nil
		}
		t.mu.Unlock()
		return nil, &TunnelError{Stage: "channel", Host: target, Err: err}
	}
	return conn, nil
}

// Close tears down the bastion client. Safe to call when not connected.
func (t *Tunnel) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	util.Info("bastion disconnected")
	return err
}
