// Package device manages SSH sessions to routers: dialect detection, the
// interactive shell with prompt handling, and the connection pool.
package device

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/netgrid-io/netgrid/pkg/inventory"
	"github.com/netgrid-io/netgrid/pkg/util"
)

// Dialect identifies the CLI family of a device.
type Dialect string

const (
	DialectIOS   Dialect = "ios"
	DialectIOSXR Dialect = "ios-xr"
	DialectNXOS  Dialect = "nxos"
)

// DetectDialect selects the CLI dialect from inventory hints. Priority order
// matters: XR beats XE substring matches ("IOS XR" contains neither).
func DetectDialect(d inventory.Device) Dialect {
	software := strings.ToUpper(d.Software)
	platform := strings.ToUpper(d.Platform)
	switch {
	case strings.Contains(software, "XR") || strings.Contains(platform, "ASR9"):
		return DialectIOSXR
	case strings.Contains(software, "NX") || strings.Contains(platform, "NEXUS"):
		return DialectNXOS
	case strings.Contains(software, "XE"):
		return DialectIOS
	default:
		return DialectIOS
	}
}

// promptPattern matches a Cisco exec prompt at the end of accumulated output.
// Covers "router#", "router>", "RP/0/RSP0/CPU0:router#".
var promptPattern = regexp.MustCompile(`(?m)^[\w./:()-]*[#>]\s*$`)

// Session is one interactive shell to a device. Run is serialized by the
// session mutex; a session belongs to a single job worker at a time.
type Session struct {
	mu      sync.Mutex
	device  inventory.Device
	dialect Dialect
	client  *ssh.Client
	sess    *ssh.Session
	stdin   io.WriteCloser
	out     *shellReader
}

// shellReader accumulates shell output in the background so prompt scanning
// never blocks on the SSH channel.
type shellReader struct {
	mu  sync.Mutex
	buf bytes.Buffer
	err error
}

func (r *shellReader) consume(src io.Reader) {
	chunk := make([]byte, 4096)
	for {
		n, err := src.Read(chunk)
		r.mu.Lock()
		if n > 0 {
			r.buf.Write(chunk[:n])
		}
		if err != nil {
			r.err = err
			r.mu.Unlock()
			return
		}
		r.mu.Unlock()
	}
}

// snapshot returns the buffered output and any terminal read error.
func (r *shellReader) snapshot() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String(), r.err
}

func (r *shellReader) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf.Reset()
}

// openSession performs the SSH handshake over conn (a direct TCP connection
// or a bastion channel), starts an interactive shell, and waits for the
// first prompt.
func openSession(conn net.Conn, d inventory.Device, dialect Dialect, user, pass string, timeout time.Duration) (*Session, error) {
	addr := net.JoinHostPort(d.Address, fmt.Sprintf("%d", d.Port))
	cfg := &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.Password(pass)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("ssh handshake: %w", err)
	}
	client := ssh.NewClient(c, chans, reqs)

	sess, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ssh session: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 115200,
		ssh.TTY_OP_OSPEED: 115200,
	}
	if err := sess.RequestPty("vt100", 80, 512, modes); err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("request pty: %w", err)
	}

	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := sess.Shell(); err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("start shell: %w", err)
	}

	s := &Session{
		device:  d,
		dialect: dialect,
		client:  client,
		sess:    sess,
		stdin:   stdin,
		out:     &shellReader{},
	}
	go s.out.consume(stdout)

	// Banner and MOTD precede the first prompt on slow boxes.
	if _, err := s.waitPrompt(timeout); err != nil {
		s.close()
		return nil, fmt.Errorf("waiting for prompt: %w", err)
	}
	return s, nil
}

// Dialect returns the detected CLI dialect.
func (s *Session) Dialect() Dialect { return s.dialect }

// Device returns the inventory record this session is bound to.
func (s *Session) Device() inventory.Device { return s.device }

// Run sends a command and collects output until the next prompt or timeout.
// Duration is wall clock, including prompt wait.
func (s *Session) Run(ctx context.Context, command string, timeout time.Duration) (string, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	s.out.reset()

	if _, err := io.WriteString(s.stdin, command+"\n"); err != nil {
		return "", time.Since(start), &util.OpError{Op: "exec", Device: s.device.Name, Err: err}
	}

	deadline := time.After(timeout)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", time.Since(start), &util.OpError{Op: "exec", Device: s.device.Name, Err: util.ErrCancelled}
		case <-deadline:
			partial, _ := s.out.snapshot()
			return stripEcho(partial, command), time.Since(start),
				&util.OpError{Op: "exec", Device: s.device.Name, Err: util.ErrTimeout}
		case <-tick.C:
			raw, err := s.out.snapshot()
			if promptPattern.MatchString(raw) {
				return stripEcho(raw, command), time.Since(start), nil
			}
			if err != nil {
				return stripEcho(raw, command), time.Since(start),
					&util.OpError{Op: "exec", Device: s.device.Name, Err: err}
			}
		}
	}
}

// waitPrompt blocks until a prompt shows up in the output buffer.
func (s *Session) waitPrompt(timeout time.Duration) (string, error) {
	deadline := time.After(timeout)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-deadline:
			return "", util.ErrTimeout
		case <-tick.C:
			raw, err := s.out.snapshot()
			if promptPattern.MatchString(raw) {
				return raw, nil
			}
			if err != nil {
				return raw, err
			}
		}
	}
}

// stripEcho removes the echoed command line and the trailing prompt from raw
// shell output, leaving the command's own output.
func stripEcho(raw, command string) string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		if i == 0 && strings.Contains(line, command) {
			continue
		}
		if i == len(lines)-1 && promptPattern.MatchString(line) {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n ")
}

func (s *Session) close() error {
	s.stdin.Close()
	s.sess.Close()
	return s.client.Close()
}
