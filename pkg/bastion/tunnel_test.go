package bastion

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net"
	"path/filepath"
	"sync"
	"testing"

	"golang.org/x/crypto/ssh"

	"github.com/netgrid-io/netgrid/pkg/config"
)

func newSource(t *testing.T, j config.Jumphost) *config.Source {
	t.Helper()
	s, err := config.NewSource(filepath.Join(t.TempDir(), "jumphost.json"), j)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestEnsureConnectedDisabled(t *testing.T) {
	tun := NewTunnel(newSource(t, config.Jumphost{Enabled: false, Host: "bastion.example.net"}))

	err := tun.EnsureConnected(context.Background())
	if err == nil {
		t.Fatal("expected error with jumphost disabled")
	}
	var terr *TunnelError
	if !errors.As(err, &terr) {
		t.Fatalf("error type = %T, want TunnelError", err)
	}
	if terr.Stage != "connect" {
		t.Errorf("stage = %q, want connect", terr.Stage)
	}
	if tun.Active() {
		t.Error("tunnel active after failed connect")
	}
}

func TestEnsureConnectedInvalidRecord(t *testing.T) {
	tun := NewTunnel(newSource(t, config.Jumphost{Enabled: true}))

	err := tun.EnsureConnected(context.Background())
	var cerr *config.ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("error = %v, want ConfigError for missing host", err)
	}
}

func TestEnsureConnectedUnreachable(t *testing.T) {
	// Port 1 refuses instantly; all retries burn out and the failure names
	// the host.
	tun := NewTunnel(newSource(t, config.Jumphost{
		Enabled: true, Host: "127.0.0.1", Port: 1, Username: "jumper", Password: "jp",
	}))

	err := tun.EnsureConnected(context.Background())
	var terr *TunnelError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %v, want TunnelError", err)
	}
	if terr.Host != "127.0.0.1" {
		t.Errorf("host = %q", terr.Host)
	}
	if tun.Active() {
		t.Error("tunnel active after failed dial")
	}
}

// startTestJumphost serves password-auth SSH on a loopback listener. Global
// requests are answered (so keepalives get a reply), channels are refused.
func startTestJumphost(t *testing.T) (host string, port int, stop func()) {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &ssh.ServerConfig{
		PasswordCallback: func(ssh.ConnMetadata, []byte) (*ssh.Permissions, error) {
			return nil, nil
		},
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				srv, chans, reqs, err := ssh.NewServerConn(conn, cfg)
				if err != nil {
					conn.Close()
					return
				}
				go ssh.DiscardRequests(reqs)
				go func() {
					for ch := range chans {
						ch.Reject(ssh.Prohibited, "no channels")
					}
				}()
				<-done
				srv.Close()
			}()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	stop = func() {
		close(done)
		ln.Close()
		wg.Wait()
	}
	return addr.IP.String(), addr.Port, stop
}

func TestEnsureConnectedRedialsDeadTransport(t *testing.T) {
	host, port, stop := startTestJumphost(t)

	tun := NewTunnel(newSource(t, config.Jumphost{
		Enabled: true, Host: host, Port: port, Username: "netops", Password: "np",
	}))
	defer tun.Close()

	ctx := context.Background()
	if err := tun.EnsureConnected(ctx); err != nil {
		t.Fatal(err)
	}
	if !tun.Active() {
		t.Fatal("tunnel not active after connect")
	}

	// A second call reuses the live client.
	if err := tun.EnsureConnected(ctx); err != nil {
		t.Fatalf("reuse of live client = %v", err)
	}

	// Kill the jumphost. The cached client is now a dead transport: the next
	// EnsureConnected must detect it and redial, which fails against the
	// stopped listener instead of silently returning the corpse.
	stop()
	err := tun.EnsureConnected(ctx)
	var terr *TunnelError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %v, want TunnelError from redial", err)
	}
	if terr.Stage != "connect" {
		t.Errorf("stage = %q, want connect", terr.Stage)
	}
	if tun.Active() {
		t.Error("dead client still cached")
	}
}

func TestCloseIdempotent(t *testing.T) {
	tun := NewTunnel(newSource(t, config.Jumphost{}))
	if err := tun.Close(); err != nil {
		t.Errorf("close without client = %v", err)
	}
	if err := tun.Close(); err != nil {
		t.Errorf("second close = %v", err)
	}
}

func TestSettingsChangeInvalidatesTunnel(t *testing.T) {
	source := newSource(t, config.Jumphost{})
	tun := NewTunnel(source)

	// Save triggers the registered invalidation; with no client this is a
	// no-op and must not panic or error the save.
	if err := source.Save(config.Jumphost{Enabled: false}); err != nil {
		t.Fatal(err)
	}
	if tun.Active() {
		t.Error("tunnel active after settings change")
	}
}
