package device

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/netgrid-io/netgrid/pkg/bastion"
	"github.com/netgrid-io/netgrid/pkg/config"
	"github.com/netgrid-io/netgrid/pkg/inventory"
	"github.com/netgrid-io/netgrid/pkg/util"
)

func newSource(t *testing.T, j config.Jumphost) *config.Source {
	t.Helper()
	s, err := config.NewSource(filepath.Join(t.TempDir(), "jumphost.json"), j)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestConnectFailsWithoutFallbackWhenBastionDown(t *testing.T) {
	// A live listener stands in for the device. The jumphost points at a
	// closed port, so the bastion dial fails; the device listener must never
	// see a connection, proving there is no direct-dial fallback.
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer lis.Close()

	touched := make(chan struct{}, 1)
	go func() {
		if c, err := lis.Accept(); err == nil {
			touched <- struct{}{}
			c.Close()
		}
	}()

	devicePort := lis.Addr().(*net.TCPAddr).Port
	source := newSource(t, config.Jumphost{
		Enabled: true, Host: "127.0.0.1", Port: 1, Username: "jumper", Password: "jp",
	})
	pool := NewPool(source, &config.Env{}, bastion.NewTunnel(source))

	d := inventory.Device{ID: "gbr-lon-r1", Name: "gbr-lon-r1", Address: "127.0.0.1", Port: devicePort}
	_, err = pool.Connect(context.Background(), d, 5*time.Second)
	if err == nil {
		t.Fatal("connect succeeded with an unreachable bastion")
	}

	var cerr *ConnectionError
	if !errors.As(err, &cerr) {
		t.Fatalf("error type = %T, want ConnectionError", err)
	}
	var terr *bastion.TunnelError
	if !errors.As(err, &terr) {
		t.Fatalf("cause = %v, want a bastion TunnelError", err)
	}
	if terr.Stage != "connect" {
		t.Errorf("stage = %q, want connect", terr.Stage)
	}

	select {
	case <-touched:
		t.Fatal("device listener was dialed directly; bastion failure must not fall back")
	case <-time.After(100 * time.Millisecond):
	}

	if pool.IsConnected(d.ID) {
		t.Error("failed connect left a session in the pool")
	}
}

func TestGetNotConnected(t *testing.T) {
	source := newSource(t, config.Jumphost{})
	pool := NewPool(source, &config.Env{}, bastion.NewTunnel(source))

	if _, err := pool.Get("nope"); !errors.Is(err, util.ErrNotConnected) {
		t.Errorf("Get on empty pool = %v, want ErrNotConnected", err)
	}
	if pool.IsConnected("nope") {
		t.Error("IsConnected on empty pool")
	}
	// Disconnect of an unknown device is a no-op.
	if err := pool.Disconnect("nope"); err != nil {
		t.Errorf("Disconnect = %v", err)
	}
}

func TestDetectDialect(t *testing.T) {
	tests := []struct {
		d    inventory.Device
		want Dialect
	}{
		{inventory.Device{Software: "IOS XR", Platform: "ASR-9901"}, DialectIOSXR},
		{inventory.Device{Platform: "ASR9K"}, DialectIOSXR},
		{inventory.Device{Platform: "Nexus 9300"}, DialectNXOS},
		{inventory.Device{Software: "IOS XE"}, DialectIOS},
		{inventory.Device{}, DialectIOS},
	}
	for _, tt := range tests {
		if got := DetectDialect(tt.d); got != tt.want {
			t.Errorf("DetectDialect(%+v) = %s, want %s", tt.d, got, tt.want)
		}
	}
}
