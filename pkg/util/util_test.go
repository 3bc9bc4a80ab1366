package util

import (
	"errors"
	"testing"
)

func TestOpError(t *testing.T) {
	base := errors.New("boom")

	e := &OpError{Op: "exec", Device: "gbr-lon-r1", Err: base}
	if got := e.Error(); got != "exec gbr-lon-r1: boom" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(e, base) {
		t.Error("OpError does not unwrap to its cause")
	}

	processLevel := &OpError{Op: "write", Err: base}
	if got := processLevel.Error(); got != "write: boom" {
		t.Errorf("Error() without device = %q", got)
	}

	wrapped := &OpError{Op: "exec", Device: "r1", Err: ErrTimeout}
	if !errors.Is(wrapped, ErrTimeout) {
		t.Error("sentinel lost through OpError")
	}
}

func TestSlugifyCommand(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"show ospf neighbor", "show_ospf_neighbor"},
		{"show running-config router ospf", "show_running-config_router_ospf"},
		{"show interfaces Gi0/0/0/1", "show_interfaces_Gi0-0-0-1"},
	}
	for _, tt := range tests {
		if got := SlugifyCommand(tt.in); got != tt.want {
			t.Errorf("SlugifyCommand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFirstIPv4(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"OSPF Router with ID (10.0.0.1) (Process ID 1)", "10.0.0.1"},
		{"no addresses here", ""},
		{"two 1.2.3.4 then 5.6.7.8", "1.2.3.4"},
	}
	for _, tt := range tests {
		if got := FirstIPv4(tt.in); got != tt.want {
			t.Errorf("FirstIPv4(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
