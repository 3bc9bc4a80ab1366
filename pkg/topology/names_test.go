package topology

import "testing"

func TestCleanInterfaceName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"GigabitEthernet0/0/0/1", "GigabitEthernet0/0/0/1"},
		{"Gi0/0/0/1\n", "Gi0/0/0/1"},
		{"Te0/0/0/2\r\n       Holdtime : 153 sec", "Te0/0/0/2"},
		{"Hu0/0/0/3 Capability Codes: R S I", "Hu0/0/0/3"},
		{"Gi 0/0/0/4", "Gi0/0/0/4"},
		{"", "Unknown"},
		{"\n\t  ", "Unknown"},
	}
	for _, tt := range tests {
		if got := CleanInterfaceName(tt.in); got != tt.want {
			t.Errorf("CleanInterfaceName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExpandInterfaceName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Gi0/0/0/1", "GigabitEthernet0/0/0/1"},
		{"Te0/1/0/0", "TenGigE0/1/0/0"},
		{"Hu0/0/0/0", "HundredGigE0/0/0/0"},
		{"BE200", "Bundle-Ether200"},
		{"BE200.100", "Bundle-Ether200.100"},
		{"Lo0", "Loopback0"},
		{"GigabitEthernet0/0/0/1", "GigabitEthernet0/0/0/1"},
		{"tunnel-ip100", "tunnel-ip100"},
		{"Serial0/0", "Serial0/0"},
	}
	for _, tt := range tests {
		if got := ExpandInterfaceName(tt.in); got != tt.want {
			t.Errorf("ExpandInterfaceName(%q) = %q, want %q", tt.in, got, tt.want)
		}
		// Expansion is idempotent.
		if got := ExpandInterfaceName(ExpandInterfaceName(tt.in)); got != tt.want {
			t.Errorf("ExpandInterfaceName twice on %q = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAbbreviateInterfaceName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"GigabitEthernet0/0/0/0", "Gi0/0/0/0"},
		{"Gi0/0/0/0", "Gi0/0/0/0"},
		{"TenGigE0/1/0/3", "Te0/1/0/3"},
		{"TenGigabitEthernet1/0/1", "Te1/0/1"},
		{"HundredGigE0/0/0/0", "Hu0/0/0/0"},
		{"Bundle-Ether200", "BE200"},
		{"Bundle-Ether200.100", "BE200.100"},
		{"FastEthernet0/0", "Fa0/0"},
		{"Loopback0", "Lo0"},
		{"Null0", "Nu0"},
		{"Gi0/0/0/1\n   Holdtime : 120", "Gi0/0/0/1"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := AbbreviateInterfaceName(tt.in); got != tt.want {
			t.Errorf("AbbreviateInterfaceName(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if tt.want == "" {
			continue
		}
		// Both spellings of the same port land on one storage key.
		if got := AbbreviateInterfaceName(tt.want); got != tt.want {
			t.Errorf("AbbreviateInterfaceName(%q) not idempotent: got %q", tt.want, got)
		}
	}
}

func TestShortInterfaceID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"GigabitEthernet0/0/0/1", "Gi0001"},
		{"TenGigE0/1/0/0", "Te0100"},
		{"Bundle-Ether200", "BE200"},
		{"HundredGigE0/0/0/0", "Hu0000"},
		{"unknown", "unknown"},
	}
	for _, tt := range tests {
		if got := ShortInterfaceID(tt.in); got != tt.want {
			t.Errorf("ShortInterfaceID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsPhysicalInterface(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Gi0/0/0/1", true},
		{"Gi0/0/0/1.100", false},
		{"BE200", true},
		{"BE200.10", false},
		{"Lo0", true},
	}
	for _, tt := range tests {
		if got := IsPhysicalInterface(tt.in); got != tt.want {
			t.Errorf("IsPhysicalInterface(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParentInterface(t *testing.T) {
	if got := ParentInterface("Gi0/0/0/1.100"); got != "Gi0/0/0/1" {
		t.Errorf("ParentInterface = %q, want Gi0/0/0/1", got)
	}
	if got := ParentInterface("Gi0/0/0/1"); got != "" {
		t.Errorf("ParentInterface on physical = %q, want empty", got)
	}
}

func TestCapacityFromInterfaceType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"HundredGigE0/0/0/0", "100G"},
		{"Hu0/0/0/0", "100G"},
		{"FortyGigE0/0/0/1", "40G"},
		{"TenGigE0/1/0/3", "10G"},
		{"Te0/1/0/3", "10G"},
		{"GigabitEthernet0/0/0/0", "1G"},
		{"Gi0/0/0/0.100", "1G"},
		{"FastEthernet0/0", "100M"},
		{"Bundle-Ether200", "LAG"},
		{"BE200", "LAG"},
		{"Loopback0", "1G"},
		{"Serial0/0", "1G"},
	}
	for _, tt := range tests {
		if got := CapacityFromInterfaceType(tt.in); got != tt.want {
			t.Errorf("CapacityFromInterfaceType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
