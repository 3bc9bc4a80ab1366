package device

import "testing"

func TestPromptPattern(t *testing.T) {
	tests := []struct {
		out  string
		want bool
	}{
		{"gbr-lon-r1#", true},
		{"gbr-lon-r1>", true},
		{"RP/0/RSP0/CPU0:gbr-lon-r1#", true},
		{"RP/0/RSP0/CPU0:gbr-lon-r1# ", true},
		{"show version\noutput line\ngbr-lon-r1#", true},
		{"still streaming output", false},
		{"a # in the middle of a line", false},
	}
	for _, tt := range tests {
		if got := promptPattern.MatchString(tt.out); got != tt.want {
			t.Errorf("promptPattern(%q) = %v, want %v", tt.out, got, tt.want)
		}
	}
}

func TestStripEcho(t *testing.T) {
	raw := "show ospf neighbor\r\nNeighbor ID     Pri   State\r\n10.0.0.2        1     FULL/DR\r\ngbr-lon-r1#"
	got := stripEcho(raw, "show ospf neighbor")
	want := "Neighbor ID     Pri   State\n10.0.0.2        1     FULL/DR"
	if got != want {
		t.Errorf("stripEcho = %q, want %q", got, want)
	}

	// Output without echo or prompt passes through.
	if got := stripEcho("plain output", "show version"); got != "plain output" {
		t.Errorf("stripEcho passthrough = %q", got)
	}
}
