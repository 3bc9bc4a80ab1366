package parser

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	briefRowPattern = regexp.MustCompile(
		`^\s*((?:Gi|Te|Hu|Be|Lo|Mg|Nu)\S*)\s+(\S+)\s+(\S+)\s+(\S+)\s+(\d+)\s+(\d+)`)
	descRowPattern = regexp.MustCompile(
		`(?i)^(\S+)\s+(up|down|admin-down)\s+(up|down|admin-down)\s*(.*)`)
	intfHeaderPattern = regexp.MustCompile(`^(\S+) is ([\w-]+), line protocol is ([\w-]+)`)
	bwPattern         = regexp.MustCompile(`BW\s+(\d+)\s+Kbit`)
	inputRatePattern  = regexp.MustCompile(`input rate\s+(\d+)\s+bits/sec,\s+(\d+)\s+packets/sec`)
	outputRatePattern = regexp.MustCompile(`output rate\s+(\d+)\s+bits/sec,\s+(\d+)\s+packets/sec`)
	macPattern        = regexp.MustCompile(`address is\s+([0-9a-fA-F]{4}\.[0-9a-fA-F]{4}\.[0-9a-fA-F]{4})`)
	descPattern       = regexp.MustCompile(`Description:\s+(.+)`)
)

// CapacityClass buckets a bandwidth in kbps into a human capacity label
// ("100G", "10G", "1G", "100M", "<n>K"). Zero bandwidth is "Unknown".
func CapacityClass(bwKbps int) string {
	switch {
	case bwKbps >= 100000000:
		return "100G"
	case bwKbps >= 40000000:
		return "40G"
	case bwKbps >= 10000000:
		return "10G"
	case bwKbps >= 1000000:
		return "1G"
	case bwKbps >= 100000:
		return "100M"
	case bwKbps > 0:
		return fmt.Sprintf("%dK", bwKbps)
	default:
		return "Unknown"
	}
}

// BriefInterface is one row of "show interface brief".
type BriefInterface struct {
	Interface     string `json:"interface"`
	State         string `json:"state"`
	LineProtocol  string `json:"line_protocol"`
	Encap         string `json:"encap"`
	MTU           int    `json:"mtu"`
	BWKbps        int    `json:"bw_kbps"`
	CapacityClass string `json:"capacity_class"`
}

// InterfaceBrief is the parsed form of "show interface brief".
type InterfaceBrief struct {
	Interfaces     []BriefInterface `json:"interfaces"`
	InterfaceCount int              `json:"interface_count"`
}

// ParseInterfaceBrief parses the tabular brief output.
func ParseInterfaceBrief(output string) InterfaceBrief {
	r := InterfaceBrief{Interfaces: []BriefInterface{}}
	for _, line := range strings.Split(output, "\n") {
		m := briefRowPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		mtu, _ := strconv.Atoi(m[5])
		bw, _ := strconv.Atoi(m[6])
		r.Interfaces = append(r.Interfaces, BriefInterface{
			Interface:     m[1],
			State:         m[2],
			LineProtocol:  m[3],
			Encap:         m[4],
			MTU:           mtu,
			BWKbps:        bw,
			CapacityClass: CapacityClass(bw),
		})
	}
	r.InterfaceCount = len(r.Interfaces)
	return r
}

// InterfaceDescription is one row of "show interface description".
type InterfaceDescription struct {
	Interface   string `json:"interface"`
	Status      string `json:"status"`
	Protocol    string `json:"protocol"`
	Description string `json:"description"`
}

// InterfaceDescriptions is the parsed form of "show interface description".
type InterfaceDescriptions struct {
	Interfaces     []InterfaceDescription `json:"interfaces"`
	InterfaceCount int                    `json:"interface_count"`
}

// ParseInterfaceDescriptions parses the description table.
func ParseInterfaceDescriptions(output string) InterfaceDescriptions {
	r := InterfaceDescriptions{Interfaces: []InterfaceDescription{}}
	for _, line := range strings.Split(output, "\n") {
		m := descRowPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		r.Interfaces = append(r.Interfaces, InterfaceDescription{
			Interface:   m[1],
			Status:      m[2],
			Protocol:    m[3],
			Description: strings.TrimSpace(m[4]),
		})
	}
	r.InterfaceCount = len(r.Interfaces)
	return r
}

// Interface is one block of full "show interface" output.
type Interface struct {
	Interface        string  `json:"interface"`
	AdminStatus      string  `json:"admin_status"`
	LineProtocol     string  `json:"line_protocol"`
	BWKbps           int     `json:"bw_kbps"`
	InputRateBps     int     `json:"input_rate_bps"`
	OutputRateBps    int     `json:"output_rate_bps"`
	InputRatePps     int     `json:"input_rate_pps"`
	OutputRatePps    int     `json:"output_rate_pps"`
	MACAddress       string  `json:"mac_address,omitempty"`
	Description      string  `json:"description,omitempty"`
	CapacityClass    string  `json:"capacity_class"`
	InputUtilization float64 `json:"input_utilization_pct"`
	OutputUtilization float64 `json:"output_utilization_pct"`
}

// Interfaces is the parsed form of full "show interface" output.
type Interfaces struct {
	Interfaces     []Interface `json:"interfaces"`
	InterfaceCount int         `json:"interface_count"`
}

// ParseInterfaces walks the per-interface blocks of full output and derives
// utilization: rate_bps / (bw_kbps*1000) * 100, rounded to 2 decimals.
// Zero bandwidth yields 0%.
func ParseInterfaces(output string) Interfaces {
	r := Interfaces{Interfaces: []Interface{}}
	var current *Interface

	for _, line := range strings.Split(output, "\n") {
		if m := intfHeaderPattern.FindStringSubmatch(line); m != nil {
			if current != nil {
				r.Interfaces = append(r.Interfaces, *current)
			}
			current = &Interface{
				Interface:     m[1],
				AdminStatus:   m[2],
				LineProtocol:  m[3],
				CapacityClass: "Unknown",
			}
			continue
		}
		if current == nil {
			continue
		}
		if m := bwPattern.FindStringSubmatch(line); m != nil {
			current.BWKbps, _ = strconv.Atoi(m[1])
			current.CapacityClass = CapacityClass(current.BWKbps)
		}
		if m := inputRatePattern.FindStringSubmatch(line); m != nil {
			current.InputRateBps, _ = strconv.Atoi(m[1])
			current.InputRatePps, _ = strconv.Atoi(m[2])
		}
		if m := outputRatePattern.FindStringSubmatch(line); m != nil {
			current.OutputRateBps, _ = strconv.Atoi(m[1])
			current.OutputRatePps, _ = strconv.Atoi(m[2])
		}
		if m := macPattern.FindStringSubmatch(line); m != nil {
			current.MACAddress = m[1]
		}
		if m := descPattern.FindStringSubmatch(line); m != nil {
			current.Description = strings.TrimSpace(m[1])
		}
	}
	if current != nil {
		r.Interfaces = append(r.Interfaces, *current)
	}

	for i := range r.Interfaces {
		intf := &r.Interfaces[i]
		if intf.BWKbps > 0 {
			bwBps := float64(intf.BWKbps) * 1000
			intf.InputUtilization = round2(float64(intf.InputRateBps) / bwBps * 100)
			intf.OutputUtilization = round2(float64(intf.OutputRateBps) / bwBps * 100)
		}
	}
	r.InterfaceCount = len(r.Interfaces)
	return r
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
