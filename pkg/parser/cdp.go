package parser

import (
	"regexp"
	"strings"
)

var cdpPortPattern = regexp.MustCompile(`Interface:\s+(\S+),.*Port ID.*:\s+(\S+)`)

// CDPNeighbor is one neighbor entry from CDP output. Platform and IPAddress
// are only populated by the detail variant.
type CDPNeighbor struct {
	DeviceID        string `json:"device_id"`
	Platform        string `json:"platform,omitempty"`
	LocalInterface  string `json:"local_interface"`
	RemoteInterface string `json:"remote_interface"`
	IPAddress       string `json:"ip_address,omitempty"`
}

// CDPDetail is the parsed form of "show cdp neighbor detail".
type CDPDetail struct {
	Neighbors     []CDPNeighbor `json:"cdp_neighbors"`
	NeighborCount int           `json:"neighbor_count"`
}

// ParseCDPDetail walks the per-neighbor blocks of the detail output.
func ParseCDPDetail(output string) CDPDetail {
	d := CDPDetail{Neighbors: []CDPNeighbor{}}
	var current *CDPNeighbor

	for _, line := range strings.Split(output, "\n") {
		switch {
		case strings.Contains(line, "Device ID:"):
			if current != nil {
				d.Neighbors = append(d.Neighbors, *current)
			}
			idx := strings.LastIndex(line, ":")
			current = &CDPNeighbor{DeviceID: strings.TrimSpace(line[idx+1:])}
		case current == nil:
			// Ignore preamble before the first neighbor block.
		case strings.Contains(line, "Platform:"):
			// "Platform: cisco XRv9000,  Capabilities: Router"
			platform := strings.SplitN(line, ",", 2)[0]
			current.Platform = strings.TrimSpace(strings.ReplaceAll(platform, "Platform:", ""))
		case strings.Contains(line, "Interface:"):
			if m := cdpPortPattern.FindStringSubmatch(line); m != nil {
				current.LocalInterface = m[1]
				current.RemoteInterface = m[2]
			}
		case strings.Contains(line, "IP address:"):
			idx := strings.LastIndex(line, ":")
			current.IPAddress = strings.TrimSpace(line[idx+1:])
		}
	}
	if current != nil {
		d.Neighbors = append(d.Neighbors, *current)
	}
	d.NeighborCount = len(d.Neighbors)
	return d
}

// CDPBrief is the parsed form of tabular "show cdp neighbor" output.
type CDPBrief struct {
	Neighbors     []CDPNeighbor `json:"neighbors"`
	NeighborCount int           `json:"neighbor_count"`
}

// interfaceHints are the abbreviations that distinguish a data row from
// banner or header text in the brief table.
var interfaceHints = []string{"Gi", "Te", "Hu", "Fa", "Eth", "Ten", "Gig", "Fast"}

// ParseCDPBrief extracts neighbors from the brief table. The device id is the
// first column, the local interface the second, and the port id the last;
// lines wrapped by the terminal lack enough columns and are skipped.
func ParseCDPBrief(output string) CDPBrief {
	b := CDPBrief{Neighbors: []CDPNeighbor{}}
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "Device ID") || strings.Contains(line, "Capability") {
			continue
		}
		hasInterface := false
		for _, hint := range interfaceHints {
			if strings.Contains(line, hint) {
				hasInterface = true
				break
			}
		}
		if !hasInterface {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 6 {
			continue
		}
		b.Neighbors = append(b.Neighbors, CDPNeighbor{
			DeviceID:        parts[0],
			LocalInterface:  parts[1],
			RemoteInterface: parts[len(parts)-1],
		})
	}
	b.NeighborCount = len(b.Neighbors)
	return b
}
