package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	bundleHeaderPattern = regexp.MustCompile(`^(Bundle-Ether\d+|BE\d+)`)
	bundleStatusPattern = regexp.MustCompile(`Status:\s+(\S+)`)
	bundleLinksPattern  = regexp.MustCompile(`Local links.*:\s+(\d+)\s*/\s*(\d+)\s*/\s*(\d+)`)
	bundleBWPattern     = regexp.MustCompile(`(?i)bandwidth.*:\s+(\d+)`)
	memberHeaderPattern = regexp.MustCompile(`(?i)Port\s+.*State`)
	memberRowPattern    = regexp.MustCompile(
		`^\s*((?:Gi|Te|Hu|GigabitEthernet|TenGigE|HundredGigE)\S*)\s+(\w+)\s+(\w+)\s+\S+,\s+\S+\s+(\d+)`)
)

// BundleMember is one member port of a link aggregation bundle.
type BundleMember struct {
	Interface string `json:"interface"`
	Device    string `json:"device"`
	SpeedKbps int    `json:"speed_kbps"`
	State     string `json:"state"`
}

// Bundle is one aggregated interface from "show bundle".
type Bundle struct {
	BundleName      string         `json:"bundle_name"`
	Status          string         `json:"status"`
	ActiveLinks     int            `json:"active_links"`
	StandbyLinks    int            `json:"standby_links"`
	ConfiguredLinks int            `json:"configured_links"`
	Members         []BundleMember `json:"members"`
	TotalBWKbps     int            `json:"total_bandwidth_kbps"`
	ActiveBWKbps    int            `json:"active_bandwidth_kbps"`
	CapacityClass   string         `json:"capacity_class"`
}

// Bundles is the parsed form of "show bundle".
type Bundles struct {
	Bundles     []Bundle `json:"bundles"`
	BundleCount int      `json:"bundle_count"`
}

// ParseBundles parses IOS-XR "show bundle" output. A bundle's capacity class
// reflects the summed speed of its active members: whole gigabits as "<n>G",
// otherwise "100M" or "<n>K", and "LAG" when no members are active.
func ParseBundles(output string) Bundles {
	r := Bundles{Bundles: []Bundle{}}
	var current *Bundle
	inMembers := false

	for _, line := range strings.Split(output, "\n") {
		if m := bundleHeaderPattern.FindStringSubmatch(line); m != nil {
			if current != nil {
				r.Bundles = append(r.Bundles, *current)
			}
			current = &Bundle{BundleName: m[1], Status: "Unknown", Members: []BundleMember{}}
			inMembers = false
			continue
		}
		if current == nil {
			continue
		}
		if m := bundleStatusPattern.FindStringSubmatch(line); m != nil {
			current.Status = m[1]
		}
		if m := bundleLinksPattern.FindStringSubmatch(line); m != nil {
			current.ActiveLinks, _ = strconv.Atoi(m[1])
			current.StandbyLinks, _ = strconv.Atoi(m[2])
			current.ConfiguredLinks, _ = strconv.Atoi(m[3])
		}
		if m := bundleBWPattern.FindStringSubmatch(line); m != nil {
			current.TotalBWKbps, _ = strconv.Atoi(m[1])
		}
		if memberHeaderPattern.MatchString(line) {
			inMembers = true
			continue
		}
		if !inMembers {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "-") || strings.Contains(line, "Link is") {
			continue
		}
		if m := memberRowPattern.FindStringSubmatch(line); m != nil {
			speed, _ := strconv.Atoi(m[4])
			current.Members = append(current.Members, BundleMember{
				Interface: m[1],
				Device:    m[2],
				State:     m[3],
				SpeedKbps: speed,
			})
		}
	}
	if current != nil {
		r.Bundles = append(r.Bundles, *current)
	}

	for i := range r.Bundles {
		b := &r.Bundles[i]
		active := 0
		for _, m := range b.Members {
			if strings.EqualFold(m.State, "active") {
				active += m.SpeedKbps
			}
		}
		b.ActiveBWKbps = active
		switch {
		case active >= 1000000:
			b.CapacityClass = fmt.Sprintf("%dG", active/1000000)
		case active >= 100000:
			b.CapacityClass = "100M"
		case active > 0:
			b.CapacityClass = fmt.Sprintf("%dK", active)
		default:
			b.CapacityClass = "LAG"
		}
	}
	r.BundleCount = len(r.Bundles)
	return r
}
