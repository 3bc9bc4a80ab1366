// Package topology builds the network graph from collected CLI output:
// nodes, directional OSPF links with resolved costs, paired physical links,
// and the interface capacity view.
package topology

import (
	"regexp"
	"strings"
)

var (
	holdtimeGarbage   = regexp.MustCompile(`(?i)Holdtime.*`)
	capabilityGarbage = regexp.MustCompile(`(?i)Capability.*`)
	innerWhitespace   = regexp.MustCompile(`\s+`)
)

// expandMap grows abbreviated interface names to their full IOS-XR form.
// Full names pass through; order matters so longer abbreviations win.
var expandMap = []struct{ abbrev, full string }{
	{"Hu", "HundredGigE"},
	{"Fo", "FortyGigE"},
	{"Tf", "TwentyFiveGigE"},
	{"Te", "TenGigE"},
	{"Gi", "GigabitEthernet"},
	{"BE", "Bundle-Ether"},
	{"Lo", "Loopback"},
	{"Mg", "MgmtEth"},
}

var fullNames = []string{
	"HundredGigE", "FortyGigE", "TwentyFiveGigE", "TenGigE", "GigabitEthernet",
	"Bundle-Ether", "Loopback", "MgmtEth", "BVI", "tunnel-ip", "tunnel-te", "NVE",
}

// CleanInterfaceName strips control characters and CDP column garbage (a
// wrapped "Holdtime"/"Capability" suffix) from an interface name.
func CleanInterfaceName(name string) string {
	if name == "" {
		return "Unknown"
	}
	for _, r := range []string{"\n", "\r", "\t"} {
		name = strings.ReplaceAll(name, r, "")
	}
	name = holdtimeGarbage.ReplaceAllString(name, "")
	name = capabilityGarbage.ReplaceAllString(name, "")
	name = innerWhitespace.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	if name == "" {
		return "Unknown"
	}
	return name
}

// ExpandInterfaceName turns an abbreviated name into the full IOS-XR form:
// Gi0/0/0/1 -> GigabitEthernet0/0/0/1, BE200 -> Bundle-Ether200. Full names
// and unknown types pass through unchanged. Idempotent.
func ExpandInterfaceName(name string) string {
	for _, full := range fullNames {
		if strings.HasPrefix(name, full) {
			return name
		}
	}
	for _, e := range expandMap {
		if strings.HasPrefix(name, e.abbrev) {
			return e.full + name[len(e.abbrev):]
		}
	}
	return name
}

// abbreviateMap collapses full interface forms to the canonical short form
// used as the storage key, so Gi0/0/0/0 and GigabitEthernet0/0/0/0 land on
// one row. Keys are uppercase prefixes.
var abbreviateMap = []struct{ full, abbrev string }{
	{"TWENTYFIVEGIGE", "Tf"},
	{"TENGIGABITETHERNET", "Te"},
	{"HUNDREDGIGE", "Hu"},
	{"GIGABITETHERNET", "Gi"},
	{"FASTETHERNET", "Fa"},
	{"BUNDLE-ETHER", "BE"},
	{"FORTYGIGE", "Fo"},
	{"LOOPBACK", "Lo"},
	{"TENGIGE", "Te"},
	{"MGMTETH", "Mg"},
	{"NULL", "Nu"},
}

// AbbreviateInterfaceName normalizes to the short canonical form, cleaning
// CDP garbage first. Subinterface suffixes are preserved. Idempotent.
func AbbreviateInterfaceName(name string) string {
	name = CleanInterfaceName(name)
	if name == "Unknown" {
		return ""
	}

	suffix := ""
	if i := strings.Index(name, "."); i >= 0 {
		suffix = name[i:]
		name = name[:i]
	}

	upper := strings.ToUpper(name)
	for _, e := range abbreviateMap {
		if strings.HasPrefix(upper, e.full) {
			return e.abbrev + name[len(e.full):] + suffix
		}
	}
	return name + suffix
}

// shortenForID maps full forms to terse labels for link ids:
// GigabitEthernet0/0/0/1 -> Gi0001, Bundle-Ether200 -> BE200.
var shortenForID = []struct{ full, abbrev string }{
	{"HundredGigE", "Hu"},
	{"FortyGigE", "Fo"},
	{"TwentyFiveGigE", "Tf"},
	{"TenGigE", "Te"},
	{"GigabitEthernet", "Gi"},
	{"Bundle-Ether", "BE"},
	{"Loopback", "Lo"},
	{"MgmtEth", "Mg"},
	{"tunnel-ip", "tip"},
	{"tunnel-te", "tte"},
}

// ShortInterfaceID shortens an interface name for use inside a link id and
// drops the slashes.
func ShortInterfaceID(name string) string {
	result := name
	for _, e := range shortenForID {
		if strings.HasPrefix(name, e.full) {
			result = e.abbrev + name[len(e.full):]
			break
		}
	}
	return strings.ReplaceAll(result, "/", "")
}

// IsPhysicalInterface reports whether the name denotes a physical port:
// subinterfaces (dotted) and bundle member notations are logical.
func IsPhysicalInterface(name string) bool {
	if strings.Contains(name, ".") {
		return false
	}
	if strings.HasPrefix(name, "BE") && strings.Contains(name, "/") {
		return false
	}
	return true
}

// ParentInterface returns the parent of a subinterface, or "" for physical
// interfaces.
func ParentInterface(name string) string {
	if i := strings.Index(name, "."); i >= 0 {
		return name[:i]
	}
	return ""
}

// CapacityFromInterfaceType derives the capacity class from the interface
// type designation alone, never from traffic. Bundles without member data
// report "LAG"; unknown types default to 1G.
func CapacityFromInterfaceType(name string) string {
	upper := strings.ToUpper(name)
	switch {
	case strings.HasPrefix(upper, "HUNDREDGIGE"), strings.HasPrefix(upper, "HU"):
		return "100G"
	case strings.HasPrefix(upper, "FORTYGIGE"), strings.HasPrefix(upper, "FO"):
		return "40G"
	case strings.HasPrefix(upper, "TWENTYFIVEGIGE"), strings.HasPrefix(upper, "TF"):
		return "25G"
	case strings.HasPrefix(upper, "TENGIGE"), strings.HasPrefix(upper, "TE"),
		strings.HasPrefix(upper, "TENGIGABITETHERNET"):
		return "10G"
	case strings.HasPrefix(upper, "GIGABITETHERNET"), strings.HasPrefix(upper, "GI"):
		return "1G"
	case strings.HasPrefix(upper, "FASTETHERNET"), strings.HasPrefix(upper, "FA"):
		return "100M"
	case strings.HasPrefix(upper, "BUNDLE-ETHER"), strings.HasPrefix(upper, "BE"):
		return "LAG"
	case strings.HasPrefix(upper, "LOOPBACK"), strings.HasPrefix(upper, "LO"):
		return "1G"
	default:
		return "1G"
	}
}

// HardwareBandwidthKbps maps a capacity class back to nominal kbps.
func HardwareBandwidthKbps(name string) int {
	switch CapacityFromInterfaceType(name) {
	case "100G":
		return 100000000
	case "40G":
		return 40000000
	case "25G":
		return 25000000
	case "10G":
		return 10000000
	case "1G":
		return 1000000
	case "100M":
		return 100000
	case "LAG":
		return 0
	default:
		return 1000000
	}
}
