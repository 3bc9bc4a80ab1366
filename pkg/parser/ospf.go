package parser

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	lsaRowPattern = regexp.MustCompile(
		`(\d+\.\d+\.\d+\.\d+)\s+(\d+\.\d+\.\d+\.\d+)\s+(\d+)\s+(0x[0-9a-fA-F]+)\s+(0x[0-9a-fA-F]+)\s+(\d+)`)
	lsaPairPattern     = regexp.MustCompile(`(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})\s+(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)
	linkStateIDPattern = regexp.MustCompile(`Link State ID:\s+(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)
	advRouterPattern   = regexp.MustCompile(`Advertising Router:\s+(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)
	drAddressPattern   = regexp.MustCompile(`\(Link ID\)\s+Designated Router address:\s+(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)
	tosMetricPattern   = regexp.MustCompile(`TOS 0 [Mm]etrics?:\s+(\d+)`)
	attachedPattern    = regexp.MustCompile(`Attached Router:\s+(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)
	ospfCostPattern    = regexp.MustCompile(`cost\s+(\d+)`)
)

// LSA is one row of a "show ospf database" summary table.
type LSA struct {
	LinkID    string `json:"link_id"`
	AdvRouter string `json:"adv_router"`
	Age       int    `json:"age"`
	Seq       string `json:"seq"`
	Checksum  string `json:"checksum"`
	LinkCount int    `json:"link_count"`
}

// LSASummary is the parsed form of any "show ospf database" variant.
type LSASummary struct {
	LSAs     []LSA `json:"lsas"`
	LSACount int   `json:"lsa_count"`
}

// ParseLSASummary extracts LSA table rows from OSPF database output.
func ParseLSASummary(output string) LSASummary {
	s := LSASummary{LSAs: []LSA{}}
	for _, m := range lsaRowPattern.FindAllStringSubmatch(output, -1) {
		age, _ := strconv.Atoi(m[3])
		count, _ := strconv.Atoi(m[6])
		s.LSAs = append(s.LSAs, LSA{
			LinkID:    m[1],
			AdvRouter: m[2],
			Age:       age,
			Seq:       m[4],
			Checksum:  m[5],
			LinkCount: count,
		})
	}
	s.LSACount = len(s.LSAs)
	return s
}

// RouterIDs collects the distinct Link State IDs appearing in a
// "show ospf database" summary, one per participating router.
func RouterIDs(output string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, line := range strings.Split(output, "\n") {
		m := lsaPairPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if !seen[m[1]] {
			seen[m[1]] = true
			ids = append(ids, m[1])
		}
	}
	return ids
}

// RouterLSACosts extracts link costs advertised by sourceRouterID from
// "show ospf database router" output. Each Transit Network block maps the
// designated router address (the link id) to the TOS 0 metric.
func RouterLSACosts(output, sourceRouterID string) map[string]int {
	costs := make(map[string]int)
	lines := strings.Split(output, "\n")

	var currentRouter string
	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if m := linkStateIDPattern.FindStringSubmatch(line); m != nil {
			currentRouter = m[1]
			continue
		}
		// Advertising Router overrides; it is the more reliable field.
		if m := advRouterPattern.FindStringSubmatch(line); m != nil {
			currentRouter = m[1]
			continue
		}
		if currentRouter != sourceRouterID {
			continue
		}
		if !strings.Contains(line, "Link connected to: a Transit Network") &&
			!strings.Contains(line, "Links connected to: a Transit Network") {
			continue
		}

		var linkID string
		cost := -1
		j := i + 1
		for ; j < len(lines) && j < i+10; j++ {
			if m := drAddressPattern.FindStringSubmatch(lines[j]); m != nil {
				linkID = m[1]
			}
			if m := tosMetricPattern.FindStringSubmatch(lines[j]); m != nil {
				cost, _ = strconv.Atoi(m[1])
				break
			}
		}
		if linkID != "" && cost > 0 {
			costs[linkID] = cost
		}
		i = j
	}
	return costs
}

// NetworkLSAMap parses "show ospf database network" into a map from the
// designated router address (link id) to the router ids attached to that
// segment.
func NetworkLSAMap(output string) map[string][]string {
	networks := make(map[string][]string)
	var current string
	for _, line := range strings.Split(output, "\n") {
		if m := linkStateIDPattern.FindStringSubmatch(line); m != nil {
			current = m[1]
			networks[current] = []string{}
			continue
		}
		if current == "" {
			continue
		}
		if m := attachedPattern.FindStringSubmatch(line); m != nil {
			networks[current] = append(networks[current], m[1])
		}
	}
	return networks
}

// OSPFInterface is one row of "show ospf interface brief".
type OSPFInterface struct {
	Interface string `json:"interface"`
	Area      string `json:"area"`
	IPMask    string `json:"ip_mask"`
	Cost      int    `json:"cost"`
	State     string `json:"state"`
}

// InterfaceBriefCosts parses "show ospf interface brief" into a map from
// (abbreviated) interface name to operational OSPF cost. Rows start after the
// header line carrying both "Interface" and "Cost".
func InterfaceBriefCosts(output string) map[string]int {
	costs := make(map[string]int)
	parsing := false
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "Interface") && strings.Contains(line, "Cost") {
			parsing = true
			continue
		}
		if !parsing || strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 5 {
			continue
		}
		cost, err := strconv.Atoi(parts[4])
		if err != nil {
			continue
		}
		costs[parts[0]] = cost
	}
	return costs
}

// ConfiguredOSPFCosts parses "show running-config router ospf" into a map
// from interface name to explicitly configured cost, scoped to area blocks.
func ConfiguredOSPFCosts(output string) map[string]int {
	costs := make(map[string]int)
	var currentInterface string
	inArea := false

	for _, line := range strings.Split(output, "\n") {
		stripped := strings.TrimSpace(line)

		if strings.HasPrefix(stripped, "area ") {
			inArea = true
			continue
		}
		if inArea && strings.HasPrefix(stripped, "interface ") {
			currentInterface = strings.TrimSpace(strings.TrimPrefix(stripped, "interface "))
			continue
		}
		if currentInterface != "" && strings.Contains(stripped, "cost ") {
			if m := ospfCostPattern.FindStringSubmatch(stripped); m != nil {
				cost, _ := strconv.Atoi(m[1])
				costs[currentInterface] = cost
			}
		}
		if stripped == "!" {
			currentInterface = ""
		}
	}
	return costs
}
