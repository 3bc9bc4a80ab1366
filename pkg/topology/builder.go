package topology

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/netgrid-io/netgrid/pkg/parser"
	"github.com/netgrid-io/netgrid/pkg/util"
)

var (
	ospfRouterWithID = regexp.MustCompile(`OSPF Router with ID \((\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})\)`)
	routerNumSuffix  = regexp.MustCompile(`-r(\d+)$`)
	filenameStamp    = regexp.MustCompile(`(\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2})`)
)

// command classes recognized in artifact filenames. Ordering matters:
// "ospf_database_router" must be classified before the bare "ospf_database".
var commandClasses = []struct{ marker, class string }{
	{"cdp_neighbor", "cdp"},
	{"ospf_neighbor", "ospf_neighbor"},
	{"ospf_database_router", "ospf_db_router"},
	{"ospf_database_network", "ospf_db_network"},
	{"ospf_interface", "ospf_interface"},
	{"running-config_router_ospf", "ospf_config"},
	{"ospf_database", "ospf_db"},
}

// Builder constructs the topology from the TEXT artifacts of one execution.
type Builder struct {
	textDir   string
	outputDir string
}

// NewBuilder creates a builder reading from textDir and snapshotting built
// topologies into outputDir.
func NewBuilder(textDir, outputDir string) *Builder {
	return &Builder{textDir: textDir, outputDir: outputDir}
}

// Build parses the latest artifact per (device, command class) and produces
// the full topology. validDevices, when non-empty, restricts both the
// devices read and the neighbors accepted.
func (b *Builder) Build(validDevices []string) (*Topology, error) {
	files, err := b.latestFiles(validDevices)
	if err != nil {
		return nil, err
	}

	allow := make(map[string]bool, len(validDevices))
	for _, d := range validDevices {
		allow[d] = true
	}

	nodes := b.buildNodes(files)
	routerIDToDevice, deviceToRouterID := b.mapRouterIDs(files)
	networkMap := b.aggregateNetworkLSAs(files)
	links := b.buildLinks(files, routerIDToDevice, deviceToRouterID, networkMap, allow)
	physical := PairLinks(links)

	costSources := map[CostSource]int{CostConfigured: 0, CostOperational: 0, CostLSA: 0, CostDefault: 0}
	costSet := make(map[int]bool)
	for _, l := range links {
		costSources[l.CostSource]++
		costSet[l.Cost] = true
	}
	uniqueCosts := make([]int, 0, len(costSet))
	for c := range costSet {
		uniqueCosts = append(uniqueCosts, c)
	}
	sort.Ints(uniqueCosts)

	asymmetric := 0
	for _, p := range physical {
		if p.IsAsymmetric {
			asymmetric++
		}
	}

	topo := &Topology{
		Nodes:         nodes,
		Links:         links,
		PhysicalLinks: physical,
		Timestamp:     time.Now().Format(time.RFC3339),
		Metadata: Metadata{
			NodeCount:           len(nodes),
			LinkCount:           len(links),
			PhysicalLinkCount:   len(physical),
			AsymmetricLinkCount: asymmetric,
			UniqueCosts:         uniqueCosts,
			DataSource:          "OSPF",
			CostSources:         costSources,
		},
	}

	util.WithFields(map[string]interface{}{
		"nodes":          len(nodes),
		"links":          len(links),
		"physical_links": len(physical),
		"asymmetric":     asymmetric,
	}).Info("topology built")
	return topo, nil
}

// deviceFiles maps device -> command class -> file content.
type deviceFiles map[string]map[string]string

// latestFiles scans the TEXT directory, keeping only the newest artifact per
// (device, command class) by filename timestamp.
func (b *Builder) latestFiles(validDevices []string) (deviceFiles, error) {
	entries, err := os.ReadDir(b.textDir)
	if err != nil {
		if os.IsNotExist(err) {
			return deviceFiles{}, nil
		}
		return nil, err
	}

	allow := make(map[string]bool, len(validDevices))
	for _, d := range validDevices {
		allow[d] = true
	}

	type candidate struct{ stamp, path string }
	latest := make(map[string]map[string]candidate)

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".txt") {
			continue
		}
		parts := strings.SplitN(name, "_show_", 2)
		if len(parts) < 2 {
			continue
		}
		device := parts[0]
		if len(validDevices) > 0 && !allow[device] {
			continue
		}
		m := filenameStamp.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		stamp := m[1]

		class := ""
		for _, cc := range commandClasses {
			if strings.Contains(name, cc.marker) {
				class = cc.class
				break
			}
		}
		if class == "" {
			continue
		}

		if latest[device] == nil {
			latest[device] = make(map[string]candidate)
		}
		// Timestamps sort lexically; keep the newest.
		if prev, ok := latest[device][class]; !ok || stamp > prev.stamp {
			latest[device][class] = candidate{stamp: stamp, path: filepath.Join(b.textDir, name)}
		}
	}

	files := make(deviceFiles, len(latest))
	for device, classes := range latest {
		files[device] = make(map[string]string, len(classes))
		for class, c := range classes {
			data, err := os.ReadFile(c.path)
			if err != nil {
				util.WithFields(map[string]interface{}{
					"file":  c.path,
					"error": err,
				}).Error("reading artifact failed")
				continue
			}
			files[device][class] = string(data)
		}
	}
	return files, nil
}

// buildNodes creates one node per device, deriving country from the
// hostname prefix and router id from the OSPF database output.
func (b *Builder) buildNodes(files deviceFiles) []Node {
	names := make([]string, 0, len(files))
	for device := range files {
		names = append(names, device)
	}
	sort.Strings(names)

	nodes := make([]Node, 0, len(names))
	for _, device := range names {
		routerID := "0.0.0.0"
		if db, ok := files[device]["ospf_db"]; ok {
			if ip := util.FirstIPv4(db); ip != "" {
				routerID = ip
			}
		}
		nodes = append(nodes, Node{
			ID:       device,
			Name:     device,
			RouterID: routerID,
			Country:  countryOf(device),
			Type:     "router",
			Status:   "active",
		})
	}
	return nodes
}

func countryOf(device string) string {
	if len(device) < 3 {
		return "UNK"
	}
	code := device[:3]
	for _, r := range code {
		if r < 'A' || (r > 'Z' && r < 'a') || r > 'z' {
			return "UNK"
		}
	}
	return strings.ToUpper(code)
}

// mapRouterIDs builds the router-id <-> device mapping, trying the OSPF
// database outputs first and falling back to the "-r<n>" naming convention
// (172.16.n.n) for devices with no usable OSPF data.
func (b *Builder) mapRouterIDs(files deviceFiles) (map[string]string, map[string]string) {
	routerIDToDevice := make(map[string]string)
	deviceToRouterID := make(map[string]string)

	for device, data := range files {
		var routerID string
		for _, class := range []string{"ospf_db", "ospf_db_router", "ospf_neighbor"} {
			content, ok := data[class]
			if !ok {
				continue
			}
			if m := ospfRouterWithID.FindStringSubmatch(content); m != nil {
				routerID = m[1]
				break
			}
		}
		if routerID != "" {
			routerIDToDevice[routerID] = device
			deviceToRouterID[device] = routerID
		}
	}

	for device := range files {
		if _, ok := deviceToRouterID[device]; ok {
			continue
		}
		if m := routerNumSuffix.FindStringSubmatch(device); m != nil {
			inferred := fmt.Sprintf("172.16.%s.%s", m[1], m[1])
			routerIDToDevice[inferred] = device
			deviceToRouterID[device] = inferred
			util.WithFields(map[string]interface{}{
				"device":    device,
				"router_id": inferred,
			}).Info("inferred router id from hostname")
		}
	}
	return routerIDToDevice, deviceToRouterID
}

// aggregateNetworkLSAs merges every device's network LSAs into one
// dr_address -> attached routers map.
func (b *Builder) aggregateNetworkLSAs(files deviceFiles) map[string][]string {
	global := make(map[string][]string)
	for _, data := range files {
		content, ok := data["ospf_db_network"]
		if !ok {
			continue
		}
		for linkID, routers := range parser.NetworkLSAMap(content) {
			global[linkID] = routers
		}
	}
	return global
}

// buildLinks extracts directional links from each device's OSPF neighbor
// table, resolving the cost per adjacency.
func (b *Builder) buildLinks(files deviceFiles, routerIDToDevice, deviceToRouterID map[string]string, networkMap map[string][]string, allow map[string]bool) []Link {
	var links []Link
	counter := 1

	devices := make([]string, 0, len(files))
	for d := range files {
		devices = append(devices, d)
	}
	sort.Strings(devices)

	for _, device := range devices {
		data := files[device]
		neighborOut, ok := data["ospf_neighbor"]
		if !ok {
			continue
		}
		sourceRouterID, ok := deviceToRouterID[device]
		if !ok {
			util.WithDevice(device).Warn("no router id, skipping links")
			continue
		}

		var lsaCosts map[string]int
		if content, ok := data["ospf_db_router"]; ok {
			lsaCosts = parser.RouterLSACosts(content, sourceRouterID)
		}
		var interfaceCosts map[string]int
		if content, ok := data["ospf_interface"]; ok {
			interfaceCosts = parser.InterfaceBriefCosts(content)
		}
		var configuredCosts map[string]int
		if content, ok := data["ospf_config"]; ok {
			configuredCosts = parser.ConfiguredOSPFCosts(content)
		}

		for _, adj := range parseNeighborTable(neighborOut) {
			neighborName := adj.neighborID
			if mapped, ok := routerIDToDevice[adj.neighborID]; ok {
				neighborName = mapped
			}
			if len(allow) > 0 && !allow[neighborName] {
				continue
			}
			if neighborName == device {
				continue
			}

			cost, source := resolveCost(adj.iface, configuredCosts, interfaceCosts,
				lsaCosts, networkMap, sourceRouterID, adj.neighborID)

			links = append(links, Link{
				ID:              fmt.Sprintf("%s-%s-%d", device, neighborName, counter),
				Source:          device,
				Target:          neighborName,
				Cost:            cost,
				CostSource:      source,
				SourceInterface: adj.iface,
				TargetInterface: "unknown",
				Status:          "up",
			})
			counter++
		}
	}
	return links
}

type adjacency struct {
	neighborID string
	iface      string
}

// parseNeighborTable extracts FULL adjacencies from "show ospf neighbor"
// output, skipping management interfaces.
func parseNeighborTable(output string) []adjacency {
	var adjs []adjacency
	parsing := false
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "Neighbor ID") {
			parsing = true
			continue
		}
		if !parsing || strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 6 {
			continue
		}
		state := parts[2]
		iface := parts[5]
		if !strings.Contains(state, "FULL") {
			continue
		}
		if strings.Contains(iface, "Mgmt") || strings.Contains(iface, "Management") ||
			strings.Contains(iface, "Ma0") {
			continue
		}
		adjs = append(adjs, adjacency{neighborID: parts[0], iface: iface})
	}
	return adjs
}

// resolveCost applies the cost priority: configured beats operational beats
// LSA-derived beats the default of 1.
func resolveCost(iface string, configured, operational, lsaCosts map[string]int, networkMap map[string][]string, sourceRouterID, neighborRouterID string) (int, CostSource) {
	normalized := ExpandInterfaceName(iface)

	if cost, ok := configured[normalized]; ok && cost > 0 {
		return cost, CostConfigured
	}
	if cost, ok := operational[iface]; ok && cost > 0 {
		return cost, CostOperational
	}
	if cost, ok := operational[normalized]; ok && cost > 0 {
		return cost, CostOperational
	}
	for linkID, cost := range lsaCosts {
		attached, ok := networkMap[linkID]
		if !ok {
			continue
		}
		var hasSource, hasNeighbor bool
		for _, r := range attached {
			if r == sourceRouterID {
				hasSource = true
			}
			if r == neighborRouterID {
				hasNeighbor = true
			}
		}
		if hasSource && hasNeighbor {
			return cost, CostLSA
		}
	}
	return DefaultOSPFCost, CostDefault
}

// PairLinks consolidates directional links into physical links with both
// costs. Two passes: A->B links (source sorts first) seed records keyed on
// (a, b, interface_a); B->A links then attach to a record with a matching
// interface name, or any record still missing its B side, or become an
// orphan record of their own.
func PairLinks(links []Link) []PhysicalLink {
	type key struct{ a, b, iface string }
	order := []key{}
	records := make(map[key]*PhysicalLink)

	for _, l := range links {
		a, bb := l.Source, l.Target
		if a > bb {
			a, bb = bb, a
		}
		if l.Source != a {
			continue
		}
		k := key{a, bb, l.SourceInterface}
		if _, ok := records[k]; ok {
			continue
		}
		cost := l.Cost
		records[k] = &PhysicalLink{
			RouterA:     a,
			RouterB:     bb,
			CostAToB:    &cost,
			InterfaceA:  l.SourceInterface,
			CostSourceA: l.CostSource,
			Status:      "up",
		}
		order = append(order, k)
	}

	for _, l := range links {
		a, bb := l.Source, l.Target
		if a > bb {
			a, bb = bb, a
		}
		if l.Source != bb {
			continue
		}
		ifaceB := l.SourceInterface

		var matched *key
		for i := range order {
			k := order[i]
			if k.a != a || k.b != bb {
				continue
			}
			p := records[k]
			if p.InterfaceA == ifaceB && p.InterfaceB == "" {
				matched = &order[i]
				break
			}
			if p.InterfaceB == "" {
				matched = &order[i]
			}
		}

		if matched != nil {
			cost := l.Cost
			p := records[*matched]
			p.CostBToA = &cost
			p.InterfaceB = ifaceB
			p.CostSourceB = l.CostSource
			continue
		}

		k := key{a, bb, "B2A-" + ifaceB}
		if _, ok := records[k]; ok {
			continue
		}
		cost := l.Cost
		records[k] = &PhysicalLink{
			RouterA:     a,
			RouterB:     bb,
			CostBToA:    &cost,
			InterfaceB:  ifaceB,
			CostSourceB: l.CostSource,
			Status:      "up",
		}
		order = append(order, k)
	}

	out := make([]PhysicalLink, 0, len(order))
	for _, k := range order {
		p := records[k]
		p.IsAsymmetric = p.CostAToB != nil && p.CostBToA != nil && *p.CostAToB != *p.CostBToA

		suffix := ""
		if p.InterfaceA != "" {
			suffix = "-" + ShortInterfaceID(p.InterfaceA)
		}
		p.ID = fmt.Sprintf("%s-%s%s", p.RouterA, p.RouterB, suffix)
		out = append(out, *p)
	}
	return out
}

// Snapshot writes the topology JSON into the output directory, named by
// build date.
func (b *Builder) Snapshot(topo *Topology) (string, error) {
	if err := os.MkdirAll(b.outputDir, 0755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("network_topology_%s.json", time.Now().Format("2006-01-02"))
	path := filepath.Join(b.outputDir, name)

	data, err := json.MarshalIndent(topo, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
