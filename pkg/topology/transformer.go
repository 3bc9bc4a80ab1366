package topology

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/netgrid-io/netgrid/pkg/parser"
	"github.com/netgrid-io/netgrid/pkg/util"
)

// ospfBriefRow matches one row of "show ospf interface brief":
// interface, process id, area, address/prefix, cost, state, nbrs.
var ospfBriefRow = regexp.MustCompile(
	`^(\S+)\s+(\d+)\s+(\S+)\s+(\d+\.\d+\.\d+\.\d+/\d+)\s+(\d+)\s+(\S+)\s+(\d+/\d+)`)

// artifactFile is the JSON envelope every command artifact is stored in.
type artifactFile struct {
	Command    string          `json:"command"`
	DeviceID   string          `json:"device_id"`
	DeviceName string          `json:"device_name"`
	Timestamp  string          `json:"timestamp"`
	ParsedData json.RawMessage `json:"parsed_data"`
	RawOutput  string          `json:"raw_output"`
}

// Transformer derives the interface capacity view and CDP neighbor records
// from the JSON artifacts of one execution.
type Transformer struct {
	jsonDir string
}

// NewTransformer creates a transformer reading from jsonDir.
func NewTransformer(jsonDir string) *Transformer {
	return &Transformer{jsonDir: jsonDir}
}

// artifact classes recognized in JSON filenames. "ospf_interface" must be
// tested before the bare "interface", and the CDP detail variant before the
// brief one.
var artifactClasses = []struct{ marker, class string }{
	{"show_bundle", "bundle"},
	{"show_ospf_interface", "ospf_interface"},
	{"show_interface_description", "interface_description"},
	{"show_interface", "interface"},
	{"cdp_neighbor_detail", "cdp_detail"},
	{"cdp_neighbor", "cdp_brief"},
}

// Transform reads the newest artifact per device and command class and
// produces the interface and CDP record sets, correlated against each other.
func (t *Transformer) Transform() ([]InterfaceRecord, []CDPRecord, error) {
	latest, err := t.latestArtifacts()
	if err != nil {
		return nil, nil, err
	}

	bundles := t.loadBundles(latest)
	cdp := t.buildCDPRecords(latest)

	cdpByPort := make(map[string]CDPRecord, len(cdp))
	for _, rec := range cdp {
		cdpByPort[rec.LocalRouter+"|"+rec.LocalInterface] = rec
	}

	interfaces := t.buildInterfaceRecords(latest, bundles, cdpByPort)

	util.WithFields(map[string]interface{}{
		"interfaces":    len(interfaces),
		"cdp_neighbors": len(cdp),
		"bundles":       len(bundles),
	}).Info("interface view built")
	return interfaces, cdp, nil
}

// latestArtifacts keeps the newest artifact per (device, class), decoded.
func (t *Transformer) latestArtifacts() (map[string]map[string]*artifactFile, error) {
	entries, err := os.ReadDir(t.jsonDir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]map[string]*artifactFile{}, nil
		}
		return nil, err
	}

	type candidate struct{ stamp, path string }
	latest := make(map[string]map[string]candidate)

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		parts := strings.SplitN(name, "_show_", 2)
		if len(parts) < 2 {
			continue
		}
		device := parts[0]
		m := filenameStamp.FindStringSubmatch(name)
		if m == nil {
			continue
		}

		class := ""
		for _, c := range artifactClasses {
			if strings.Contains(name, c.marker) {
				class = c.class
				break
			}
		}
		if class == "" {
			continue
		}

		if latest[device] == nil {
			latest[device] = make(map[string]candidate)
		}
		if prev, ok := latest[device][class]; !ok || m[1] > prev.stamp {
			latest[device][class] = candidate{stamp: m[1], path: filepath.Join(t.jsonDir, name)}
		}
	}

	out := make(map[string]map[string]*artifactFile, len(latest))
	for device, classes := range latest {
		out[device] = make(map[string]*artifactFile, len(classes))
		for class, c := range classes {
			data, err := os.ReadFile(c.path)
			if err != nil {
				util.WithFields(map[string]interface{}{
					"file":  c.path,
					"error": err,
				}).Error("reading artifact failed")
				continue
			}
			var art artifactFile
			if err := json.Unmarshal(data, &art); err != nil {
				util.WithFields(map[string]interface{}{
					"file":  c.path,
					"error": err,
				}).Error("decoding artifact failed")
				continue
			}
			out[device][class] = &art
		}
	}
	return out, nil
}

// loadBundles builds the (device, bundle name) -> capacity class lookup,
// keyed on both the short and full bundle spellings.
func (t *Transformer) loadBundles(latest map[string]map[string]*artifactFile) map[string]string {
	bundles := make(map[string]string)
	for device, classes := range latest {
		art, ok := classes["bundle"]
		if !ok {
			continue
		}
		var parsed parser.Bundles
		if art.ParsedData != nil {
			if err := json.Unmarshal(art.ParsedData, &parsed); err != nil {
				parsed = parser.ParseBundles(art.RawOutput)
			}
		} else {
			parsed = parser.ParseBundles(art.RawOutput)
		}
		for _, b := range parsed.Bundles {
			if b.CapacityClass == "" {
				continue
			}
			name := strings.ToUpper(b.BundleName)
			bundles[device+"|"+name] = b.CapacityClass
			// Register the other spelling too so lookups hit either form.
			if strings.HasPrefix(name, "BE") && !strings.HasPrefix(name, "BUNDLE-ETHER") {
				bundles[device+"|BUNDLE-ETHER"+name[2:]] = b.CapacityClass
			} else if strings.HasPrefix(name, "BUNDLE-ETHER") {
				bundles[device+"|BE"+name[len("BUNDLE-ETHER"):]] = b.CapacityClass
			}
		}
	}
	return bundles
}

// bundleCapacity resolves a bundle interface's capacity class, walking
// subinterfaces up to their parent.
func bundleCapacity(bundles map[string]string, device, iface string) (string, bool) {
	name := iface
	if parent := ParentInterface(name); parent != "" {
		name = parent
	}
	class, ok := bundles[device+"|"+strings.ToUpper(name)]
	return class, ok
}

// buildCDPRecords extracts CDP neighbors, preferring the detail artifact and
// falling back to the brief table, with a raw-output parse as a last resort.
func (t *Transformer) buildCDPRecords(latest map[string]map[string]*artifactFile) []CDPRecord {
	var records []CDPRecord
	now := time.Now().Format(time.RFC3339)

	for device, classes := range latest {
		var neighbors []parser.CDPNeighbor

		if art, ok := classes["cdp_detail"]; ok {
			var parsed parser.CDPDetail
			if art.ParsedData != nil && json.Unmarshal(art.ParsedData, &parsed) == nil && len(parsed.Neighbors) > 0 {
				neighbors = parsed.Neighbors
			} else {
				neighbors = parser.ParseCDPDetail(art.RawOutput).Neighbors
			}
		} else if art, ok := classes["cdp_brief"]; ok {
			var parsed parser.CDPBrief
			if art.ParsedData != nil && json.Unmarshal(art.ParsedData, &parsed) == nil && len(parsed.Neighbors) > 0 {
				neighbors = parsed.Neighbors
			} else {
				neighbors = parser.ParseCDPBrief(art.RawOutput).Neighbors
			}
		}

		seen := make(map[string]bool)
		for _, n := range neighbors {
			remote := n.DeviceID
			// Device ids often carry the domain suffix.
			if i := strings.Index(remote, "."); i > 0 {
				remote = remote[:i]
			}
			local := AbbreviateInterfaceName(n.LocalInterface)
			if local == "" || remote == "" {
				continue
			}
			key := device + "|" + local + "|" + remote
			if seen[key] {
				continue
			}
			seen[key] = true

			records = append(records, CDPRecord{
				ID:              key,
				LocalRouter:     device,
				LocalInterface:  local,
				RemoteRouter:    remote,
				RemoteInterface: AbbreviateInterfaceName(n.RemoteInterface),
				RemotePlatform:  n.Platform,
				RemoteIP:        n.IPAddress,
				UpdatedAt:       now,
			})
		}
	}
	return records
}

// buildInterfaceRecords assembles the capacity view: full interface output
// when present, the OSPF interface brief as fallback, merged with OSPF costs,
// bundle capacities, and CDP neighbor correlation.
func (t *Transformer) buildInterfaceRecords(latest map[string]map[string]*artifactFile, bundles map[string]string, cdpByPort map[string]CDPRecord) []InterfaceRecord {
	var records []InterfaceRecord
	now := time.Now().Format(time.RFC3339)

	for device, classes := range latest {
		ospfCosts, ospfAddrs := ospfBriefInfo(classes["ospf_interface"])
		byName := make(map[string]int)

		add := func(rec InterfaceRecord) {
			if rec.Interface == "" {
				return
			}
			if i, ok := byName[rec.Interface]; ok {
				// Keep the richer record, but never lose the OSPF fields.
				if records[i].OSPFCost == 0 {
					records[i].OSPFCost = rec.OSPFCost
				}
				if records[i].IPAddress == "" {
					records[i].IPAddress = rec.IPAddress
				}
				return
			}
			if cost, ok := ospfCosts[rec.Interface]; ok && rec.OSPFCost == 0 {
				rec.OSPFCost = cost
			}
			if addr, ok := ospfAddrs[rec.Interface]; ok && rec.IPAddress == "" {
				rec.IPAddress = addr
			}
			if n, ok := cdpByPort[device+"|"+rec.Interface]; ok {
				rec.NeighborRouter = n.RemoteRouter
				rec.NeighborInterface = n.RemoteInterface
			}
			byName[rec.Interface] = len(records)
			records = append(records, rec)
		}

		if art, ok := classes["interface"]; ok {
			var parsed parser.Interfaces
			if art.ParsedData == nil || json.Unmarshal(art.ParsedData, &parsed) != nil || len(parsed.Interfaces) == 0 {
				parsed = parser.ParseInterfaces(art.RawOutput)
			}
			for _, ifc := range parsed.Interfaces {
				name := AbbreviateInterfaceName(ifc.Interface)
				add(InterfaceRecord{
					ID:                device + "|" + name,
					Router:            device,
					Interface:         name,
					Description:       ifc.Description,
					AdminStatus:       ifc.AdminStatus,
					LineProtocol:      ifc.LineProtocol,
					BWKbps:            ifc.BWKbps,
					CapacityClass:     t.capacityOf(bundles, device, name),
					InputRateBps:      ifc.InputRateBps,
					OutputRateBps:     ifc.OutputRateBps,
					InputUtilization:  ifc.InputUtilization,
					OutputUtilization: ifc.OutputUtilization,
					MACAddress:        ifc.MACAddress,
					IsPhysical:        IsPhysicalInterface(name),
					ParentInterface:   ParentInterface(name),
					UpdatedAt:         now,
				})
			}
		}

		// Interfaces only visible to OSPF still get a row.
		for name, cost := range ospfCosts {
			add(InterfaceRecord{
				ID:              device + "|" + name,
				Router:          device,
				Interface:       name,
				CapacityClass:   t.capacityOf(bundles, device, name),
				IsPhysical:      IsPhysicalInterface(name),
				ParentInterface: ParentInterface(name),
				OSPFCost:        cost,
				IPAddress:       ospfAddrs[name],
				UpdatedAt:       now,
			})
		}
	}
	return records
}

// capacityOf prefers measured bundle capacity over the type designation.
// Traffic rates never influence capacity.
func (t *Transformer) capacityOf(bundles map[string]string, device, iface string) string {
	upper := strings.ToUpper(iface)
	if strings.HasPrefix(upper, "BE") || strings.HasPrefix(upper, "BUNDLE-ETHER") {
		if class, ok := bundleCapacity(bundles, device, iface); ok {
			return class
		}
	}
	return CapacityFromInterfaceType(iface)
}

// ospfBriefInfo extracts per-interface cost and address from the OSPF
// interface brief artifact's raw output.
func ospfBriefInfo(art *artifactFile) (map[string]int, map[string]string) {
	costs := make(map[string]int)
	addrs := make(map[string]string)
	if art == nil {
		return costs, addrs
	}
	for _, line := range strings.Split(art.RawOutput, "\n") {
		m := ospfBriefRow.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		name := AbbreviateInterfaceName(m[1])
		if name == "" {
			continue
		}
		if cost, err := strconv.Atoi(m[5]); err == nil && cost > 0 {
			costs[name] = cost
		}
		addrs[name] = m[4]
	}
	return costs, addrs
}

// InterfaceKey is the storage key for one interface record.
func InterfaceKey(router, iface string) string {
	return fmt.Sprintf("%s|%s", router, iface)
}
