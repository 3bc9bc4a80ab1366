package topology

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeArtifact(t *testing.T, dir, device, slug, stamp string, parsed interface{}, raw string) {
	t.Helper()
	var parsedData json.RawMessage
	if parsed != nil {
		data, err := json.Marshal(parsed)
		if err != nil {
			t.Fatal(err)
		}
		parsedData = data
	}
	art := map[string]interface{}{
		"command":     slug,
		"device_id":   device,
		"device_name": device,
		"timestamp":   stamp,
		"parsed_data": parsedData,
		"raw_output":  raw,
	}
	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	name := device + "_" + slug + "_" + stamp + ".json"
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestTransformCapacityView(t *testing.T) {
	dir := t.TempDir()
	stamp := "2026-08-01_10-00-00"
	device := "gbr-lon-r1"

	writeArtifact(t, dir, device, "show_bundle", stamp, map[string]interface{}{
		"bundles": []map[string]interface{}{
			{
				"bundle_name":           "Bundle-Ether100",
				"status":                "Up",
				"active_links":          2,
				"active_bandwidth_kbps": 20000000,
				"capacity_class":        "20G",
			},
		},
		"bundle_count": 1,
		"parsed":       true,
	}, "")

	writeArtifact(t, dir, device, "show_interface", stamp, map[string]interface{}{
		"interfaces": []map[string]interface{}{
			{
				"interface":     "Bundle-Ether100",
				"admin_status":  "up",
				"line_protocol": "up",
				"bw_kbps":       20000000,
			},
			{
				"interface":     "GigabitEthernet0/0/0/1",
				"admin_status":  "up",
				"line_protocol": "up",
				"bw_kbps":       1000000,
				"description":   "core uplink",
			},
			{
				"interface":     "TenGigE0/0/0/2.100",
				"admin_status":  "up",
				"line_protocol": "up",
				"bw_kbps":       10000000,
			},
		},
		"interface_count": 3,
		"parsed":          true,
	}, "")

	ospfBrief := `Interfaces for OSPF 1

Interface          PID   Area            IP Address/Mask    Cost  State Nbrs F/C
Gi0/0/0/1          1     0               192.168.1.1/30     200   P2P   1/1
`
	writeArtifact(t, dir, device, "show_ospf_interface", stamp, nil, ospfBrief)

	writeArtifact(t, dir, device, "show_cdp_neighbor_detail", stamp, map[string]interface{}{
		"cdp_neighbors": []map[string]interface{}{
			{
				"device_id":        "deu-fra-r2.example.net",
				"platform":         "cisco ASR9K",
				"local_interface":  "GigabitEthernet0/0/0/1",
				"remote_interface": "GigabitEthernet0/0/0/9",
				"ip_address":       "192.168.1.2",
			},
		},
		"neighbor_count": 1,
		"parsed":         true,
	}, "")

	interfaces, cdp, err := NewTransformer(dir).Transform()
	if err != nil {
		t.Fatal(err)
	}

	byName := make(map[string]InterfaceRecord)
	for _, r := range interfaces {
		byName[r.Interface] = r
	}

	be, ok := byName["BE100"]
	if !ok {
		t.Fatalf("bundle record missing; have %v", keysOf(byName))
	}
	// Member-derived capacity wins over the LAG type designation.
	if be.CapacityClass != "20G" {
		t.Errorf("bundle capacity = %q, want 20G", be.CapacityClass)
	}

	gi, ok := byName["Gi0/0/0/1"]
	if !ok {
		t.Fatalf("gi record missing; have %v", keysOf(byName))
	}
	if gi.CapacityClass != "1G" {
		t.Errorf("capacity = %q, want 1G", gi.CapacityClass)
	}
	if gi.OSPFCost != 200 {
		t.Errorf("ospf cost = %d, want 200", gi.OSPFCost)
	}
	if gi.IPAddress != "192.168.1.1/30" {
		t.Errorf("ip = %q, want 192.168.1.1/30", gi.IPAddress)
	}
	if gi.NeighborRouter != "deu-fra-r2" {
		t.Errorf("neighbor = %q, want domain-stripped deu-fra-r2", gi.NeighborRouter)
	}
	if gi.NeighborInterface != "Gi0/0/0/9" {
		t.Errorf("neighbor interface = %q, want Gi0/0/0/9", gi.NeighborInterface)
	}
	if gi.Description != "core uplink" {
		t.Errorf("description = %q", gi.Description)
	}
	if !gi.IsPhysical {
		t.Error("Gi0/0/0/1 should be physical")
	}

	sub, ok := byName["Te0/0/0/2.100"]
	if !ok {
		t.Fatalf("subinterface record missing; have %v", keysOf(byName))
	}
	if sub.IsPhysical {
		t.Error("subinterface should not be physical")
	}
	if sub.ParentInterface != "Te0/0/0/2" {
		t.Errorf("parent = %q, want Te0/0/0/2", sub.ParentInterface)
	}
	if sub.CapacityClass != "10G" {
		t.Errorf("subinterface capacity = %q, want 10G", sub.CapacityClass)
	}

	if len(cdp) != 1 {
		t.Fatalf("cdp records = %d, want 1", len(cdp))
	}
	if cdp[0].LocalInterface != "Gi0/0/0/1" {
		t.Errorf("cdp local interface = %q, want abbreviated Gi0/0/0/1", cdp[0].LocalInterface)
	}
	if cdp[0].RemoteRouter != "deu-fra-r2" {
		t.Errorf("cdp remote = %q", cdp[0].RemoteRouter)
	}
}

func TestTransformBundleSubinterfaceCapacity(t *testing.T) {
	dir := t.TempDir()
	stamp := "2026-08-01_10-00-00"
	device := "usa-nyc-r1"

	writeArtifact(t, dir, device, "show_bundle", stamp, map[string]interface{}{
		"bundles": []map[string]interface{}{
			{"bundle_name": "BE200", "capacity_class": "40G"},
		},
		"bundle_count": 1,
		"parsed":       true,
	}, "")

	writeArtifact(t, dir, device, "show_interface", stamp, map[string]interface{}{
		"interfaces": []map[string]interface{}{
			{"interface": "Bundle-Ether200.50", "admin_status": "up", "line_protocol": "up"},
		},
		"interface_count": 1,
		"parsed":          true,
	}, "")

	interfaces, _, err := NewTransformer(dir).Transform()
	if err != nil {
		t.Fatal(err)
	}
	if len(interfaces) != 1 {
		t.Fatalf("records = %d, want 1", len(interfaces))
	}
	r := interfaces[0]
	if r.Interface != "BE200.50" {
		t.Errorf("interface = %q, want BE200.50", r.Interface)
	}
	// Subinterface inherits the parent bundle's member-derived capacity,
	// found under either bundle spelling.
	if r.CapacityClass != "40G" {
		t.Errorf("capacity = %q, want 40G", r.CapacityClass)
	}
}

func keysOf(m map[string]InterfaceRecord) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
