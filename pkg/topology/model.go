package topology

// CostSource labels where a link's OSPF cost came from, in resolution
// priority order.
type CostSource string

const (
	CostConfigured  CostSource = "configured"
	CostOperational CostSource = "operational"
	CostLSA         CostSource = "lsa"
	CostDefault     CostSource = "default"
)

// DefaultOSPFCost applies when no cost source resolves.
const DefaultOSPFCost = 1

// Node is one router in the topology graph.
type Node struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RouterID string `json:"hostname"`
	Country  string `json:"country"`
	Type     string `json:"type"`
	Status   string `json:"status"`
}

// Link is one directional OSPF adjacency. Parallel adjacencies between the
// same pair are kept as separate links.
type Link struct {
	ID              string     `json:"id"`
	Source          string     `json:"source"`
	Target          string     `json:"target"`
	Cost            int        `json:"cost"`
	CostSource      CostSource `json:"cost_source"`
	SourceInterface string     `json:"source_interface"`
	TargetInterface string     `json:"target_interface"`
	Status          string     `json:"status"`
}

// PhysicalLink pairs the two directions of an adjacency. A nil cost means
// that direction was never observed.
type PhysicalLink struct {
	ID           string     `json:"id"`
	RouterA      string     `json:"router_a"`
	RouterB      string     `json:"router_b"`
	CostAToB     *int       `json:"cost_a_to_b"`
	CostBToA     *int       `json:"cost_b_to_a"`
	InterfaceA   string     `json:"interface_a"`
	InterfaceB   string     `json:"interface_b"`
	CostSourceA  CostSource `json:"cost_source_a,omitempty"`
	CostSourceB  CostSource `json:"cost_source_b,omitempty"`
	IsAsymmetric bool       `json:"is_asymmetric"`
	Status       string     `json:"status"`
}

// Metadata summarizes one topology build.
type Metadata struct {
	NodeCount           int                `json:"node_count"`
	LinkCount           int                `json:"link_count"`
	PhysicalLinkCount   int                `json:"physical_link_count"`
	AsymmetricLinkCount int                `json:"asymmetric_link_count"`
	UniqueCosts         []int              `json:"unique_costs"`
	DataSource          string             `json:"data_source"`
	CostSources         map[CostSource]int `json:"cost_sources"`
}

// Topology is the complete built graph.
type Topology struct {
	Nodes         []Node         `json:"nodes"`
	Links         []Link         `json:"links"`
	PhysicalLinks []PhysicalLink `json:"physical_links"`
	Timestamp     string         `json:"timestamp"`
	Metadata      Metadata       `json:"metadata"`
}

// InterfaceRecord is one row of the interface capacity view.
type InterfaceRecord struct {
	ID                string  `json:"id"`
	Router            string  `json:"router"`
	Interface         string  `json:"interface"`
	Description       string  `json:"description"`
	AdminStatus       string  `json:"admin_status"`
	LineProtocol      string  `json:"line_protocol"`
	BWKbps            int     `json:"bw_kbps"`
	CapacityClass     string  `json:"capacity_class"`
	InputRateBps      int     `json:"input_rate_bps"`
	OutputRateBps     int     `json:"output_rate_bps"`
	InputUtilization  float64 `json:"input_utilization_pct"`
	OutputUtilization float64 `json:"output_utilization_pct"`
	MACAddress        string  `json:"mac_address,omitempty"`
	MTU               int     `json:"mtu"`
	Encapsulation     string  `json:"encapsulation,omitempty"`
	IsPhysical        bool    `json:"is_physical"`
	ParentInterface   string  `json:"parent_interface,omitempty"`
	OSPFCost          int     `json:"ospf_cost,omitempty"`
	IPAddress         string  `json:"ip_address,omitempty"`
	NeighborRouter    string  `json:"neighbor_router,omitempty"`
	NeighborInterface string  `json:"neighbor_interface,omitempty"`
	UpdatedAt         string  `json:"updated_at"`
}

// CDPRecord is one discovered CDP neighbor relation.
type CDPRecord struct {
	ID              string `json:"id"`
	LocalRouter     string `json:"local_router"`
	LocalInterface  string `json:"local_interface"`
	RemoteRouter    string `json:"remote_router"`
	RemoteInterface string `json:"remote_interface"`
	RemotePlatform  string `json:"remote_platform,omitempty"`
	RemoteIP        string `json:"remote_ip,omitempty"`
	UpdatedAt       string `json:"updated_at"`
}
