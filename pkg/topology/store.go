package topology

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
)

// Redis key prefixes, one per record type. Keys follow the
// "<table>|<record id>" convention with JSON-encoded values.
const (
	tableNodes      = "topo_node"
	tableLinks      = "topo_link"
	tablePhysical   = "topo_physical_link"
	tableInterfaces = "iface_capacity"
	tableCDP        = "cdp_neighbor"
	keyMetadata     = "topo_metadata"
)

// Store persists topology and interface records in Redis. Every write is an
// insert-or-replace on the record's natural key, so re-running a build
// updates rows in place.
type Store struct {
	client *redis.Client
	ctx    context.Context
}

// NewStore creates a store against the given Redis address.
func NewStore(addr string, db int) *Store {
	return &Store{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
		ctx: context.Background(),
	}
}

// Connect tests the connection.
func (s *Store) Connect() error {
	return s.client.Ping(s.ctx).Err()
}

// Close closes the connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) setJSON(table, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(s.ctx, fmt.Sprintf("%s|%s", table, key), data, 0).Err()
}

// SaveTopology replaces the stored graph with the given build: nodes, links,
// and physical links are cleared first so stale records never survive.
func (s *Store) SaveTopology(topo *Topology) error {
	for _, table := range []string{tableNodes, tableLinks, tablePhysical} {
		if err := s.clearTable(table); err != nil {
			return err
		}
	}
	for _, n := range topo.Nodes {
		if err := s.setJSON(tableNodes, n.ID, n); err != nil {
			return err
		}
	}
	for _, l := range topo.Links {
		if err := s.setJSON(tableLinks, l.ID, l); err != nil {
			return err
		}
	}
	for _, p := range topo.PhysicalLinks {
		key := fmt.Sprintf("%s|%s|%s", p.RouterA, p.RouterB, p.InterfaceA)
		if err := s.setJSON(tablePhysical, key, p); err != nil {
			return err
		}
	}
	meta := struct {
		Metadata  Metadata `json:"metadata"`
		Timestamp string   `json:"timestamp"`
	}{topo.Metadata, topo.Timestamp}
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return s.client.Set(s.ctx, keyMetadata, data, 0).Err()
}

// UpsertInterfaces writes interface records on their (router, interface) key.
// Existing rows for other interfaces are left alone.
func (s *Store) UpsertInterfaces(records []InterfaceRecord) error {
	for _, r := range records {
		if err := s.setJSON(tableInterfaces, InterfaceKey(r.Router, r.Interface), r); err != nil {
			return err
		}
	}
	return nil
}

// UpsertCDP writes CDP records on their (local router, local interface,
// remote router) key.
func (s *Store) UpsertCDP(records []CDPRecord) error {
	for _, r := range records {
		key := fmt.Sprintf("%s|%s|%s", r.LocalRouter, r.LocalInterface, r.RemoteRouter)
		if err := s.setJSON(tableCDP, key, r); err != nil {
			return err
		}
	}
	return nil
}

// LoadTopology reads the stored graph back.
func (s *Store) LoadTopology() (*Topology, error) {
	topo := &Topology{
		Nodes:         []Node{},
		Links:         []Link{},
		PhysicalLinks: []PhysicalLink{},
	}

	if err := s.loadTable(tableNodes, func(data []byte) error {
		var n Node
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		topo.Nodes = append(topo.Nodes, n)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := s.loadTable(tableLinks, func(data []byte) error {
		var l Link
		if err := json.Unmarshal(data, &l); err != nil {
			return err
		}
		topo.Links = append(topo.Links, l)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := s.loadTable(tablePhysical, func(data []byte) error {
		var p PhysicalLink
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		topo.PhysicalLinks = append(topo.PhysicalLinks, p)
		return nil
	}); err != nil {
		return nil, err
	}

	data, err := s.client.Get(s.ctx, keyMetadata).Bytes()
	if err == nil {
		var meta struct {
			Metadata  Metadata `json:"metadata"`
			Timestamp string   `json:"timestamp"`
		}
		if json.Unmarshal(data, &meta) == nil {
			topo.Metadata = meta.Metadata
			topo.Timestamp = meta.Timestamp
		}
	} else if err != redis.Nil {
		return nil, err
	}
	return topo, nil
}

// ListInterfaces reads interface records, optionally filtered to one router.
func (s *Store) ListInterfaces(router string) ([]InterfaceRecord, error) {
	var out []InterfaceRecord
	err := s.loadTable(tableInterfaces, func(data []byte) error {
		var r InterfaceRecord
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		if router == "" || r.Router == router {
			out = append(out, r)
		}
		return nil
	})
	return out, err
}

// ListCDP reads CDP records, optionally filtered to one local router.
func (s *Store) ListCDP(router string) ([]CDPRecord, error) {
	var out []CDPRecord
	err := s.loadTable(tableCDP, func(data []byte) error {
		var r CDPRecord
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		if router == "" || r.LocalRouter == router {
			out = append(out, r)
		}
		return nil
	})
	return out, err
}

// Clear removes every stored record.
func (s *Store) Clear() error {
	for _, table := range []string{tableNodes, tableLinks, tablePhysical, tableInterfaces, tableCDP} {
		if err := s.clearTable(table); err != nil {
			return err
		}
	}
	return s.client.Del(s.ctx, keyMetadata).Err()
}

func (s *Store) clearTable(table string) error {
	keys, err := s.scanKeys(table + "|*")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(s.ctx, keys...).Err()
}

func (s *Store) loadTable(table string, fn func(data []byte) error) error {
	keys, err := s.scanKeys(table + "|*")
	if err != nil {
		return err
	}
	for _, key := range keys {
		data, err := s.client.Get(s.ctx, key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return err
		}
		if err := fn(data); err != nil {
			return fmt.Errorf("record %s: %w", key, err)
		}
	}
	return nil
}

// scanKeys iterates keys matching the pattern with cursor-based SCAN rather
// than the blocking KEYS command.
func (s *Store) scanKeys(pattern string) ([]string, error) {
	var cursor uint64
	var keys []string
	for {
		batch, next, err := s.client.Scan(s.ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

// Summary counts stored records per table.
func (s *Store) Summary() (map[string]int, error) {
	out := make(map[string]int)
	for _, table := range []string{tableNodes, tableLinks, tablePhysical, tableInterfaces, tableCDP} {
		keys, err := s.scanKeys(table + "|*")
		if err != nil {
			return nil, err
		}
		name := strings.TrimPrefix(table, "topo_")
		out[name] = len(keys)
	}
	return out, nil
}
