package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/netgrid-io/netgrid/pkg/inventory"
	"github.com/netgrid-io/netgrid/pkg/topology"
)

func newTopologyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topology",
		Short: "Build and inspect the OSPF topology",
	}
	cmd.AddCommand(newTopologyBuildCmd(), newTopologyShowCmd())
	return cmd
}

func newTopologyBuildCmd() *cobra.Command {
	var (
		inventoryPath string
		outputDir     string
		noStore       bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the topology from the latest execution archive",
		Long: `Parse the latest execution's raw output, resolve OSPF costs, pair the
link directions, and store the graph. A dated JSON snapshot is written to
the output directory as well.

With --inventory, only devices in the inventory become nodes and
neighbors outside it are ignored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}

			exec, err := a.store.Current()
			if err != nil {
				return fmt.Errorf("no archived execution: %w", err)
			}

			var valid []string
			if inventoryPath != "" {
				devices, err := inventory.Load(inventoryPath)
				if err != nil {
					return fmt.Errorf("loading inventory: %w", err)
				}
				for _, d := range devices {
					valid = append(valid, d.Name)
				}
			}

			if outputDir == "" {
				outputDir = filepath.Join(a.env.DataDir, "topology")
			}
			builder := topology.NewBuilder(exec.TextDir, outputDir)
			topo, err := builder.Build(valid)
			if err != nil {
				return err
			}

			path, err := builder.Snapshot(topo)
			if err != nil {
				return err
			}
			fmt.Printf("snapshot written to %s\n", path)

			if !noStore {
				store := topology.NewStore(a.env.RedisAddr, 0)
				if err := store.Connect(); err != nil {
					return fmt.Errorf("connecting to redis: %w", err)
				}
				defer store.Close()
				if err := store.SaveTopology(topo); err != nil {
					return fmt.Errorf("storing topology: %w", err)
				}
			}

			printTopologySummary(topo)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inventoryPath, "inventory", "i", "", "Restrict nodes to this inventory")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Snapshot directory (default <data>/topology)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Skip writing to Redis")
	return cmd
}

func newTopologyShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the stored topology summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			store := topology.NewStore(a.env.RedisAddr, 0)
			if err := store.Connect(); err != nil {
				return fmt.Errorf("connecting to redis: %w", err)
			}
			defer store.Close()

			topo, err := store.LoadTopology()
			if err != nil {
				return err
			}
			printTopologySummary(topo)

			fmt.Printf("\n  %-24s %-24s %8s %8s  %s\n", "ROUTER A", "ROUTER B", "A->B", "B->A", "INTERFACE A")
			links := append([]topology.PhysicalLink{}, topo.PhysicalLinks...)
			sort.Slice(links, func(i, j int) bool { return links[i].ID < links[j].ID })
			for _, p := range links {
				mark := ""
				if p.IsAsymmetric {
					mark = " *"
				}
				fmt.Printf("  %-24s %-24s %8s %8s  %s%s\n",
					p.RouterA, p.RouterB, costString(p.CostAToB), costString(p.CostBToA), p.InterfaceA, mark)
			}
			return nil
		},
	}
	return cmd
}

func costString(c *int) string {
	if c == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *c)
}

func printTopologySummary(topo *topology.Topology) {
	m := topo.Metadata
	fmt.Printf("Nodes:           %d\n", m.NodeCount)
	fmt.Printf("Links:           %d\n", m.LinkCount)
	fmt.Printf("Physical links:  %d (%d asymmetric)\n", m.PhysicalLinkCount, m.AsymmetricLinkCount)
	fmt.Printf("Unique costs:    %v\n", m.UniqueCosts)
	fmt.Printf("Cost sources:    configured=%d operational=%d lsa=%d default=%d\n",
		m.CostSources[topology.CostConfigured], m.CostSources[topology.CostOperational],
		m.CostSources[topology.CostLSA], m.CostSources[topology.CostDefault])
}
