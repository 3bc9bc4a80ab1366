package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/netgrid-io/netgrid/pkg/topology"
)

func newInterfacesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interfaces",
		Short: "Build and inspect the interface capacity view",
	}
	cmd.AddCommand(newInterfacesBuildCmd(), newInterfacesListCmd())
	return cmd
}

func newInterfacesBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the capacity view from the latest execution archive",
		Long: `Transform the latest execution's parsed artifacts into per-interface
records: capacity class from the interface type (bundles from member
speeds), OSPF cost, and the CDP-correlated neighbor. Records upsert on
(router, interface), so re-running refreshes rows in place.`,
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

			interfaces, cdp, err := topology.NewTransformer(exec.JSONDir).Transform()
			if err != nil {
				return err
			}

			store := topology.NewStore(a.env.RedisAddr, 0)
			if err := store.Connect(); err != nil {
				return fmt.Errorf("connecting to redis: %w", err)
			}
			defer store.Close()
			if err := store.UpsertInterfaces(interfaces); err != nil {
				return fmt.Errorf("storing interfaces: %w", err)
			}
			if err := store.UpsertCDP(cdp); err != nil {
				return fmt.Errorf("storing cdp neighbors: %w", err)
			}

			fmt.Printf("stored %d interfaces, %d cdp neighbors\n", len(interfaces), len(cdp))
			return nil
		},
	}
	return cmd
}

func newInterfacesListCmd() *cobra.Command {
	var router string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored interface records",
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

			records, err := store.ListInterfaces(router)
			if err != nil {
				return err
			}
			sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

			fmt.Printf("  %-24s %-16s %8s %6s  %-24s %s\n",
				"ROUTER", "INTERFACE", "CAPACITY", "COST", "NEIGHBOR", "NEIGHBOR IF")
			for _, r := range records {
				cost := "-"
				if r.OSPFCost > 0 {
					cost = fmt.Sprintf("%d", r.OSPFCost)
				}
				neighbor := r.NeighborRouter
				if neighbor == "" {
					neighbor = "-"
				}
				fmt.Printf("  %-24s %-16s %8s %6s  %-24s %s\n",
					r.Router, r.Interface, r.CapacityClass, cost, neighbor, r.NeighborInterface)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&router, "router", "r", "", "Restrict to one router")
	return cmd
}
