package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/netgrid-io/netgrid/pkg/version"
)

var verboseFlag bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "netgrid",
		Short: "Fleet automation and topology discovery for Cisco routers",
		Long: `Netgrid collects operational state from Cisco-CLI router fleets over SSH
and turns it into a network topology.

A run connects to every device in the inventory (optionally through a
jumphost), executes a command battery, and archives the raw and parsed
output per execution. The topology commands then build the OSPF graph
and the interface capacity view from the latest archive.

Lifecycle:
  netgrid run inventory.yaml         # collect from the fleet
  netgrid status                     # inspect the latest execution
  netgrid topology build             # build the graph from the archive
  netgrid interfaces build           # build the capacity view

A long-running API with live progress streaming:
  netgrid serve --listen :8080       # REST + websocket endpoint`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	}

	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(
		newRunCmd(),
		newStatusCmd(),
		newStopCmd(),
		newTopologyCmd(),
		newInterfacesCmd(),
		newServeCmd(),
		newSettingsCmd(),
		newExecutionsCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("netgrid %s\n", version.Info())
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
