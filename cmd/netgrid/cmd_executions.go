package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExecutionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "executions",
		Short: "List archived executions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			list, err := a.store.List()
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("no archived executions")
				return nil
			}

			current, _ := a.store.Current()
			fmt.Printf("  %-40s %-24s %-10s %7s\n", "EXECUTION", "TIMESTAMP", "STATUS", "DEVICES")
			for _, s := range list {
				mark := " "
				if current != nil && current.ID == s.ExecutionID {
					mark = "*"
				}
				fmt.Printf("%s %-40s %-24s %-10s %7d\n",
					mark, s.ExecutionID, s.Timestamp, s.Status, s.Devices)
			}
			return nil
		},
	}
}
