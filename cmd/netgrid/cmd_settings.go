package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/netgrid-io/netgrid/pkg/config"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage the persisted jumphost record",
		Long: `Show or change the jumphost used to reach the fleet. Saving a new record
tears down the cached tunnel, so the next connection uses the new host.

  netgrid settings show
  netgrid settings set-jumphost --host bastion.example.net --user ops
  netgrid settings disable-jumphost`,
	}
	cmd.AddCommand(newSettingsShowCmd(), newSettingsSetJumphostCmd(), newSettingsDisableCmd())
	return cmd
}

func newSettingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current jumphost record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			j := a.source.Current()

			printSetting := func(name, value string) {
				if value == "" {
					value = "(not set)"
				}
				fmt.Printf("  %-10s %s\n", name, value)
			}
			printSetting("enabled", strconv.FormatBool(j.Enabled))
			printSetting("host", j.Host)
			printSetting("port", strconv.Itoa(j.Port))
			printSetting("username", j.Username)
			if j.Password != "" {
				printSetting("password", "********")
			} else {
				printSetting("password", "")
			}
			return nil
		},
	}
}

func newSettingsSetJumphostCmd() *cobra.Command {
	var (
		host     string
		port     int
		username string
	)

	cmd := &cobra.Command{
		Use:   "set-jumphost",
		Short: "Enable the jumphost and save its credentials",
		Long: `Save a jumphost record and enable tunneling. The password is prompted
interactively and never echoed; missing host or username are prompted
for as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}

			reader := bufio.NewReader(os.Stdin)
			if host == "" {
				fmt.Print("Jumphost host: ")
				line, err := reader.ReadString('\n')
				if err != nil {
					return err
				}
				host = strings.TrimSpace(line)
			}
			if username == "" {
				fmt.Print("Username: ")
				line, err := reader.ReadString('\n')
				if err != nil {
					return err
				}
				username = strings.TrimSpace(line)
			}

			fmt.Print("Password: ")
			pw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("reading password: %w", err)
			}

			record := config.Jumphost{
				Enabled:  true,
				Host:     host,
				Port:     port,
				Username: username,
				Password: string(pw),
			}
			if err := a.source.Save(record); err != nil {
				return err
			}
			fmt.Printf("jumphost %s enabled\n", host)
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Jumphost address")
	cmd.Flags().IntVar(&port, "port", 22, "Jumphost SSH port")
	cmd.Flags().StringVar(&username, "user", "", "Jumphost username")
	return cmd
}

func newSettingsDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable-jumphost",
		Short: "Disable the jumphost and connect directly",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			j := a.source.Current()
			j.Enabled = false
			if err := a.source.Save(j); err != nil {
				return err
			}
			fmt.Println("jumphost disabled")
			return nil
		},
	}
}
