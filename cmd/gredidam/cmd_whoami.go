package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Verify credentials and show the resolved customer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		client := newClient(cfg)
		session := client.Session()
		if err := session.Authenticate(cmd.Context()); err != nil {
			return fmt.Errorf("authenticate: %w", err)
		}

		customerID, err := session.CustomerID(cmd.Context())
		if err != nil {
			return fmt.Errorf("resolve customer: %w", err)
		}

		fmt.Fprintf(os.Stdout, "Authenticated as %s (customer %s).\n", cfg.Gredi.Username, customerID)
		return nil
	},
}
