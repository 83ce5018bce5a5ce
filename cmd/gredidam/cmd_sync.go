package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/City-of-Helsinki/helfi-gredi-dam/internal/materializer"
	"github.com/City-of-Helsinki/helfi-gredi-dam/internal/refresh"
)

func init() {
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync <assetID>...",
	Short: "Refresh assets and materialize changed files locally",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		client := newClient(cfg)
		tracking := trackingStore(cfg)
		mat := materializer.New(client, tracking, cfg.Sync.StorageDir)
		refresher := refresh.New(client, tracking, mat)

		failed := 0
		for _, id := range args {
			if err := refresher.Refresh(cmd.Context(), id); err != nil {
				fmt.Fprintf(os.Stderr, "refresh %s: %v\n", id, err)
				failed++
				continue
			}
			fmt.Fprintf(os.Stdout, "Asset %s refreshed.\n", id)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d assets failed", failed, len(args))
		}
		return nil
	},
}
