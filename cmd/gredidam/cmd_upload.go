package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(uploadCmd)
}

var uploadCmd = &cobra.Command{
	Use:   "upload <path>",
	Short: "Upload an image to the configured upload folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read file: %w", err)
		}

		client := newClient(cfg)
		id, err := client.UploadImage(cmd.Context(), filepath.Base(args[0]), content)
		if err != nil {
			return fmt.Errorf("upload image: %w", err)
		}

		fmt.Fprintf(os.Stdout, "Uploaded as asset %s.\n", id)
		return nil
	},
}
