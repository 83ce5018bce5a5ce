package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/City-of-Helsinki/helfi-gredi-dam/pkg/gredi"
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().String("sort", "created", "sort field")
	searchCmd.Flags().String("order", "desc", "sort order (asc or desc)")
	searchCmd.Flags().Int("limit", 0, "page size (defaults to configured per_page)")
	searchCmd.Flags().Int("offset", 0, "page offset")
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search picture assets",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		sortBy, _ := cmd.Flags().GetString("sort")
		order, _ := cmd.Flags().GetString("order")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		if limit == 0 {
			limit = cfg.Gredi.PerPage
		}

		client := newClient(cfg)
		assets, err := client.SearchAssets(cmd.Context(), gredi.SearchOptions{
			Search:    query,
			SortBy:    sortBy,
			SortOrder: order,
			Limit:     limit,
			Offset:    offset,
		})
		if err != nil {
			return fmt.Errorf("search assets: %w", err)
		}

		if len(assets) == 0 {
			fmt.Println("No assets found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tMIME\tSIZE\tMODIFIED")
		for _, a := range assets {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				a.ID,
				a.Name,
				a.MimeType,
				a.Size,
				a.Metadata("modified"),
			)
		}
		return w.Flush()
	},
}
