package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/City-of-Helsinki/helfi-gredi-dam/pkg/gredi"
)

func init() {
	rootCmd.AddCommand(foldersCmd)

	foldersCmd.Flags().Int("depth", 2, "levels to descend (-1 for the whole tree)")
}

var foldersCmd = &cobra.Command{
	Use:   "folders [folderID]",
	Short: "Show the folder tree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		folderID := ""
		if len(args) == 1 {
			folderID = args[0]
		}
		depth, _ := cmd.Flags().GetInt("depth")

		client := newClient(cfg)
		tree, err := client.FolderTree(cmd.Context(), folderID, depth)
		if err != nil {
			return fmt.Errorf("folder tree: %w", err)
		}

		if len(tree) == 0 {
			fmt.Println("No folders found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPATH")
		printFolders(w, tree)
		return w.Flush()
	},
}

func printFolders(w *tabwriter.Writer, folders []*gredi.Category) {
	for _, f := range folders {
		fmt.Fprintf(w, "%s\t/%s\n", f.ID, strings.Join(f.Parts, "/"))
		printFolders(w, f.Folders)
	}
}
