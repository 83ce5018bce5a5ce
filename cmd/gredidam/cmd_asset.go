package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/City-of-Helsinki/helfi-gredi-dam/pkg/gredi"
)

func init() {
	rootCmd.AddCommand(assetCmd)
	assetCmd.AddCommand(assetGetCmd, assetListCmd)

	assetGetCmd.Flags().StringSlice("expand", []string{"basic", "image", "attachments"}, "expand blocks to request")
}

var assetCmd = &cobra.Command{
	Use:   "asset",
	Short: "Inspect assets",
}

var assetGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		expands, _ := cmd.Flags().GetStringSlice("expand")
		client := newClient(cfg)

		asset, err := client.GetAsset(cmd.Context(), args[0], expands, "")
		if err != nil {
			return fmt.Errorf("get asset: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, name := range []string{"id", "name", "mime_type", "width", "height", "resolution", "size", "created", "modified"} {
			fmt.Fprintf(w, "%s\t%s\n", name, asset.Metadata(name))
		}
		if asset.ContentLink != "" {
			fmt.Fprintf(w, "content_link\t%s\n", asset.ContentLink)
		}
		if asset.PreviewLink != "" {
			fmt.Fprintf(w, "preview_link\t%s\n", asset.PreviewLink)
		}
		for _, lang := range sortedLangs(asset.Keywords) {
			fmt.Fprintf(w, "keywords[%s]\t%s\n", lang, asset.Keywords[lang])
		}
		for _, lang := range sortedLangs(asset.AltText) {
			fmt.Fprintf(w, "alt_text[%s]\t%s\n", lang, asset.AltText[lang])
		}
		return w.Flush()
	},
}

var assetListCmd = &cobra.Command{
	Use:   "list [folderID]",
	Short: "List the customer root or a folder",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		client := newClient(cfg)

		var content *gredi.Content
		var err error
		if len(args) == 1 {
			content, err = client.FolderContent(cmd.Context(), args[0], nil)
		} else {
			content, err = client.CustomerContent(cmd.Context(), nil)
		}
		if err != nil {
			return fmt.Errorf("list content: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tID\tNAME")
		for _, f := range content.Folders {
			fmt.Fprintf(w, "folder\t%s\t%s\n", f.ID, f.Name)
		}
		for _, a := range content.Assets {
			fmt.Fprintf(w, "asset\t%s\t%s\n", a.ID, a.Name)
		}
		return w.Flush()
	},
}

func sortedLangs(m map[string]string) []string {
	langs := make([]string, 0, len(m))
	for lang := range m {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
