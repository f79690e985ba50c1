package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/seca-audit/internal/api"
	"github.com/khanhnv2901/seca-audit/internal/domain/check"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the available checks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		entries := checkCatalog()
		out := cmd.OutOrStdout()

		if asJSON {
			return writeJSON(out, entries)
		}
		for i, e := range entries {
			fmt.Fprintf(out, "%d. %s (%s)\n   %s\n", i+1, colorBold(e.Title), e.Kind, e.Summary)
		}
		return nil
	},
}

func checkCatalog() []api.CatalogEntry {
	kinds := check.Kinds()
	out := make([]api.CatalogEntry, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, api.CatalogEntry{Kind: k, Title: k.Title(), Summary: k.Summary()})
	}
	return out
}

func init() {
	catalogCmd.Flags().Bool("json", false, "print the catalog as JSON")
}
