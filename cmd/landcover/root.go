package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "landcover",
		Short: "Sentinel-2 land-cover summaries from the scene classification layer",
		Long: `Landcover searches a STAC catalog for Sentinel-2 L2A scenes around a point,
groups them by solar day and summarizes the scene classification layer into
land-cover buckets.

Catalog, raster and logging settings are read from the environment (and a
.env file when present), using the same variables as the server.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newCollectionsCmd())

	return cmd
}
