package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/landcover/internal/app"
	"github.com/robert-malhotra/landcover/internal/config"
)

func newCollectionsCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "collections",
		Short: "List the searchable collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := app.Collections(config.CollectionsConfig{Dir: dir})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, c := range registry.All() {
				fmt.Fprintf(out, "%s\t%s\n", titleStyle.Render(c.ID), c.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory of collection definitions (default: built-in)")

	return cmd
}
