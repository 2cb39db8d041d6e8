package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polygraphy/digest/internal/search"
)

// newIndexCommand groups the Elasticsearch index management subcommands.
func newIndexCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the search indices",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "create",
			Short: "Create the article and product indices if missing",
			RunE: func(cmd *cobra.Command, _ []string) error {
				d, err := newDeps()
				if err != nil {
					return err
				}
				defer d.Close()

				manager := search.NewIndexManager(d.ESClient, d.Config.Elasticsearch, d.Logger)
				return manager.EnsureIndices(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Drop and recreate the indices",
			Long: `Drop and recreate the article and product indices. All projected
documents are lost; run 'digest index reindex' afterwards.`,
			RunE: func(cmd *cobra.Command, _ []string) error {
				d, err := newDeps()
				if err != nil {
					return err
				}
				defer d.Close()

				manager := search.NewIndexManager(d.ESClient, d.Config.Elasticsearch, d.Logger)
				return manager.ResetIndices(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "reindex",
			Short: "Rebuild the indices from the database",
			RunE: func(cmd *cobra.Command, _ []string) error {
				d, err := newDeps()
				if err != nil {
					return err
				}
				defer d.Close()

				manager := search.NewIndexManager(d.ESClient, d.Config.Elasticsearch, d.Logger)
				if err := manager.EnsureIndices(cmd.Context()); err != nil {
					return err
				}

				reindexer := search.NewReindexer(d.Articles, d.Products, d.Indexer, d.Logger)
				indexed, err := reindexer.Reindex(cmd.Context())
				if err != nil {
					return err
				}

				fmt.Printf("reindexed %d articles\n", indexed)
				return nil
			},
		},
	)

	return cmd
}
