package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polygraphy/digest/internal/logger"
)

// newCrawlCommand runs crawls synchronously from the command line, bypassing
// the queue. Useful for onboarding a new source or debugging a broken one.
func newCrawlCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl [source-id]",
		Short: "Crawl sources immediately",
		Long: `Crawl one source by id, or every registered source when no id is given.
Runs in-process without the task queue.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDeps()
			if err != nil {
				return err
			}
			defer d.Close()

			ctx := cmd.Context()

			if len(args) == 1 {
				source, getErr := d.Sources.GetByID(ctx, args[0])
				if getErr != nil {
					return getErr
				}

				newCount, processErr := d.Pipeline.ProcessSource(ctx, source)
				if processErr != nil {
					return fmt.Errorf("crawl %s: %w", source.Name, processErr)
				}

				fmt.Printf("%s: %d new articles\n", source.Name, newCount)
				return nil
			}

			stats, processErr := d.Pipeline.ProcessAll(ctx)
			if processErr != nil {
				return processErr
			}

			fmt.Printf("processed %d sources, %d new articles, %d errors\n",
				stats.Processed, stats.NewArticles, len(stats.Errors))
			for _, sourceErr := range stats.Errors {
				d.Logger.Error("source failed",
					logger.String("source", sourceErr.Source),
					logger.String("error", sourceErr.Message),
				)
			}

			return nil
		},
	}
}
