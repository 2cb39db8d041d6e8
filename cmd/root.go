// Package cmd implements the digest command-line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	cfgFile string
	debug   bool

	rootCmd = &cobra.Command{
		Use:   "digest",
		Short: "Scheduled content ingestion for the polygraphy digest",
		Long: `digest crawls registered content sources on their cron schedules,
deduplicates and stores the articles, and projects them into Elasticsearch.
Aged articles are archived after 30 days and deleted after 90.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so it is visible to viper's AutomaticEnv.
	_ = godotenv.Load()

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("digest version %s\n", version)
		},
	})

	rootCmd.AddCommand(
		newSchedulerCommand(),
		newWorkerCommand(),
		newCrawlCommand(),
		newSourcesCommand(),
		newIndexCommand(),
		newHTTPDCommand(),
	)
}
