package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/polygraphy/digest/internal/domain"
	"github.com/polygraphy/digest/internal/schedule"
)

// newSourcesCommand groups the source management subcommands.
func newSourcesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage registered content sources",
	}

	cmd.AddCommand(newSourcesListCommand(), newSourcesAddCommand())
	return cmd
}

func newSourcesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all registered sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := newDeps()
			if err != nil {
				return err
			}
			defer d.Close()

			sources, err := d.Sources.List(cmd.Context())
			if err != nil {
				return err
			}

			if len(sources) == 0 {
				fmt.Println("no sources registered")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"ID", "Name", "Type", "Active", "Schedule", "Last Scraped"})

			for _, source := range sources {
				cronExpr := "-"
				if source.HasSchedule() {
					cronExpr = *source.Schedule
				}
				lastScraped := "never"
				if source.LastScrapedAt != nil {
					lastScraped = source.LastScrapedAt.Format(time.RFC3339)
				}
				t.AppendRow(table.Row{
					source.ID,
					source.Name,
					source.Type,
					source.Active,
					cronExpr,
					lastScraped,
				})
			}

			t.Render()
			return nil
		},
	}
}

func newSourcesAddCommand() *cobra.Command {
	var (
		name     string
		url      string
		typ      string
		cronExpr string
		inactive bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new source",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sourceType, err := domain.ParseSourceType(typ)
			if err != nil {
				return err
			}
			if cronExpr != "" {
				if validateErr := schedule.Validate(cronExpr); validateErr != nil {
					return fmt.Errorf("invalid schedule: %w", validateErr)
				}
			}

			d, err := newDeps()
			if err != nil {
				return err
			}
			defer d.Close()

			source := &domain.Source{
				Name:   name,
				URL:    url,
				Type:   sourceType,
				Active: !inactive,
			}
			if cronExpr != "" {
				source.Schedule = &cronExpr
			}

			if createErr := d.Sources.Create(cmd.Context(), source); createErr != nil {
				return createErr
			}

			fmt.Printf("source %s created with id %s\n", source.Name, source.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "source display name")
	cmd.Flags().StringVar(&url, "url", "", "content URL to crawl")
	cmd.Flags().StringVar(&typ, "type", "", "source type (rss, html, api)")
	cmd.Flags().StringVar(&cronExpr, "schedule", "", "cron expression, e.g. '*/30 * * * *'")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "register the source as inactive")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}
