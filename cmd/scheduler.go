package cmd

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/polygraphy/digest/internal/logger"
	"github.com/polygraphy/digest/internal/schedule"
)

// newSchedulerCommand runs the scheduling process: it evaluates source cron
// expressions every tick and dispatches crawl tasks, and periodically gives
// the lifecycle sweep a chance to run.
func newSchedulerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run the source scheduler",
		Long: `Evaluate every active source's cron schedule once per tick and enqueue a
crawl task for each source that is due. Also triggers the daily article
lifecycle maintenance.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := newDeps()
			if err != nil {
				return err
			}
			defer d.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			scheduler := schedule.NewScheduler(d.Sources, d.Producer, d.Logger)
			maintainer := d.newMaintainer()

			d.Logger.Info("scheduler starting",
				logger.Duration("tick_interval", d.Config.Scheduler.TickInterval),
				logger.Duration("maintenance_interval", d.Config.Scheduler.MaintenanceInterval),
			)

			tick := time.NewTicker(d.Config.Scheduler.TickInterval)
			defer tick.Stop()
			maintenance := time.NewTicker(d.Config.Scheduler.MaintenanceInterval)
			defer maintenance.Stop()

			// Run one pass immediately so a restart does not wait a full tick.
			if _, checkErr := scheduler.CheckSources(ctx); checkErr != nil {
				d.Logger.Error("source check failed", logger.Error(checkErr))
			}
			maintainer.RunMaintenance(ctx)

			for {
				select {
				case <-ctx.Done():
					d.Logger.Info("scheduler shutting down")
					return nil
				case <-tick.C:
					if _, checkErr := scheduler.CheckSources(ctx); checkErr != nil {
						d.Logger.Error("source check failed", logger.Error(checkErr))
					}
				case <-maintenance.C:
					maintainer.RunMaintenance(ctx)
				}
			}
		},
	}
}
