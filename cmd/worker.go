package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/polygraphy/digest/internal/logger"
	"github.com/polygraphy/digest/internal/queue"
	"github.com/polygraphy/digest/internal/worker"
)

// newWorkerCommand runs the crawl worker process.
func newWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the crawl worker pool",
		Long: `Consume crawl tasks from the Redis stream and execute them. Tasks are
acknowledged only after a successful crawl; failed tasks are redelivered
until they exhaust their delivery budget.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := newDeps()
			if err != nil {
				return err
			}
			defer d.Close()

			hostname, err := os.Hostname()
			if err != nil {
				hostname = "worker"
			}
			consumerID := fmt.Sprintf("%s-%s", hostname, uuid.New().String()[:8])

			consumer, err := queue.NewConsumer(d.Streams, queue.ConsumerConfig{
				ConsumerGroup: d.Config.Queue.ConsumerGroup,
				ConsumerID:    consumerID,
				BlockTimeout:  d.Config.Queue.BlockTimeout,
				BatchSize:     d.Config.Queue.ReadBatchSize,
				ClaimMinIdle:  d.Config.Queue.ClaimMinIdle,
				MaxDeliveries: d.Config.Queue.MaxDeliveries,
			})
			if err != nil {
				return fmt.Errorf("create consumer: %w", err)
			}

			// Lock TTL must outlive the job timeout so a live crawl cannot lose
			// its lock mid-flight.
			guard := queue.NewInflightGuard(d.Streams.Client(), 2*d.Config.Worker.JobTimeout)

			pool := worker.NewPool(consumer, d.Pipeline, guard, d.Config.Worker, d.Logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d.Logger.Info("worker starting", logger.String("consumer_id", consumerID))
			return pool.Run(ctx)
		},
	}
}
