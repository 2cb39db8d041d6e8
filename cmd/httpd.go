package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/polygraphy/digest/internal/api"
	"github.com/polygraphy/digest/internal/logger"
)

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// newHTTPDCommand runs the admin HTTP server.
func newHTTPDCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "httpd",
		Short: "Run the admin HTTP server",
		Long: `Serve health, Prometheus metrics, and manual triggers for crawls and
lifecycle maintenance.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := newDeps()
			if err != nil {
				return err
			}
			defer d.Close()

			server := api.NewServer(
				d.Config.Server,
				d.Pipeline,
				d.Producer,
				d.newMaintainer(),
				d.Logger,
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			d.Logger.Info("http server shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
				d.Logger.Error("http shutdown failed", logger.Error(shutdownErr))
			}

			return <-errCh
		},
	}
}
