package commands

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/maltedev/pet-products-scraper/internal/api"
	"github.com/maltedev/pet-products-scraper/internal/events"
	"github.com/maltedev/pet-products-scraper/internal/jobs"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the operator API, the job worker and the outbox relay.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		if cfg.Redis.Enabled {
			client := newRedisClient(cfg.Redis)
			defer client.Close()
			if err := client.Ping(ctx).Err(); err != nil {
				return err
			}

			relay := events.NewRelay(a.store.Outbox(), client, logger, events.RelayConfig{
				PollInterval: cfg.Redis.PollInterval,
				BatchSize:    cfg.Redis.BatchSize,
			})
			go func() {
				if err := relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("relay stopped with error", "error", err)
				}
			}()
		}

		manager := jobs.NewManager(a.engine, 16, logger)
		go manager.StartWorker(ctx)

		handlers := api.NewHandlers(a.store, a.store.Outbox(), a.engine, manager, logger)
		server := &http.Server{
			Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:      api.NewRouter(handlers, a.metrics.Handler(), api.RouterOptions{}),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		}

		stopped := make(chan struct{})
		go func() {
			defer close(stopped)
			<-ctx.Done()
			logger.Info("shutting down server...")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown failed", "error", err)
			}
		}()

		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		<-stopped
		logger.Info("server stopped")
		return nil
	},
}
