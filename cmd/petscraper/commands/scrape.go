package commands

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/maltedev/pet-products-scraper/internal/config"
	"github.com/maltedev/pet-products-scraper/internal/events"
)

var scrapeShop string

func init() {
	scrapeCmd.Flags().StringVarP(&scrapeShop, "shop", "s", "", "Only scrape this shop (default: every enabled shop).")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [-s shop]",
	Short: "Scrapes every not yet DONE product URL and consolidates the results.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		start := time.Now()
		runErr := a.engine.ForEachShop(cmd.Context(), shopNames(scrapeShop), func(ctx context.Context, shop string) error {
			summary, err := a.engine.Run(ctx, shop)
			if err != nil {
				return err
			}
			logger.Info("shop scraped",
				"shop", shop,
				"attempted", summary.Attempted,
				"done", summary.Done,
				"failed", summary.Failed,
				"rows", summary.Rows,
			)
			return nil
		})
		logger.Info("scrape finished", "elapsed", time.Since(start).String())

		if cfg.Redis.Enabled {
			if err := drainOutbox(cmd.Context(), cfg.Redis, a); err != nil {
				runErr = errors.Join(runErr, err)
			}
		}
		return runErr
	},
}

// drainOutbox publishes the scrape events recorded by this run without
// waiting for a long running relay.
func drainOutbox(ctx context.Context, rc config.RedisConfig, a *app) error {
	client := newRedisClient(rc)
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		return err
	}

	relay := events.NewRelay(a.store.Outbox(), client, logger, events.RelayConfig{BatchSize: rc.BatchSize})
	n, err := relay.Drain(ctx)
	if err != nil {
		return err
	}
	logger.Info("outbox drained", "events", n)
	return nil
}

func newRedisClient(rc config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
}
