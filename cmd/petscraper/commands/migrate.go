package commands

import (
	"github.com/spf13/cobra"

	"github.com/maltedev/pet-products-scraper/internal/metrics"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Creates the staging, canonical and outbox tables.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context(), cfg, logger, metrics.New())
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}
		logger.Info("schema applied")
		return nil
	},
}
