package commands

import (
	"context"

	"github.com/spf13/cobra"
)

var linksShop string

func init() {
	getLinksCmd.Flags().StringVarP(&linksShop, "shop", "s", "", "Only refresh this shop (default: every enabled shop).")
	rootCmd.AddCommand(getLinksCmd)
}

var getLinksCmd = &cobra.Command{
	Use:     "get_links [-s shop]",
	Aliases: []string{"get-links"},
	Short:   "Discovers product links for the registered shops and loads them into the urls table.",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.engine.ForEachShop(cmd.Context(), shopNames(linksShop), func(ctx context.Context, shop string) error {
			n, err := a.engine.RefreshLinks(ctx, shop)
			if err != nil {
				return err
			}
			logger.Info("links refreshed", "shop", shop, "links", n)
			return nil
		})
	},
}
