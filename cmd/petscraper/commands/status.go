package commands

import (
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/maltedev/pet-products-scraper/internal/metrics"
	"github.com/maltedev/pet-products-scraper/internal/models"
)

var statusShop string

func init() {
	statusCmd.Flags().StringVarP(&statusShop, "shop", "s", "", "Only show this shop.")
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status [-s shop]",
	Short: "Prints the number of product URLs per scrape status.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context(), cfg, logger, metrics.New())
		if err != nil {
			return err
		}
		defer st.Close()

		counts, err := st.CountByStatus(cmd.Context(), statusShop)
		if err != nil {
			return err
		}
		renderStatus(os.Stdout, counts)
		return nil
	},
}

var statusColumns = []models.ScrapeStatus{models.StatusPending, models.StatusDone, models.StatusFailed}

// renderStatus prints one row per shop with a column per status.
func renderStatus(w io.Writer, counts []models.StatusCount) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)

	header := table.Row{"Shop"}
	for _, s := range statusColumns {
		header = append(header, string(s))
	}
	t.AppendHeader(append(header, "Total"))

	var order []string
	byShop := map[string]map[models.ScrapeStatus]int64{}
	for _, c := range counts {
		if _, ok := byShop[c.Shop]; !ok {
			byShop[c.Shop] = map[models.ScrapeStatus]int64{}
			order = append(order, c.Shop)
		}
		byShop[c.Shop][c.Status] += c.Count
	}

	totals := make([]int64, len(statusColumns)+1)
	for _, shop := range order {
		row := table.Row{shop}
		var total int64
		for i, s := range statusColumns {
			n := byShop[shop][s]
			row = append(row, n)
			totals[i] += n
			total += n
		}
		totals[len(statusColumns)] += total
		t.AppendRow(append(row, total))
	}

	footer := table.Row{"Total"}
	for _, n := range totals {
		footer = append(footer, n)
	}
	t.AppendFooter(footer)
	t.Render()
}
