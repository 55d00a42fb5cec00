package commands

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maltedev/pet-products-scraper/internal/etl"
	"github.com/maltedev/pet-products-scraper/internal/extract"
	"github.com/maltedev/pet-products-scraper/internal/models"
	"github.com/maltedev/pet-products-scraper/internal/shops"
)

var (
	imagesInput  string
	imagesOutput string
)

func init() {
	getImageCmd.Flags().StringVarP(&imagesInput, "input", "i", "./csv/pet_product_variant_urls.csv", "CSV of variant URLs (id, shop_name, base_url, url, variant).")
	getImageCmd.Flags().StringVarP(&imagesOutput, "output", "o", "./csv", "Directory the per-shop image CSVs are written to.")
	rootCmd.AddCommand(getImageCmd)
}

var getImageCmd = &cobra.Command{
	Use:     "get_image [-i variants.csv] [-o dir]",
	Aliases: []string{"get-image"},
	Short:   "Re-scrapes product images for already known variant URLs.",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(imagesInput)
		if err != nil {
			return fmt.Errorf("failed to open variants: %w", err)
		}
		rows, err := readVariantRows(f)
		f.Close()
		if err != nil {
			return err
		}

		if err := os.MkdirAll(imagesOutput, 0o755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}

		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		byShop, order := groupByShop(rows)
		order = imageShops(a.engine.Registry(), order, logger)
		if len(order) == 0 {
			logger.Warn("no shop in the variants file supports image backfill", "input", imagesInput)
			return nil
		}
		return a.engine.ForEachShop(cmd.Context(), order, func(ctx context.Context, shop string) error {
			return backfillShop(ctx, a.engine, shop, byShop[shop], imagesOutput)
		})
	},
}

// variantRow is one line of the variant URL export.
type variantRow struct {
	ID      string
	Shop    string
	BaseURL string
	URL     string
	Variant string
}

var variantColumns = []string{"id", "shop_name", "base_url", "url", "variant"}

func readVariantRows(r io.Reader) ([]variantRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read variants header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.ToLower(h))] = i
	}
	for _, col := range variantColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("variants file is missing column %q", col)
		}
	}

	var rows []variantRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read variants: %w", err)
		}
		get := func(col string) string {
			if i := idx[col]; i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		rows = append(rows, variantRow{
			ID:      get("id"),
			Shop:    get("shop_name"),
			BaseURL: get("base_url"),
			URL:     get("url"),
			Variant: get("variant"),
		})
	}
	return rows, nil
}

func groupByShop(rows []variantRow) (map[string][]variantRow, []string) {
	byShop := map[string][]variantRow{}
	var order []string
	for _, r := range rows {
		if _, ok := byShop[r.Shop]; !ok {
			order = append(order, r.Shop)
		}
		byShop[r.Shop] = append(byShop[r.Shop], r)
	}
	return byShop, order
}

// imageShops keeps the shops that are registered and know how to extract
// images. Exports from older databases name shops that no longer exist.
func imageShops(registry *shops.Registry, names []string, log *slog.Logger) []string {
	var out []string
	for _, name := range names {
		shopCfg, err := registry.Get(name)
		if err != nil {
			log.Warn("skipping unknown shop", "shop", name)
			continue
		}
		if shopCfg.Images == nil {
			log.Warn("skipping shop without image extractor", "shop", name)
			continue
		}
		out = append(out, name)
	}
	return out
}

func backfillShop(ctx context.Context, engine *etl.Orchestrator, shop string, rows []variantRow, dir string) error {
	shopCfg, err := engine.Registry().Get(shop)
	if err != nil {
		return err
	}

	// Several variants usually share one page.
	seen := map[string]bool{}
	var variants []models.VariantURL
	for _, r := range rows {
		u := extract.Resolve(shopCfg.Shop.BaseURL, r.URL)
		if seen[u] {
			continue
		}
		seen[u] = true
		variants = append(variants, models.VariantURL{ID: r.ID, Shop: shop, URL: r.URL, Variant: r.Variant})
	}

	records, err := engine.BackfillImages(ctx, shop, variants)
	if err != nil && len(records) == 0 {
		return err
	}

	out, ferr := os.Create(filepath.Join(dir, shop+".csv"))
	if ferr != nil {
		return fmt.Errorf("failed to create image csv: %w", ferr)
	}
	defer out.Close()

	n, werr := writeImageRows(out, shopCfg, rows, records)
	if werr != nil {
		return werr
	}
	logger.Info("images saved", "shop", shop, "rows", n, "path", out.Name())
	return err
}

// writeImageRows joins the input variants with the extracted images on the
// resolved page URL. Variants without images are left out.
func writeImageRows(w io.Writer, shopCfg *shops.Config, rows []variantRow, records []models.ImageRecord) (int, error) {
	images := make(map[string][]string, len(records))
	for _, rec := range records {
		images[rec.URL] = rec.ImageURLs
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "shop", "base_url", "url", "variant", "image_urls"}); err != nil {
		return 0, err
	}
	n := 0
	for _, r := range rows {
		urls, ok := images[extract.Resolve(shopCfg.Shop.BaseURL, r.URL)]
		if !ok {
			continue
		}
		if err := cw.Write([]string{r.ID, r.Shop, r.BaseURL, r.URL, r.Variant, strings.Join(urls, ", ")}); err != nil {
			return n, err
		}
		n++
	}
	cw.Flush()
	return n, cw.Error()
}
