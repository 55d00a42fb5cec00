package shops

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/maltedev/pet-products-scraper/internal/discovery"
	"github.com/maltedev/pet-products-scraper/internal/extract"
	"github.com/maltedev/pet-products-scraper/internal/models"
)

const (
	farmAndPetPlaceURL = "https://www.farmandpetplace.co.uk"
	feefoSummaryURL    = "https://api.feefo.com/api/10/reviews/summary/product"
)

func FarmAndPetPlace() *Config {
	return &Config{
		Shop: models.Shop{
			Name:    "FarmAndPetPlace",
			BaseURL: farmAndPetPlaceURL,
			Categories: []string{
				"pet/dog/dog-food/puppy-food",
				"pet/dog/dog-food/senior-dog-food",
				"pet/dog/dog-food/wet-dog-food",
				"pet/dog/dog-beds/soft-dog-beds",
				"pet/dog/dog-toys/tough-dog-toys",
				"pet/cat/cat-food/kitten-food",
				"pet/cat/cat-food/senior-cat-food",
				"wild-bird/wild-bird-feeders/fat-feeders",
			},
		},
		Discovery: &discovery.NumberedPagination{
			PageURL: func(category string, page int) string {
				return fmt.Sprintf("%s/shop/products/%s/page-%d.html", farmAndPetPlaceURL, category, page)
			},
			Total:    countIn("p.woocommerce-result-count"),
			PageSize: 24,
			Links:    discovery.Links{Selector: "div.shop-filters-area div.product > a"},
		},
		Transform: farmAndPetPlaceTransform,
	}
}

func farmAndPetPlaceTransform(ctx context.Context, p *Page) ([]models.ProductRecord, error) {
	name, err := extract.RequiredText(p.Doc.Selection, `h1[itemprop="name"]`, "title")
	if err != nil {
		return nil, err
	}
	description := extract.OptionalText(p.Doc.Selection, "div.short-description")

	rating := extract.DefaultRating
	if sku := extract.Attr(p.Doc.Selection, "div.ruk_rating_snippet", "data-sku"); sku != "" {
		rating = feefoRating(ctx, p.Fetcher, feefoSummaryURL, map[string]string{
			"since_period":        "ALL",
			"parent_product_sku":  sku,
			"merchant_identifier": "farm-pet-place",
			"origin":              strings.TrimPrefix(farmAndPetPlaceURL, "https://"),
		}, pickFeefoSummaryRating)
	}

	price, err := extract.NormalizePriceText(
		extract.Text(p.Doc.Selection, "div.price span.rrp strong"),
		extract.Text(p.Doc.Selection, "div.price span.current strong"),
	)
	if err != nil {
		return nil, err
	}

	row := p.Row(name, description, rating)
	if v := extract.Attr(p.Doc.Selection, "select#attribute option", "value"); v != "" {
		row.Variant = &v
	}
	row.Price, row.DiscountedPrice, row.DiscountPercentage = price.Price, price.Discounted, price.Percentage
	return []models.ProductRecord{row}, nil
}

func pickFeefoSummaryRating(body []byte) (float64, bool) {
	var resp struct {
		Rating struct {
			Rating float64 `json:"rating"`
		} `json:"rating"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, false
	}
	return resp.Rating.Rating, resp.Rating.Rating > 0
}
