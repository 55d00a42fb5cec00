package shops

import (
	"context"
	"time"

	"github.com/maltedev/pet-products-scraper/internal/discovery"
	"github.com/maltedev/pet-products-scraper/internal/extract"
	"github.com/maltedev/pet-products-scraper/internal/fetch"
	"github.com/maltedev/pet-products-scraper/internal/models"
)

const petsAtHomeURL = "https://www.petsathome.com"

type petsAtHomeData struct {
	Props struct {
		PageProps struct {
			BaseProduct struct {
				Name        string `json:"name"`
				Description string `json:"description"`
				Products    []struct {
					Label string `json:"label"`
					Price struct {
						Base          float64  `json:"base"`
						PromotionBase *float64 `json:"promotionBase"`
					} `json:"price"`
					ImageURLs []string `json:"imageUrls"`
				} `json:"products"`
			} `json:"baseProduct"`
			ProductRating *struct {
				AverageRating float64 `json:"averageRating"`
			} `json:"productRating"`
		} `json:"pageProps"`
	} `json:"props"`
}

func PetsAtHome() *Config {
	return &Config{
		Shop: models.Shop{
			Name:       "PetsAtHome",
			BaseURL:    petsAtHomeURL,
			Categories: []string{"dog", "cat", "small-animal", "fish", "reptile", "bird-and-wildlife"},
		},
		Discovery: &discovery.CursorPagination{
			Start: func(category string) *fetch.Request {
				return fetch.Get(petsAtHomeURL + "/product/listing/" + category)
			},
			Next:  followLink(`a[class*="results-pagination_more"]`),
			Links: discovery.Links{Selector: `a[class*="product-tile_wrapper"]`},
		},
		Transform:     petsAtHomeTransform,
		Images:        ogImage,
		ImageDelayMin: 2 * time.Second,
		ImageDelayMax: 5 * time.Second,
	}
}

func petsAtHomeTransform(_ context.Context, p *Page) ([]models.ProductRecord, error) {
	var data petsAtHomeData
	if err := extract.NextData(p.Doc, &data); err != nil {
		return nil, err
	}

	base := data.Props.PageProps.BaseProduct
	if base.Name == "" {
		return nil, extract.Missing("baseProduct.name")
	}
	if len(base.Products) == 0 {
		return nil, extract.Missing("baseProduct.products")
	}

	rating := extract.DefaultRating
	if r := data.Props.PageProps.ProductRating; r != nil {
		rating = extract.Rating(r.AverageRating, 5)
	}
	description := optional(base.Description)

	rows := make([]models.ProductRecord, 0, len(base.Products))
	for _, v := range base.Products {
		reference, promotion := v.Price.Base, v.Price.PromotionBase
		if promotion != nil && *promotion <= 0 {
			promotion = nil
		}
		price, err := extract.NormalizePrice(&reference, promotion)
		if err != nil {
			return nil, err
		}

		row := p.Row(extract.Clean(base.Name), description, rating)
		if len(base.Products) > 1 {
			row.Variant = optional(v.Label)
		}
		row.Price, row.DiscountedPrice, row.DiscountPercentage = price.Price, price.Discounted, price.Percentage
		row.ImageURLs = v.ImageURLs
		rows = append(rows, row)
	}
	return rows, nil
}
