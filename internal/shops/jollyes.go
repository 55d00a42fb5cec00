package shops

import (
	"context"
	"fmt"
	"time"

	"github.com/maltedev/pet-products-scraper/internal/discovery"
	"github.com/maltedev/pet-products-scraper/internal/extract"
	"github.com/maltedev/pet-products-scraper/internal/fetch"
	"github.com/maltedev/pet-products-scraper/internal/models"
)

const jollyesURL = "https://www.jollyes.co.uk"

// Jollyes declares no total, so listing pages are walked until one adds
// nothing new.
func Jollyes() *Config {
	return &Config{
		Shop: models.Shop{
			Name:       "Jollyes",
			BaseURL:    jollyesURL,
			Categories: []string{"dog", "cat", "small-pet", "bird-wildlife", "fish", "reptile"},
		},
		Discovery: &discovery.NumberedPagination{
			PageURL: func(category string, page int) string {
				return fmt.Sprintf("%s/%s.html?page=%d&perPage=100", jollyesURL, category, page)
			},
			Links: discovery.Links{Selector: `div[class*="product-tile"] a[href$=".html"]`},
		},
		Transform:     jollyesTransform,
		Images:        jollyesImages,
		ImageDelayMin: 2 * time.Second,
		ImageDelayMax: 5 * time.Second,
	}
}

func jollyesTransform(_ context.Context, p *Page) ([]models.ProductRecord, error) {
	product, err := extract.FindLD(p.Doc, "Product")
	if err != nil {
		return nil, err
	}
	return ldRows(p, product, ldRating(product))
}

func jollyesImages(ctx context.Context, f fetch.Fetcher, url string) ([]string, error) {
	doc, err := fetch.Document(ctx, f, fetch.Get(url))
	if err != nil {
		return nil, err
	}
	product, err := extract.FindLD(doc, "Product")
	if err != nil {
		return nil, err
	}
	images := ldImages(product["image"])
	if len(images) == 0 {
		return nil, extract.Missing("image")
	}
	return images, nil
}
