package shops

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/pet-products-scraper/internal/discovery"
	"github.com/maltedev/pet-products-scraper/internal/extract"
	"github.com/maltedev/pet-products-scraper/internal/fetch"
	"github.com/maltedev/pet-products-scraper/internal/models"
)

const zooplusURL = "https://www.zooplus.co.uk"

// Zooplus is scraped from listing pages: each discovered URL is a product
// group whose listing spans several pages and carries every variant inline.
func Zooplus() *Config {
	return &Config{
		Shop: models.Shop{
			Name:    "Zooplus",
			BaseURL: zooplusURL,
			Categories: []string{
				"dogs/dry_dog_food",
				"dogs/canned_dog_food_and_pouches",
				"dogs/dog_treats_chews",
				"cats/dry_cat_food",
				"cats/canned_cat_food_pouches",
				"cats/cat_litter",
			},
		},
		Discovery: &discovery.CursorPagination{
			Start: func(category string) *fetch.Request {
				return fetch.Get(zooplusURL + "/shop/" + category)
			},
			Links: discovery.Links{
				Selector: `a[class*="CategoryTile"], a[data-zta="subcategoryLink"]`,
				Include:  func(link string) bool { return strings.HasPrefix(link, zooplusURL+"/shop/") },
			},
		},
		Transform:     zooplusTransform,
		NextPage:      nextHref(`a[data-zta="paginationNext"]`),
		Images:        ogImage,
		ImageDelayMin: 60 * time.Second,
		ImageDelayMax: 120 * time.Second,
	}
}

func zooplusTransform(_ context.Context, p *Page) ([]models.ProductRecord, error) {
	var rows []models.ProductRecord
	var err error

	p.Doc.Find(`div[class*="ProductListItem_productWrapper"]`).EachWithBreak(func(_ int, w *goquery.Selection) bool {
		var product []models.ProductRecord
		product, err = zooplusProduct(p, w)
		if err != nil {
			return false
		}
		rows = append(rows, product...)
		return true
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func zooplusProduct(p *Page, w *goquery.Selection) ([]models.ProductRecord, error) {
	const titleLink = `a[class*="ProductListItem_productInfoTitleLink"]`

	name, err := extract.RequiredText(w, titleLink, "title")
	if err != nil {
		return nil, err
	}
	href := extract.Attr(w, titleLink, "href")
	description := extract.OptionalText(w, `p[class*="ProductListItem_productInfoDescription"]`)
	rating := extract.ParseRating(extract.Text(w, `span[class*="pp-visually-hidden"]`))

	var rows []models.ProductRecord
	var perr error
	w.Find(`div[class*="ProductListItemVariant_variantWrapper"]`).EachWithBreak(func(_ int, v *goquery.Selection) bool {
		price, err := extract.NormalizePriceText(
			extract.Text(v, `span[data-zta*="productReducedPriceRefPriceAmount"]`),
			extract.Text(v, `span[class*="z-price__amount"]`),
		)
		if err != nil {
			perr = err
			return false
		}

		row := p.Row(name, description, rating)
		row.URL = p.Shop.RelativeURL(extract.Resolve(p.Shop.BaseURL, href))
		row.Variant = extract.OptionalText(v, `span[class*="ProductListItemVariant_variantDescription"]`)
		row.Price, row.DiscountedPrice, row.DiscountPercentage = price.Price, price.Discounted, price.Percentage
		rows = append(rows, row)
		return true
	})
	if perr != nil {
		return nil, perr
	}
	if len(rows) == 0 {
		return nil, extract.Missing("variants of " + name)
	}
	return rows, nil
}
