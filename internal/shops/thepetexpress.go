package shops

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/pet-products-scraper/internal/discovery"
	"github.com/maltedev/pet-products-scraper/internal/extract"
	"github.com/maltedev/pet-products-scraper/internal/models"
)

const thePetExpressURL = "https://www.thepetexpress.co.uk"

func ThePetExpress() *Config {
	return &Config{
		Shop: models.Shop{
			Name:    "ThePetExpress",
			BaseURL: thePetExpressURL,
			Categories: []string{
				"dog-food", "puppy-food", "dog-toys", "dog-beds",
				"cat-food", "kitten-treats", "cat-beds",
				"bird-food", "wild-bird-food",
				"reptile-food", "small-animals-food", "fish-food",
			},
		},
		Discovery: &discovery.NumberedPagination{
			PageURL: func(category string, page int) string {
				return fmt.Sprintf("%s/%s/?page=%d", thePetExpressURL, category, page)
			},
			Total:    countIn("div.pagination--count"),
			PageSize: 24,
			Links:    discovery.Links{Selector: "div.category-page > a"},
		},
		Transform: thePetExpressTransform,
	}
}

func thePetExpressTransform(_ context.Context, p *Page) ([]models.ProductRecord, error) {
	name, err := extract.RequiredText(p.Doc.Selection, "div.page-header h1", "title")
	if err != nil {
		return nil, err
	}

	rating := extract.DefaultRating
	if stars := extract.Text(p.Doc.Selection, "div#reviews span.average_stars"); stars != "" {
		rating = extract.ParseRating(stars)
	}

	options := p.Doc.Find("div.in_page_options_option div.sub-options")
	if options.Length() == 0 {
		price, err := extract.NormalizePriceText(
			extract.Text(p.Doc.Selection, "span.ajax-rrp"),
			extract.Text(p.Doc.Selection, "span.ajax-price-vat"),
		)
		if err != nil {
			return nil, err
		}
		row := p.Row(name, nil, rating)
		row.Price, row.DiscountedPrice, row.DiscountPercentage = price.Price, price.Discounted, price.Percentage
		return []models.ProductRecord{row}, nil
	}

	var rows []models.ProductRecord
	options.EachWithBreak(func(_ int, o *goquery.Selection) bool {
		var price extract.Price
		price, err = extract.NormalizePriceText(
			extract.Text(o, "span.inpage_option_rrp"),
			extract.Text(o, "div.ajax-price"),
		)
		if err != nil {
			return false
		}
		row := p.Row(name, nil, rating)
		row.Variant = extract.OptionalText(o, "div.inpage_option_title")
		row.Price, row.DiscountedPrice, row.DiscountPercentage = price.Price, price.Discounted, price.Percentage
		rows = append(rows, row)
		return true
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
