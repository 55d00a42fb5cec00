package shops

import (
	"context"

	"github.com/maltedev/pet-products-scraper/internal/discovery"
	"github.com/maltedev/pet-products-scraper/internal/extract"
	"github.com/maltedev/pet-products-scraper/internal/fetch"
	"github.com/maltedev/pet-products-scraper/internal/models"
)

const ocadoURL = "https://www.ocado.com"

// Ocado renders both listings and product pages client side.
func Ocado() *Config {
	return &Config{
		Shop: models.Shop{
			Name:       "Ocado",
			BaseURL:    ocadoURL,
			Categories: []string{"browse/pets-home-garden-300818"},
		},
		Discovery: &discovery.InfiniteScroll{
			URL:          func(category string) string { return ocadoURL + "/" + category },
			WaitSelector: ".fops-regular",
			ItemSelector: "li.fops-item",
			MaxRounds:    200,
			Links:        discovery.Links{Selector: "ul.fops-regular li.fops-item:not(.fops-item--advert) a"},
		},
		Detail: func(url string) *fetch.Request {
			req := fetch.Get(url)
			req.Strategy = fetch.StrategyBrowser
			req.WaitSelector = "#main-content"
			return req
		},
		Transform: ocadoTransform,
	}
}

func ocadoTransform(_ context.Context, p *Page) ([]models.ProductRecord, error) {
	doc := p.Doc.Selection

	name, err := extract.RequiredText(doc, "header.bop-title h1", "title")
	if err != nil {
		return nil, err
	}
	description := extract.OptionalText(doc, "div.gn-accordionElement__wrapper div.bop-info__content")

	rating := extract.DefaultRating
	if v := extract.Text(doc, `section#reviews span[itemprop="ratingValue"]`); v != "" {
		rating = extract.ParseRating(v)
	}

	price, err := extract.NormalizePriceText(
		extract.Text(doc, "span.bop-price__old"),
		extract.Attr(doc, `h2.bop-price__current meta[itemprop="price"]`, "content"),
	)
	if err != nil {
		return nil, err
	}

	row := p.Row(name, description, rating)
	row.Variant = extract.OptionalText(doc, "header.bop-title span.bop-catchWeight")
	row.Price, row.DiscountedPrice, row.DiscountPercentage = price.Price, price.Discounted, price.Percentage
	return []models.ProductRecord{row}, nil
}
