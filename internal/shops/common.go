package shops

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/pet-products-scraper/internal/extract"
	"github.com/maltedev/pet-products-scraper/internal/fetch"
	"github.com/maltedev/pet-products-scraper/internal/models"
)

func optional(s string) *string {
	s = extract.Clean(s)
	if s == "" {
		return nil
	}
	return &s
}

// firstCount returns the first whitespace-separated word that is a plain
// integer, e.g. 60 in "Showing 1–24 of 60 results".
func firstCount(text string) (int, bool) {
	for _, w := range strings.Fields(text) {
		if n, err := strconv.Atoi(strings.ReplaceAll(w, ",", "")); err == nil {
			return n, true
		}
	}
	return 0, false
}

func countIn(selector string) func(doc *goquery.Document) (int, bool) {
	return func(doc *goquery.Document) (int, bool) {
		return firstCount(doc.Find(selector).First().Text())
	}
}

func nextHref(selector string) func(doc *goquery.Document) string {
	return func(doc *goquery.Document) string {
		href, ok := doc.Find(selector).First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return ""
		}
		base := ""
		if doc.Url != nil {
			base = doc.Url.String()
		}
		return extract.Resolve(base, href)
	}
}

// followLink turns a rel=next style anchor into the next cursor request.
func followLink(selector string) func(doc *goquery.Document, _ *fetch.Request) *fetch.Request {
	next := nextHref(selector)
	return func(doc *goquery.Document, _ *fetch.Request) *fetch.Request {
		if u := next(doc); u != "" {
			return fetch.Get(u)
		}
		return nil
	}
}

func imageSources(sel *goquery.Selection, attr, base string) []string {
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr(attr); ok && strings.TrimSpace(src) != "" {
			out = append(out, extract.Resolve(base, src))
		}
	})
	return out
}

// ogImage is the image-only extractor for shops exposing og:image.
func ogImage(ctx context.Context, f fetch.Fetcher, url string) ([]string, error) {
	doc, err := fetch.Document(ctx, f, fetch.Get(url))
	if err != nil {
		return nil, err
	}
	img := extract.Attr(doc.Selection, `meta[property="og:image"]`, "content")
	if img == "" {
		return nil, extract.Missing("og:image")
	}
	return []string{img}, nil
}

// ldOffers returns the individual offers of a JSON-LD product. An
// AggregateOffer wrapping an offers list is unwrapped.
func ldOffers(product map[string]any) []map[string]any {
	var out []map[string]any
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case []any:
			for _, x := range t {
				walk(x)
			}
		case map[string]any:
			if inner, ok := t["offers"]; ok {
				walk(inner)
				return
			}
			out = append(out, t)
		}
	}
	walk(product["offers"])
	return out
}

func ldImages(v any) []string {
	switch t := v.(type) {
	case string:
		if t = strings.TrimSpace(t); t != "" {
			return []string{t}
		}
	case []any:
		var out []string
		for _, x := range t {
			out = append(out, ldImages(x)...)
		}
		return out
	case map[string]any:
		return ldImages(t["url"])
	}
	return nil
}

// ldRating reads aggregateRating, honouring bestRating when present.
func ldRating(product map[string]any) string {
	agg, ok := product["aggregateRating"].(map[string]any)
	if !ok {
		return extract.DefaultRating
	}
	value, ok := extract.Number(agg["ratingValue"])
	if !ok {
		return extract.DefaultRating
	}
	best, ok := extract.Number(agg["bestRating"])
	if !ok {
		best = 5
	}
	return extract.Rating(value, best)
}

// ldRows turns every offer of a JSON-LD product into a row. A single offer
// without a name is an undifferentiated product.
func ldRows(p *Page, product map[string]any, rating string) ([]models.ProductRecord, error) {
	name := extract.String(product["name"])
	if name == "" {
		return nil, extract.Missing("name")
	}
	description := optional(extract.String(product["description"]))
	images := ldImages(product["image"])

	offers := ldOffers(product)
	if len(offers) == 0 {
		return nil, extract.Missing("offers")
	}

	rows := make([]models.ProductRecord, 0, len(offers))
	for _, offer := range offers {
		current, ok := extract.Number(offer["price"])
		if !ok {
			return nil, fmt.Errorf("%w: offer price", extract.ErrNoPrice)
		}
		var reference *float64
		if spec, ok := offer["priceSpecification"].(map[string]any); ok {
			if v, ok := extract.Number(spec["price"]); ok {
				reference = &v
			}
		}
		price, err := extract.NormalizePrice(reference, &current)
		if err != nil {
			return nil, err
		}

		row := p.Row(name, description, rating)
		if len(offers) > 1 {
			row.Variant = optional(extract.String(offer["name"]))
		}
		row.Price, row.DiscountedPrice, row.DiscountPercentage = price.Price, price.Discounted, price.Percentage
		row.ImageURLs = images
		rows = append(rows, row)
	}
	return rows, nil
}

// feefoRating asks the Feefo ratings API for a product's average. Any
// failure falls back to the default rating.
func feefoRating(ctx context.Context, f fetch.Fetcher, endpoint string, query map[string]string, pick func(body []byte) (float64, bool)) string {
	req := fetch.Get(endpoint)
	req.Query = query
	req.Headers = map[string]string{"Accept": "application/json"}

	resp, err := f.Fetch(ctx, req)
	if err != nil {
		return extract.DefaultRating
	}
	v, ok := pick(resp.Body)
	if !ok {
		return extract.DefaultRating
	}
	return extract.Rating(v, 5)
}
