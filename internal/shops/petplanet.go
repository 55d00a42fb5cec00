package shops

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/pet-products-scraper/internal/discovery"
	"github.com/maltedev/pet-products-scraper/internal/extract"
	"github.com/maltedev/pet-products-scraper/internal/fetch"
	"github.com/maltedev/pet-products-scraper/internal/models"
)

const (
	petPlanetURL  = "https://www.petplanet.co.uk"
	petPlanetStep = 20
	petPlanetMenu = "ctl00$ContentPlaceHolder1$ctl00$Shop1$ProdMenu1$"
)

var petPlanetShowing = regexp.MustCompile(`Showing (\d+) items`)

// PetPlanet is an ASP.NET WebForms site: "Show More" is a postback that
// returns the listing grown by one step.
func PetPlanet() *Config {
	return &Config{
		Shop: models.Shop{
			Name:    "PetPlanet",
			BaseURL: petPlanetURL,
			Categories: []string{
				"d7/dog_food",
				"d2/dog_products",
				"d34/cat_food",
				"d3/cat_products",
				"d298/other_small_furries",
				"d2709/pet_health",
			},
		},
		Discovery: &discovery.CursorPagination{
			Start: func(category string) *fetch.Request {
				req := fetch.Get(petPlanetURL + "/" + category)
				req.Headers = map[string]string{"Referer": petPlanetURL}
				return req
			},
			Next:  petPlanetNext,
			Links: discovery.Links{Selector: "a.product-name"},
		},
		Transform: petPlanetTransform,
		Images:    petPlanetImages,
	}
}

func petPlanetNext(doc *goquery.Document, current *fetch.Request) *fetch.Request {
	m := petPlanetShowing.FindStringSubmatch(doc.Text())
	if m == nil {
		return nil
	}
	total, _ := strconv.Atoi(m[1])
	shown := doc.Find("a.product-name").Length()
	if shown == 0 || shown >= total {
		return nil
	}

	form := url.Values{}
	doc.Find(`input[type="hidden"]`).Each(func(_ int, s *goquery.Selection) {
		if name, ok := s.Attr("name"); ok && strings.HasPrefix(name, "__") {
			form.Set(name, s.AttrOr("value", ""))
		}
	})
	form.Set(petPlanetMenu+"menu_sort_list", "price")
	form.Set(petPlanetMenu+"LoadMoreFlag1", "1")
	form.Set(petPlanetMenu+"LoadStopFlag1", "0")
	form.Set(petPlanetMenu+"PageSize1", strconv.Itoa(shown+petPlanetStep))
	form.Set(petPlanetMenu+"PageSizeStep1", strconv.Itoa(petPlanetStep))
	form.Set(petPlanetMenu+"LoadMoreBtn1", "Show More")
	form.Set("__ASYNCPOST", "true")

	req := fetch.Post(current.URL, form.Encode())
	req.Headers = map[string]string{
		"Content-Type": "application/x-www-form-urlencoded; charset=UTF-8",
		"Referer":      current.URL,
	}
	return req
}

func petPlanetTransform(ctx context.Context, p *Page) ([]models.ProductRecord, error) {
	doc := p.Doc.Selection

	name, err := extract.RequiredText(doc, "h1", "title")
	if err != nil {
		return nil, err
	}
	description := extract.OptionalText(doc, "div#nav-description")

	rating := extract.DefaultRating
	if v := extract.Text(doc, "#ContentPlaceHolder1_ctl00_Product1_ctl02_SummaryPanel h3"); v != "" {
		rating = extract.ParseRating(v)
	}
	images := imageSources(doc.Find("div.product-gallery-control img"), "src", p.URL)

	options := doc.Find(`div[class*="product-option-grid"] a`)
	if options.Length() == 0 {
		price, err := petPlanetPrice(doc)
		if err != nil {
			return nil, err
		}
		row := p.Row(name, description, rating)
		row.Price, row.DiscountedPrice, row.DiscountPercentage = price.Price, price.Discounted, price.Percentage
		row.ImageURLs = images
		return []models.ProductRecord{row}, nil
	}

	var rows []models.ProductRecord
	options.EachWithBreak(func(_ int, o *goquery.Selection) bool {
		var variantDoc *goquery.Selection
		variantDoc, err = petPlanetVariantPage(ctx, p, o.AttrOr("href", ""))
		if err != nil {
			return false
		}
		var price extract.Price
		price, err = petPlanetPrice(variantDoc)
		if err != nil {
			return false
		}

		row := p.Row(name, description, rating)
		row.Variant = extract.OptionalText(o, `div[class*="h5"]`)
		row.Price, row.DiscountedPrice, row.DiscountPercentage = price.Price, price.Discounted, price.Percentage
		row.ImageURLs = images
		rows = append(rows, row)
		return true
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// petPlanetVariantPage loads the page of one option. The selected option
// links back to the current page, which is reused.
func petPlanetVariantPage(ctx context.Context, p *Page, href string) (*goquery.Selection, error) {
	target := extract.Resolve(p.URL, href)
	if target == "" || withoutFragment(target) == withoutFragment(p.URL) {
		return p.Doc.Selection, nil
	}
	doc, err := fetch.Document(ctx, p.Fetcher, fetch.Get(target))
	if err != nil {
		return nil, err
	}
	return doc.Selection, nil
}

func withoutFragment(u string) string {
	before, _, _ := strings.Cut(u, "#")
	return before
}

// petPlanetPrice reads the price box. A nested span holds the struck-out
// price and the box's own text the current one.
func petPlanetPrice(s *goquery.Selection) (extract.Price, error) {
	box := s.Find(`span[class*="fw-bold fs-4"]`).First()
	if box.Length() == 0 {
		box = s.Find(`div[class*="fw-bold fs-4"]`).First()
	}
	if box.Length() == 0 {
		return extract.Price{}, extract.Missing("price")
	}

	was := extract.Clean(box.Find("span").First().Text())
	now := extract.Clean(box.Clone().Children().Remove().End().Text())
	return extract.NormalizePriceText(was, now)
}

func petPlanetImages(ctx context.Context, f fetch.Fetcher, u string) ([]string, error) {
	req := fetch.Get(u)
	req.Strategy = fetch.StrategyBrowser
	req.WaitSelector = ".site-wrapper"

	doc, err := fetch.Document(ctx, f, req)
	if err != nil {
		return nil, err
	}
	images := imageSources(doc.Find("div.product-gallery-slider img").First(), "src", u)
	if len(images) == 0 {
		return nil, extract.Missing("gallery image")
	}
	return images, nil
}
