package shops

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/pet-products-scraper/internal/discovery"
	"github.com/maltedev/pet-products-scraper/internal/extract"
	"github.com/maltedev/pet-products-scraper/internal/fetch"
	"github.com/maltedev/pet-products-scraper/internal/models"
)

type fetcherFunc func(ctx context.Context, req *fetch.Request) (*fetch.Response, error)

func (f fetcherFunc) Fetch(ctx context.Context, req *fetch.Request) (*fetch.Response, error) {
	return f(ctx, req)
}

var noFetch = fetcherFunc(func(_ context.Context, req *fetch.Request) (*fetch.Response, error) {
	return nil, fmt.Errorf("unexpected fetch of %s", req.URL)
})

func document(t *testing.T, rawURL, html string) *goquery.Document {
	t.Helper()
	doc, err := (&fetch.Response{URL: rawURL, ContentType: "text/html; charset=utf-8", Body: []byte(html)}).Document()
	require.NoError(t, err)
	return doc
}

func newPage(t *testing.T, cfg *Config, rawURL, html string, f fetch.Fetcher) *Page {
	t.Helper()
	return &Page{Shop: cfg.Shop, URL: rawURL, Doc: document(t, rawURL, html), Fetcher: f}
}

func transform(t *testing.T, cfg *Config, p *Page) ([]models.ProductRecord, *extract.ExtractionError) {
	t.Helper()
	return extract.Run(cfg.Name(), p.URL, func() ([]models.ProductRecord, error) {
		return cfg.Transform(context.Background(), p)
	})
}

const petExpressVariants = `<html><body>
<div class="page-header"><h1>Harringtons Dog Food</h1></div>
<div id="reviews"><span class="average_stars">4.5</span></div>
<div class="in_page_options_option">
  <div class="sub-options">
    <div class="inpage_option_title">2kg</div>
    <span class="inpage_option_rrp">RRP: £20.00</span>
    <div class="ajax-price">£15.00</div>
  </div>
  <div class="sub-options">
    <div class="inpage_option_title">400g</div>
    <div class="ajax-price">£10.00</div>
  </div>
</div>
</body></html>`

func TestThePetExpressVariants(t *testing.T) {
	cfg := ThePetExpress()
	p := newPage(t, cfg, "https://www.thepetexpress.co.uk/harringtons-dog-food.html", petExpressVariants, noFetch)

	rows, xerr := transform(t, cfg, p)
	require.Nil(t, xerr)
	require.Len(t, rows, 2)

	assert.Equal(t, "Harringtons Dog Food", rows[0].Name)
	assert.Equal(t, "/harringtons-dog-food.html", rows[0].URL)
	assert.Equal(t, "4.5/5", rows[0].Rating)
	assert.Equal(t, "2kg", *rows[0].Variant)
	assert.Equal(t, 20.0, rows[0].Price)
	assert.Equal(t, extract.Float(15), rows[0].DiscountedPrice)
	assert.Equal(t, extract.Float(0.25), rows[0].DiscountPercentage)

	assert.Equal(t, "400g", *rows[1].Variant)
	assert.Equal(t, 10.0, rows[1].Price)
	assert.Nil(t, rows[1].DiscountedPrice)
	assert.Nil(t, rows[1].DiscountPercentage)
}

func TestThePetExpressSinglePrice(t *testing.T) {
	cfg := ThePetExpress()
	p := newPage(t, cfg, "https://www.thepetexpress.co.uk/ball.html", `
		<div class="page-header"><h1>Tennis Ball</h1></div>
		<span class="ajax-rrp">£0.00</span><span class="ajax-price-vat">£7.49</span>`, noFetch)

	rows, xerr := transform(t, cfg, p)
	require.Nil(t, xerr)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Variant)
	assert.Equal(t, 7.49, rows[0].Price)
	assert.Nil(t, rows[0].DiscountedPrice)
	assert.Equal(t, extract.DefaultRating, rows[0].Rating)
}

func TestTransformMissingTitleFails(t *testing.T) {
	cfg := ThePetExpress()
	html := strings.Replace(petExpressVariants, `<div class="page-header"><h1>Harringtons Dog Food</h1></div>`, "", 1)
	p := newPage(t, cfg, "https://www.thepetexpress.co.uk/broken.html", html, noFetch)

	rows, xerr := transform(t, cfg, p)
	assert.Nil(t, rows)
	require.NotNil(t, xerr)
	assert.ErrorIs(t, xerr, extract.ErrMissingField)
	assert.Equal(t, "ThePetExpress", xerr.Shop)
}

func TestThePetExpressDiscovery(t *testing.T) {
	listing := func(from, to int) string {
		var b strings.Builder
		b.WriteString(`<div class="pagination--count">48 products</div>`)
		for i := from; i < to; i++ {
			fmt.Fprintf(&b, `<div class="category-page"><a href="/item-%d.html">item</a></div>`, i)
		}
		return b.String()
	}
	pages := map[string]string{
		"https://www.thepetexpress.co.uk/dog-food/?page=1": listing(0, 24),
		"https://www.thepetexpress.co.uk/dog-food/?page=2": listing(24, 48),
	}
	var calls int
	f := fetcherFunc(func(_ context.Context, req *fetch.Request) (*fetch.Response, error) {
		calls++
		body, ok := pages[req.URL]
		if !ok {
			return nil, errors.New("not found")
		}
		return &fetch.Response{URL: req.URL, StatusCode: 200, Body: []byte(body)}, nil
	})

	cfg := ThePetExpress()
	links, err := discovery.Discover(context.Background(), discovery.Env{Shop: cfg.Shop, Fetcher: f}, cfg.Discovery, "dog-food", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, links, 48)
	assert.Equal(t, "https://www.thepetexpress.co.uk/item-0.html", links[0])
}

func TestPetsAtHomeTransform(t *testing.T) {
	cfg := PetsAtHome()
	html := `<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{
		"baseProduct":{"name":"Wagg Complete","description":"Tasty kibble","products":[
			{"label":"2kg","price":{"base":20,"promotionBase":15},"imageUrls":["https://img.test/1.jpg","https://img.test/2.jpg"]},
			{"label":"12kg","price":{"base":40,"promotionBase":null},"imageUrls":[]}
		]},
		"productRating":{"averageRating":4.5}}}}</script>`
	p := newPage(t, cfg, "https://www.petsathome.com/product/wagg-complete/P1", html, noFetch)

	rows, xerr := transform(t, cfg, p)
	require.Nil(t, xerr)
	require.Len(t, rows, 2)

	assert.Equal(t, "/product/wagg-complete/P1", rows[0].URL)
	assert.Equal(t, "4.5/5", rows[0].Rating)
	assert.Equal(t, "Tasty kibble", *rows[0].Description)
	assert.Equal(t, 20.0, rows[0].Price)
	assert.Equal(t, extract.Float(0.25), rows[0].DiscountPercentage)
	assert.Equal(t, []string{"https://img.test/1.jpg", "https://img.test/2.jpg"}, rows[0].ImageURLs)

	assert.Equal(t, "12kg", *rows[1].Variant)
	assert.Nil(t, rows[1].DiscountedPrice)
}

func TestPetsAtHomeNoRating(t *testing.T) {
	cfg := PetsAtHome()
	html := `<script id="__NEXT_DATA__">{"props":{"pageProps":{"baseProduct":{"name":"Bowl","products":[{"label":"","price":{"base":5}}]},"productRating":null}}}</script>`
	p := newPage(t, cfg, "https://www.petsathome.com/product/bowl/P2", html, noFetch)

	rows, xerr := transform(t, cfg, p)
	require.Nil(t, xerr)
	require.Len(t, rows, 1)
	assert.Equal(t, "0/5", rows[0].Rating)
	assert.Nil(t, rows[0].Variant)
	assert.Nil(t, rows[0].Description)
}

func TestZooplusTransformAndNextPage(t *testing.T) {
	cfg := Zooplus()
	html := `
	<div class="ProductListItem_productWrapper__a1">
	  <a class="ProductListItem_productInfoTitleLink__x" href="/shop/dogs/dry_dog_food/wolf/123">Wolf of Wilderness</a>
	  <span class="pp-visually-hidden">Rated 4.5 out of 5 stars</span>
	  <p class="ProductListItem_productInfoDescription__d">Grain free</p>
	  <div class="ProductListItemVariant_variantWrapper__v">
	    <span class="ProductListItemVariant_variantDescription__t">12kg</span>
	    <span data-zta="productReducedPriceRefPriceAmount">£50.00</span>
	    <span class="z-price__amount">£42.50</span>
	  </div>
	  <div class="ProductListItemVariant_variantWrapper__v">
	    <span class="ProductListItemVariant_variantDescription__t">2 x 12kg</span>
	    <span class="z-price__amount">£80.00</span>
	  </div>
	</div>
	<div class="ProductListItem_productWrapper__a1">
	  <a class="ProductListItem_productInfoTitleLink__x" href="/shop/dogs/dry_dog_food/rocco/456">Rocco</a>
	  <div class="ProductListItemVariant_variantWrapper__v">
	    <span class="ProductListItemVariant_variantDescription__t">10kg</span>
	    <span class="z-price__amount">£1,020.99</span>
	  </div>
	</div>
	<a data-zta="paginationNext" href="?p=2">next</a>`
	p := newPage(t, cfg, "https://www.zooplus.co.uk/shop/dogs/dry_dog_food/wolf", html, noFetch)

	rows, xerr := transform(t, cfg, p)
	require.Nil(t, xerr)
	require.Len(t, rows, 3)

	assert.Equal(t, "Wolf of Wilderness", rows[0].Name)
	assert.Equal(t, "/shop/dogs/dry_dog_food/wolf/123", rows[0].URL)
	assert.Equal(t, "4.5/5", rows[0].Rating)
	assert.Equal(t, 50.0, rows[0].Price)
	require.NotNil(t, rows[0].DiscountPercentage)
	assert.InDelta(t, 0.15, *rows[0].DiscountPercentage, 0.0001)
	assert.Equal(t, "2 x 12kg", *rows[1].Variant)
	assert.Nil(t, rows[1].DiscountedPrice)

	assert.Equal(t, "Rocco", rows[2].Name)
	assert.Equal(t, "0/5", rows[2].Rating)
	assert.Equal(t, 1020.99, rows[2].Price)

	assert.Equal(t, "https://www.zooplus.co.uk/shop/dogs/dry_dog_food/wolf?p=2", cfg.NextPage(p.Doc))
	assert.Empty(t, cfg.NextPage(document(t, p.URL, "<p>last page</p>")))
}

func TestFishKeeperTransform(t *testing.T) {
	cfg := FishKeeper(Deps{FeefoMerchantID: "maidenhead-aquatics"})
	html := `<script type="application/ld+json">{"@context":"https://schema.org","@type":"Product",
		"name":"Tetra Pond Sticks","description":"Floating food","mpn":"TPS-1","image":["https://img.test/a.jpg"],
		"offers":{"@type":"AggregateOffer","offers":[
			{"@type":"Offer","name":"1 kg","price":"12.99"},
			{"@type":"Offer","name":"4 kg","price":29.99,"priceSpecification":{"price":34.99}}
		]}}</script>`

	var seen *fetch.Request
	f := fetcherFunc(func(_ context.Context, req *fetch.Request) (*fetch.Response, error) {
		seen = req
		return &fetch.Response{URL: req.URL, StatusCode: 200, Body: []byte(`{"products":[{"rating":4.6}]}`)}, nil
	})
	p := newPage(t, cfg, "https://www.fishkeeper.co.uk/tetra-pond-sticks", html, f)

	rows, xerr := transform(t, cfg, p)
	require.Nil(t, xerr)
	require.Len(t, rows, 2)

	require.NotNil(t, seen)
	assert.Equal(t, feefoRatingsURL, seen.URL)
	assert.Equal(t, "TPS-1", seen.Query["product_sku"])
	assert.Equal(t, "maidenhead-aquatics", seen.Query["merchant_identifier"])

	assert.Equal(t, "4.6/5", rows[0].Rating)
	assert.Equal(t, "1 kg", *rows[0].Variant)
	assert.Equal(t, 12.99, rows[0].Price)
	assert.Nil(t, rows[0].DiscountedPrice)
	assert.Equal(t, 34.99, rows[1].Price)
	assert.Equal(t, extract.Float(29.99), rows[1].DiscountedPrice)
	assert.Equal(t, extract.Float(0.14), rows[1].DiscountPercentage)
	assert.Equal(t, []string{"https://img.test/a.jpg"}, rows[1].ImageURLs)
}

func TestFishKeeperRatingFailureKeepsProduct(t *testing.T) {
	cfg := FishKeeper(Deps{})
	html := `<script type="application/ld+json">{"@type":"Product","name":"Net","mpn":"N1","offers":{"@type":"Offer","price":"3.50"}}</script>`
	failing := fetcherFunc(func(_ context.Context, req *fetch.Request) (*fetch.Response, error) {
		return nil, &fetch.FetchError{URL: req.URL, Attempts: 10, Cause: fetch.ErrStatus}
	})
	p := newPage(t, cfg, "https://www.fishkeeper.co.uk/net", html, failing)

	rows, xerr := transform(t, cfg, p)
	require.Nil(t, xerr)
	require.Len(t, rows, 1)
	assert.Equal(t, "0/5", rows[0].Rating)
	assert.Nil(t, rows[0].Variant)
}

func TestParseAlgolia(t *testing.T) {
	resp := &fetch.Response{Body: []byte(`{"results":[{"hits":[{"url":"https://www.fishkeeper.co.uk/a"},{"url":"/b"},{"url":""}],"nbHits":80,"nbPages":3}]}`)}

	page, err := parseAlgolia(resp)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.fishkeeper.co.uk/a", "https://www.fishkeeper.co.uk/b"}, page.Links)
	assert.Equal(t, 3, page.Pages)
	assert.Equal(t, 80, page.Total)

	req := algoliaRequest(Deps{AlgoliaAppID: "APP", AlgoliaAPIKey: "KEY"})("pond-products", 2, 72, 36)
	assert.Equal(t, "https://app-dsn.algolia.net/1/indexes/*/queries", req.URL)
	assert.Equal(t, "KEY", req.Headers["x-algolia-api-key"])
	body := req.Body.(map[string]any)["requests"].([]map[string]string)[0]
	params, err := url.ParseQuery(body["params"])
	require.NoError(t, err)
	assert.Equal(t, "2", params.Get("page"))
	assert.Equal(t, "36", params.Get("hitsPerPage"))
	assert.Contains(t, params.Get("facetFilters"), "Pond Products")
}

func TestJollyesTransform(t *testing.T) {
	cfg := Jollyes()
	html := `<script type="application/ld+json">{"@type":"Product","name":"Bakers Adult","description":"Beef",
		"aggregateRating":{"ratingValue":"4.2","reviewCount":"10"},"offers":{"@type":"Offer","price":"8.50"},"image":"https://img.test/j.jpg"}</script>`
	p := newPage(t, cfg, "https://www.jollyes.co.uk/bakers-adult.html", html, noFetch)

	rows, xerr := transform(t, cfg, p)
	require.Nil(t, xerr)
	require.Len(t, rows, 1)
	assert.Equal(t, "4.2/5", rows[0].Rating)
	assert.Equal(t, 8.5, rows[0].Price)
	assert.Equal(t, "/bakers-adult.html", rows[0].URL)
	assert.Equal(t, []string{"https://img.test/j.jpg"}, rows[0].ImageURLs)
}

func TestFarmAndPetPlaceTransform(t *testing.T) {
	cfg := FarmAndPetPlace()
	html := `<h1 itemprop="name">Burns Puppy</h1><div class="short-description">Gentle recipe</div>
		<div class="ruk_rating_snippet" data-sku="BRN1"></div>
		<select id="attribute"><option value="2kg">2kg</option><option value="6kg">6kg</option></select>
		<div class="price"><span class="rrp">RRP <strong>£12.00</strong></span><span class="current">Now <strong>£9.00</strong></span></div>`
	f := fetcherFunc(func(_ context.Context, req *fetch.Request) (*fetch.Response, error) {
		if req.URL != feefoSummaryURL || req.Query["parent_product_sku"] != "BRN1" {
			return nil, errors.New("unexpected request")
		}
		return &fetch.Response{URL: req.URL, StatusCode: 200, Body: []byte(`{"rating":{"rating":4.8,"product":{"count":12}}}`)}, nil
	})
	p := newPage(t, cfg, "https://www.farmandpetplace.co.uk/shop/burns-puppy.html", html, f)

	rows, xerr := transform(t, cfg, p)
	require.Nil(t, xerr)
	require.Len(t, rows, 1)
	assert.Equal(t, "4.8/5", rows[0].Rating)
	assert.Equal(t, "2kg", *rows[0].Variant)
	assert.Equal(t, 12.0, rows[0].Price)
	assert.Equal(t, extract.Float(0.25), rows[0].DiscountPercentage)
	assert.Equal(t, "Gentle recipe", *rows[0].Description)
}

func TestOcadoTransform(t *testing.T) {
	cfg := Ocado()
	html := `<div id="main-content">
		<header class="bop-title"><h1>Felix Pouches</h1><span class="bop-catchWeight">12 x 100g</span></header>
		<div class="gn-accordionElement__wrapper"><div class="bop-info__content">Cat food in jelly</div></div>
		<section id="reviews"><span itemprop="ratingValue">4.3</span></section>
		<span class="bop-price__old">£6.00</span>
		<h2 class="bop-price__current"><meta itemprop="price" content="4.50">£4.50</h2>
	</div>`
	p := newPage(t, cfg, "https://www.ocado.com/products/felix-12345", html, noFetch)

	rows, xerr := transform(t, cfg, p)
	require.Nil(t, xerr)
	require.Len(t, rows, 1)
	assert.Equal(t, "12 x 100g", *rows[0].Variant)
	assert.Equal(t, "4.3/5", rows[0].Rating)
	assert.Equal(t, 6.0, rows[0].Price)
	assert.Equal(t, extract.Float(4.5), rows[0].DiscountedPrice)
	assert.Equal(t, extract.Float(0.25), rows[0].DiscountPercentage)

	req := cfg.DetailRequest(p.URL)
	assert.Equal(t, fetch.StrategyBrowser, req.Strategy)
	assert.Equal(t, "#main-content", req.WaitSelector)
}

func TestPetPlanetTransformFollowsVariantPages(t *testing.T) {
	cfg := PetPlanet()
	html := `<h1>James Wellbeloved</h1><div id="nav-description">Turkey and rice</div>
		<div id="ContentPlaceHolder1_ctl00_Product1_ctl02_SummaryPanel"><h3>4.7</h3></div>
		<div class="product-gallery-control"><img src="/img/1.jpg"><img src="/img/2.jpg"></div>
		<div class="row product-option-grid">
		  <a href="/p123/kibble"><div class="h5">2kg</div></a>
		  <a href="/p124/kibble"><div class="h5">15kg</div></a>
		</div>
		<span class="fw-bold fs-4"><span>£20.00</span> £16.00</span>`

	var fetched []string
	f := fetcherFunc(func(_ context.Context, req *fetch.Request) (*fetch.Response, error) {
		fetched = append(fetched, req.URL)
		return &fetch.Response{URL: req.URL, StatusCode: 200, Body: []byte(`<div class="fw-bold fs-4">£55.00</div>`)}, nil
	})
	p := newPage(t, cfg, "https://www.petplanet.co.uk/p123/kibble", html, f)

	rows, xerr := transform(t, cfg, p)
	require.Nil(t, xerr)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"https://www.petplanet.co.uk/p124/kibble"}, fetched)

	assert.Equal(t, "2kg", *rows[0].Variant)
	assert.Equal(t, 20.0, rows[0].Price)
	assert.Equal(t, extract.Float(16), rows[0].DiscountedPrice)
	assert.Equal(t, extract.Float(0.2), rows[0].DiscountPercentage)
	assert.Equal(t, "4.7/5", rows[0].Rating)
	assert.Equal(t, []string{"https://www.petplanet.co.uk/img/1.jpg", "https://www.petplanet.co.uk/img/2.jpg"}, rows[0].ImageURLs)

	assert.Equal(t, "15kg", *rows[1].Variant)
	assert.Equal(t, 55.0, rows[1].Price)
	assert.Nil(t, rows[1].DiscountPercentage)
}

func TestPetPlanetPostbackCursor(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<form><input type="hidden" name="__VIEWSTATE" value="abc"><input type="hidden" name="__EVENTVALIDATION" value="xyz"><input type="hidden" name="other" value="skip"></form><p>Showing 45 items</p>`)
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, `<a class="product-name" href="/p%d/x">p</a>`, i)
	}
	current := fetch.Get("https://www.petplanet.co.uk/d7/dog_food")
	doc := document(t, current.URL, b.String())

	next := petPlanetNext(doc, current)
	require.NotNil(t, next)
	assert.Equal(t, "POST", next.Method)
	assert.Equal(t, current.URL, next.URL)
	assert.Contains(t, next.Headers["Content-Type"], "application/x-www-form-urlencoded")

	form, err := url.ParseQuery(next.Body.(string))
	require.NoError(t, err)
	assert.Equal(t, "abc", form.Get("__VIEWSTATE"))
	assert.Equal(t, "xyz", form.Get("__EVENTVALIDATION"))
	assert.Empty(t, form.Get("other"))
	assert.Equal(t, "40", form.Get(petPlanetMenu+"PageSize1"))

	full := strings.Replace(b.String(), "Showing 45 items", "Showing 20 items", 1)
	assert.Nil(t, petPlanetNext(document(t, current.URL, full), current))
}

func TestDefaultRegistry(t *testing.T) {
	r := Default(Deps{})

	names := r.Names()
	assert.Len(t, names, 8)
	assert.Equal(t, "PetsAtHome", names[0])

	c, err := r.Get("FishKeeper")
	require.NoError(t, err)
	assert.True(t, c.Shop.HasCategory("marine"))

	_, err = r.Get("Nope")
	assert.ErrorIs(t, err, ErrUnknownShop)
}

func TestNewRegistryRejectsInvalid(t *testing.T) {
	valid := func(name string) *Config {
		return &Config{
			Shop:      models.Shop{Name: name, BaseURL: "https://shop.test"},
			Discovery: &discovery.NumberedPagination{},
			Transform: func(context.Context, *Page) ([]models.ProductRecord, error) { return nil, nil },
		}
	}

	_, err := NewRegistry(valid("A"), valid("A"))
	assert.Error(t, err)

	noTransform := valid("B")
	noTransform.Transform = nil
	_, err = NewRegistry(noTransform)
	assert.Error(t, err)

	r, err := NewRegistry(valid("A"), valid("B"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, r.Names())
}

func TestOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shops.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
shops:
  Ocado:
    disabled: true
  Jollyes:
    categories: [dog]
`), 0o644))

	o, err := LoadOverrides(path)
	require.NoError(t, err)

	r := Default(Deps{})
	require.NoError(t, r.Apply(o))
	assert.NotContains(t, r.Names(), "Ocado")
	assert.Len(t, r.All(), 8)

	j, err := r.Get("Jollyes")
	require.NoError(t, err)
	assert.Equal(t, []string{"dog"}, j.Shop.Categories)

	missing, err := LoadOverrides(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, missing.Shops)

	unknown := &Overrides{Shops: map[string]Override{"Nope": {}}}
	assert.ErrorIs(t, r.Apply(unknown), ErrUnknownShop)

	require.NoError(t, os.WriteFile(path, []byte("shops:\n  Ocado:\n    colour: red\n"), 0o644))
	_, err = LoadOverrides(path)
	assert.Error(t, err)
}

func TestFirstCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"48 products", 48, true},
		{"Showing 1–24 of 60 results", 60, true},
		{"Showing all 12 results", 12, true},
		{"1,200 items", 1200, true},
		{"no results", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n, ok := firstCount(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, n)
		})
	}
}
