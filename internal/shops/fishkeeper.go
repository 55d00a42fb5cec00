package shops

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/maltedev/pet-products-scraper/internal/discovery"
	"github.com/maltedev/pet-products-scraper/internal/extract"
	"github.com/maltedev/pet-products-scraper/internal/fetch"
	"github.com/maltedev/pet-products-scraper/internal/models"
)

const (
	fishKeeperURL      = "https://www.fishkeeper.co.uk"
	fishKeeperIndex    = "magento2_livedefault_products"
	fishKeeperPageSize = 36
	feefoRatingsURL    = "https://api.feefo.com/api/10/products/ratings"
)

var fishKeeperFacets = map[string]string{
	"aquarium-products": "Aquarium Products",
	"pond-products":     "Pond Products",
	"marine":            "Marine Products",
}

type algoliaResponse struct {
	Results []struct {
		Hits []struct {
			URL string `json:"url"`
		} `json:"hits"`
		NbHits  int `json:"nbHits"`
		NbPages int `json:"nbPages"`
	} `json:"results"`
}

func FishKeeper(deps Deps) *Config {
	categories := []string{"aquarium-products", "pond-products", "marine"}
	return &Config{
		Shop: models.Shop{
			Name:       "FishKeeper",
			BaseURL:    fishKeeperURL,
			Categories: categories,
		},
		Discovery: &discovery.APIEnumeration{
			PageSize: fishKeeperPageSize,
			Request:  algoliaRequest(deps),
			Parse:    parseAlgolia,
		},
		Transform: fishKeeperTransform(deps),
	}
}

func algoliaRequest(deps Deps) func(category string, page, offset, size int) *fetch.Request {
	endpoint := fmt.Sprintf("https://%s-dsn.algolia.net/1/indexes/*/queries", strings.ToLower(deps.AlgoliaAppID))

	return func(category string, page, _, size int) *fetch.Request {
		params := url.Values{}
		params.Set("page", strconv.Itoa(page))
		params.Set("hitsPerPage", strconv.Itoa(size))
		params.Set("facetFilters", fmt.Sprintf(`["categories.level0:%s"]`, fishKeeperFacets[category]))
		params.Set("numericFilters", `["visibility_catalog=1"]`)

		req := fetch.Post(endpoint, map[string]any{
			"requests": []map[string]string{{
				"indexName": fishKeeperIndex,
				"params":    params.Encode(),
			}},
		})
		req.Headers = map[string]string{
			"Origin":                   fishKeeperURL,
			"Referer":                  fishKeeperURL + "/",
			"Content-Type":             "application/json",
			"x-algolia-api-key":        deps.AlgoliaAPIKey,
			"x-algolia-application-id": deps.AlgoliaAppID,
		}
		return req
	}
}

func parseAlgolia(resp *fetch.Response) (discovery.APIPage, error) {
	var body algoliaResponse
	if err := resp.JSON(&body); err != nil {
		return discovery.APIPage{}, err
	}
	if len(body.Results) == 0 {
		return discovery.APIPage{}, nil
	}

	r := body.Results[0]
	page := discovery.APIPage{Total: r.NbHits, Pages: r.NbPages}
	for _, h := range r.Hits {
		if h.URL != "" {
			page.Links = append(page.Links, extract.Resolve(fishKeeperURL, h.URL))
		}
	}
	return page, nil
}

func fishKeeperTransform(deps Deps) TransformFunc {
	return func(ctx context.Context, p *Page) ([]models.ProductRecord, error) {
		product, err := extract.FindLD(p.Doc, "Product")
		if err != nil {
			return nil, err
		}

		rating := extract.DefaultRating
		if sku := extract.String(product["mpn"]); sku != "" {
			rating = feefoRating(ctx, p.Fetcher, feefoRatingsURL, map[string]string{
				"merchant_identifier": deps.FeefoMerchantID,
				"review_count":        "true",
				"product_sku":         sku,
			}, pickFeefoProductRating)
		}

		return ldRows(p, product, rating)
	}
}

func pickFeefoProductRating(body []byte) (float64, bool) {
	var resp struct {
		Products []struct {
			Rating float64 `json:"rating"`
		} `json:"products"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Products) == 0 {
		return 0, false
	}
	return resp.Products[0].Rating, true
}
