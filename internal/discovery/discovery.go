// Package discovery enumerates product-detail URLs from a shop's category
// listings.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/pet-products-scraper/internal/extract"
	"github.com/maltedev/pet-products-scraper/internal/fetch"
	"github.com/maltedev/pet-products-scraper/internal/models"
)

var ErrInvalidCategory = errors.New("invalid category")

const defaultMaxPages = 500

// Env is what a strategy needs to walk one category.
type Env struct {
	Shop    models.Shop
	Fetcher fetch.Fetcher
	Logger  *slog.Logger
}

// Strategy walks the listing pages of one category.
type Strategy interface {
	Kind() string
	Discover(ctx context.Context, env Env, category string) ([]string, error)
}

// Discover validates category against the shop and runs the strategy.
// allowed, when non-nil, drops links it rejects.
func Discover(ctx context.Context, env Env, s Strategy, category string, allowed func(context.Context, string) bool) ([]string, error) {
	if !env.Shop.HasCategory(category) {
		return nil, fmt.Errorf("%w: %q is not one of %v", ErrInvalidCategory, category, env.Shop.Categories)
	}
	if env.Logger == nil {
		env.Logger = slog.Default()
	}
	env.Logger = env.Logger.With("category", category, "strategy", s.Kind())

	links, err := s.Discover(ctx, env, category)
	if err != nil {
		return nil, err
	}

	if allowed != nil {
		kept := links[:0]
		for _, l := range links {
			if allowed(ctx, l) {
				kept = append(kept, l)
			}
		}
		links = kept
	}

	env.Logger.Info("category discovered", "links", len(links))
	return links, nil
}

// Links selects product links from a listing page.
type Links struct {
	// Selector matches the elements carrying the link.
	Selector string
	// Attr defaults to href.
	Attr string
	// Include, when set, keeps only links it accepts.
	Include func(link string) bool
	// Exclude lists substrings of links to drop, e.g. cross-listed brand pages.
	Exclude []string
	// KeepQuery keeps query strings and fragments on discovered links.
	KeepQuery bool
}

// Extract returns absolute, de-duplicated links in page order.
func (l Links) Extract(doc *goquery.Document, base string) []string {
	if doc.Url != nil {
		base = doc.Url.String()
	}
	attr := l.Attr
	if attr == "" {
		attr = "href"
	}

	seen := make(map[string]bool)
	var out []string
	doc.Find(l.Selector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr(attr)
		if !ok {
			return
		}
		link := extract.Resolve(base, href)
		if link == "" {
			return
		}
		if !l.KeepQuery {
			link = extract.StripQuery(link)
		}
		if l.excluded(link) || seen[link] {
			return
		}
		seen[link] = true
		out = append(out, link)
	})
	return out
}

func (l Links) excluded(link string) bool {
	if l.Include != nil && !l.Include(link) {
		return true
	}
	for _, x := range l.Exclude {
		if strings.Contains(link, x) {
			return true
		}
	}
	return false
}

// collector keeps links unique across pages while preserving order.
type collector struct {
	seen  map[string]bool
	links []string
}

func newCollector() *collector {
	return &collector{seen: make(map[string]bool)}
}

func (c *collector) add(links []string) int {
	added := 0
	for _, l := range links {
		if c.seen[l] {
			continue
		}
		c.seen[l] = true
		c.links = append(c.links, l)
		added++
	}
	return added
}

func fetchDocument(ctx context.Context, env Env, req *fetch.Request) (*goquery.Document, error) {
	resp, err := env.Fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Document()
}

func maxPages(n int) int {
	if n <= 0 {
		return defaultMaxPages
	}
	return n
}

// ceilDiv is the number of pages needed for total items at size per page.
func ceilDiv(total, size int) int {
	if size <= 0 {
		return 1
	}
	return (total + size - 1) / size
}
