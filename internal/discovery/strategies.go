package discovery

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/pet-products-scraper/internal/fetch"
)

// NumberedPagination reads a total from page one and fetches the remaining
// numbered pages. Without Total or Pages it keeps going until a page adds
// no new links.
type NumberedPagination struct {
	PageURL      func(category string, page int) string
	Total        func(doc *goquery.Document) (int, bool)
	Pages        func(doc *goquery.Document) (int, bool)
	PageSize     int
	Links        Links
	Strategy     fetch.Strategy
	WaitSelector string
	MaxPages     int
}

func (n *NumberedPagination) Kind() string { return "numbered_pagination" }

func (n *NumberedPagination) request(category string, page int) *fetch.Request {
	req := fetch.Get(n.PageURL(category, page))
	req.Strategy = n.Strategy
	req.WaitSelector = n.WaitSelector
	return req
}

func (n *NumberedPagination) Discover(ctx context.Context, env Env, category string) ([]string, error) {
	first, err := fetchDocument(ctx, env, n.request(category, 1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		env.Logger.Warn("first listing page unavailable", "error", err)
		return nil, nil
	}

	c := newCollector()
	c.add(n.Links.Extract(first, env.Shop.BaseURL))

	pages, known := 0, false
	if n.Total != nil {
		if total, ok := n.Total(first); ok {
			pages, known = ceilDiv(total, n.PageSize), true
		}
	}
	if !known && n.Pages != nil {
		pages, known = n.Pages(first)
	}

	if known {
		if pages > maxPages(n.MaxPages) {
			pages = maxPages(n.MaxPages)
		}
		for page := 2; page <= pages; page++ {
			doc, err := fetchDocument(ctx, env, n.request(category, page))
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				env.Logger.Warn("listing page unavailable", "page", page, "error", err)
				continue
			}
			c.add(n.Links.Extract(doc, env.Shop.BaseURL))
		}
		return c.links, nil
	}

	if len(c.links) == 0 {
		return nil, nil
	}
	for page := 2; page <= maxPages(n.MaxPages); page++ {
		doc, err := fetchDocument(ctx, env, n.request(category, page))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			env.Logger.Warn("listing page unavailable, stopping", "page", page, "error", err)
			break
		}
		if c.add(n.Links.Extract(doc, env.Shop.BaseURL)) == 0 {
			break
		}
	}
	return c.links, nil
}

// CursorPagination follows an explicit next-page affordance, which may be a
// plain link or a request with its own parameters, until it disappears.
type CursorPagination struct {
	Start    func(category string) *fetch.Request
	Next     func(doc *goquery.Document, current *fetch.Request) *fetch.Request
	Links    Links
	MaxPages int
}

func (c *CursorPagination) Kind() string { return "cursor_pagination" }

func (c *CursorPagination) Discover(ctx context.Context, env Env, category string) ([]string, error) {
	col := newCollector()
	visited := make(map[string]bool)

	req := c.Start(category)
	for page := 1; req != nil && page <= maxPages(c.MaxPages); page++ {
		key := fmt.Sprintf("%s %s %v", req.Method, req.FullURL(), req.Body)
		if visited[key] {
			env.Logger.Debug("next page already visited", "url", req.URL)
			break
		}
		visited[key] = true

		doc, err := fetchDocument(ctx, env, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			env.Logger.Warn("listing page unavailable, stopping", "page", page, "url", req.URL, "error", err)
			break
		}

		if col.add(c.Links.Extract(doc, env.Shop.BaseURL)) == 0 && page > 1 {
			break
		}
		if c.Next == nil {
			break
		}
		req = c.Next(doc, req)
	}

	return col.links, nil
}

// APIPage is one parsed response of a listing API.
type APIPage struct {
	Links []string
	// Total is the declared number of items, 0 when unknown.
	Total int
	// Pages is the declared number of pages, 0 when unknown.
	Pages int
}

// APIEnumeration pages through a search or listing API by page/offset.
type APIEnumeration struct {
	PageSize int
	Request  func(category string, page, offset, size int) *fetch.Request
	Parse    func(resp *fetch.Response) (APIPage, error)
	MaxPages int
}

func (a *APIEnumeration) Kind() string { return "api_enumeration" }

func (a *APIEnumeration) Discover(ctx context.Context, env Env, category string) ([]string, error) {
	col := newCollector()
	offset := 0

	for page := 0; page < maxPages(a.MaxPages); page++ {
		resp, err := env.Fetcher.Fetch(ctx, a.Request(category, page, offset, a.PageSize))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			env.Logger.Warn("listing api unavailable, stopping", "page", page, "error", err)
			break
		}

		result, err := a.Parse(resp)
		if err != nil {
			env.Logger.Warn("listing api response unreadable, stopping", "page", page, "error", err)
			break
		}
		if len(result.Links) == 0 {
			break
		}

		col.add(result.Links)
		offset += len(result.Links)

		if result.Pages > 0 && page+1 >= result.Pages {
			break
		}
		if result.Total > 0 && offset >= result.Total {
			break
		}
	}

	return col.links, nil
}

// InfiniteScroll loads a listing in the browser, expands it until it stops
// growing and parses the expanded page once.
type InfiniteScroll struct {
	URL              func(category string) string
	ItemSelector     string
	LoadMoreSelector string
	WaitSelector     string
	MaxRounds        int
	Links            Links
}

func (s *InfiniteScroll) Kind() string { return "infinite_scroll" }

func (s *InfiniteScroll) Discover(ctx context.Context, env Env, category string) ([]string, error) {
	req := fetch.Get(s.URL(category))
	req.Strategy = fetch.StrategyBrowser
	req.WaitSelector = s.WaitSelector
	req.Expand = &fetch.Expansion{
		ItemSelector:     s.ItemSelector,
		LoadMoreSelector: s.LoadMoreSelector,
		MaxRounds:        s.MaxRounds,
	}

	doc, err := fetchDocument(ctx, env, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		env.Logger.Warn("listing unavailable", "error", err)
		return nil, nil
	}

	return s.Links.Extract(doc, env.Shop.BaseURL), nil
}
