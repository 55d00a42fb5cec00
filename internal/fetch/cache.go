package fetch

import (
	"context"
	"fmt"
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachingFetcher memoizes successful GET responses so a transform that asks
// for the same page twice only pays for one load.
type CachingFetcher struct {
	next  Fetcher
	cache *lru.Cache[string, *Response]
}

func NewCachingFetcher(next Fetcher, size int) (*CachingFetcher, error) {
	if size <= 0 {
		size = 128
	}
	cache, err := lru.New[string, *Response](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	return &CachingFetcher{next: next, cache: cache}, nil
}

func (c *CachingFetcher) Fetch(ctx context.Context, req *Request) (*Response, error) {
	if !cacheable(req) {
		return c.next.Fetch(ctx, req)
	}

	key := req.key()
	if resp, ok := c.cache.Get(key); ok {
		return resp, nil
	}

	resp, err := c.next.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, resp)
	return resp, nil
}

// Purge drops every cached response.
func (c *CachingFetcher) Purge() {
	c.cache.Purge()
}

func (c *CachingFetcher) Len() int {
	return c.cache.Len()
}

func cacheable(req *Request) bool {
	return req != nil && req.method() == http.MethodGet && req.Expand == nil
}
