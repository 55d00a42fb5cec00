package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/maltedev/pet-products-scraper/internal/browser"
)

// PageLoader is satisfied by *browser.Browser.
type PageLoader interface {
	Load(ctx context.Context, req browser.LoadRequest) (*browser.LoadResult, error)
}

type BrowserFetcher struct {
	loader PageLoader
}

func NewBrowserFetcher(loader PageLoader) *BrowserFetcher {
	return &BrowserFetcher{loader: loader}
}

func (b *BrowserFetcher) Attempt(ctx context.Context, req *Request, st *AttemptState) (*Response, error) {
	res, err := b.loader.Load(ctx, browser.LoadRequest{
		URL:          req.FullURL(),
		Headers:      req.Headers,
		WaitSelector: req.WaitSelector,
		Expand:       req.Expand,
		Challenged:   st != nil && st.Challenged,
	})
	if err != nil {
		var se *browser.StatusError
		switch {
		case errors.Is(err, browser.ErrChallenge):
			return nil, fmt.Errorf("%w: %v", ErrChallenge, err)
		case errors.As(err, &se):
			return nil, fmt.Errorf("%w: %s returned %d", ErrStatus, req.URL, se.Code)
		}
		return nil, err
	}

	return &Response{
		URL:         res.URL,
		StatusCode:  res.Status,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(res.HTML),
	}, nil
}
