package fetch

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

var defaultHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language": "en-GB,en;q=0.9",
	"Cache-Control":   "no-cache",
}

type HTTPOptions struct {
	Timeout    time.Duration
	UserAgents []string
}

// HTTPFetcher issues plain HTTP requests. Once a request has been answered
// with a challenge, the remaining attempts go through the Cloudflare
// bypass transport.
type HTTPFetcher struct {
	plain      *resty.Client
	bypass     *resty.Client
	userAgents []string
}

func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	plain := resty.New().SetTimeout(opts.Timeout)

	bypass := resty.New().SetTimeout(opts.Timeout)
	bypass.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(bypass.GetClient().Transport)

	return newHTTPFetcher(plain, bypass, opts.UserAgents)
}

func newHTTPFetcher(plain, bypass *resty.Client, userAgents []string) *HTTPFetcher {
	return &HTTPFetcher{
		plain:      plain,
		bypass:     bypass,
		userAgents: userAgents,
	}
}

func (h *HTTPFetcher) Attempt(ctx context.Context, req *Request, st *AttemptState) (*Response, error) {
	client := h.plain
	if st != nil && st.Challenged {
		client = h.bypass
	}

	r := client.R().
		SetContext(ctx).
		SetHeaders(defaultHeaders)

	if len(h.userAgents) > 0 {
		r.SetHeader("User-Agent", h.userAgents[rand.Intn(len(h.userAgents))])
	}
	if len(req.Headers) > 0 {
		r.SetHeaders(req.Headers)
	}
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.method(), req.URL)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body := resp.Body()
	status := resp.StatusCode()

	if IsChallenge(status, body) {
		return nil, fmt.Errorf("%w: %s returned %d", ErrChallenge, req.URL, status)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrStatus, req.URL, status)
	}

	finalURL := req.FullURL()
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		finalURL = raw.Request.URL.String()
	}

	return &Response{
		URL:         finalURL,
		StatusCode:  status,
		ContentType: resp.Header().Get("Content-Type"),
		Body:        body,
	}, nil
}
