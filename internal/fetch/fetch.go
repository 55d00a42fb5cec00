// Package fetch performs single page or API loads with bounded retries,
// courtesy delays and bot-challenge escalation.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/maltedev/pet-products-scraper/internal/browser"
)

var (
	ErrStatus    = errors.New("unexpected status")
	ErrChallenge = errors.New("bot challenge")
	ErrNoBrowser = errors.New("browser strategy not configured")
)

// FetchError is returned once every attempt for a request has failed.
type FetchError struct {
	URL      string
	Attempts int
	Cause    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

type Strategy int

const (
	StrategyHTTP Strategy = iota
	StrategyBrowser
)

func (s Strategy) String() string {
	switch s {
	case StrategyBrowser:
		return "browser"
	default:
		return "http"
	}
}

type Expansion = browser.Expansion

// Request is one logical fetch. Body may be []byte, string, or any value
// that resty serializes as JSON.
type Request struct {
	Method       string
	URL          string
	Query        map[string]string
	Body         any
	Headers      map[string]string
	Strategy     Strategy
	WaitSelector string
	Expand       *Expansion
}

func Get(u string) *Request {
	return &Request{Method: http.MethodGet, URL: u}
}

func Post(u string, body any) *Request {
	return &Request{Method: http.MethodPost, URL: u, Body: body}
}

func (r *Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

// FullURL is URL with Query merged in.
func (r *Request) FullURL() string {
	if len(r.Query) == 0 {
		return r.URL
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}
	q := u.Query()
	for k, v := range r.Query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (r *Request) key() string {
	var b strings.Builder
	b.WriteString(r.Strategy.String())
	b.WriteByte(' ')
	b.WriteString(r.method())
	b.WriteByte(' ')
	b.WriteString(r.FullURL())

	if len(r.Headers) > 0 {
		keys := make([]string, 0, len(r.Headers))
		for k := range r.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%s", k, r.Headers[k])
		}
	}
	return b.String()
}

func (r *Request) validate() error {
	if r == nil || r.URL == "" {
		return errors.New("request url is empty")
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", r.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url %q: unsupported scheme", r.URL)
	}
	if r.Strategy == StrategyBrowser && r.method() != http.MethodGet {
		return fmt.Errorf("browser strategy only supports GET, got %s", r.method())
	}
	return nil
}

type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Document parses the body as HTML, decoding non-UTF-8 charsets.
func (r *Response) Document() (*goquery.Document, error) {
	reader, err := charset.NewReader(bytes.NewReader(r.Body), r.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode body: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	if u, err := url.Parse(r.URL); err == nil {
		doc.Url = u
	}
	return doc, nil
}

func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode json from %s: %w", r.URL, err)
	}
	return nil
}

// Fetcher is the contract every component fetches through.
type Fetcher interface {
	Fetch(ctx context.Context, req *Request) (*Response, error)
}

// Document fetches req and parses the result as HTML.
func Document(ctx context.Context, f Fetcher, req *Request) (*goquery.Document, error) {
	resp, err := f.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Document()
}

// JSON fetches req and decodes the body into v.
func JSON(ctx context.Context, f Fetcher, req *Request, v any) error {
	resp, err := f.Fetch(ctx, req)
	if err != nil {
		return err
	}
	return resp.JSON(v)
}

// IsChallenge reports whether a response looks like a Cloudflare interstitial.
func IsChallenge(status int, body []byte) bool {
	if status == http.StatusForbidden {
		return true
	}

	head := body
	if len(head) > 4096 {
		head = head[:4096]
	}
	lower := bytes.ToLower(head)

	if status == http.StatusServiceUnavailable &&
		(bytes.Contains(lower, []byte("cf-chl")) || bytes.Contains(lower, []byte("cloudflare"))) {
		return true
	}

	return bytes.Contains(lower, []byte("<title>just a moment..."))
}
