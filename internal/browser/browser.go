package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/pet-products-scraper/internal/ratelimit"
)

var (
	// ErrChallenge is returned when a bot challenge is still present after waiting.
	ErrChallenge = errors.New("bot challenge not cleared")
)

// StatusError reports a non-2xx navigation response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("navigation returned status %d", e.Code)
}

// Browser owns one launched Chromium. Every Load runs in its own context.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    *Options
	logger  *slog.Logger
}

type Options struct {
	Headless          bool
	Timeout           time.Duration
	UserAgents        []string
	ViewportMinWidth  int
	ViewportMaxWidth  int
	ViewportMinHeight int
	ViewportMaxHeight int
	AcceptLanguage    string
	TimezoneID        string
	Locale            string
	ProxyServer       string
	ExtraHeaders      map[string]string
	PreNavigateMin    time.Duration
	PreNavigateMax    time.Duration
	ChallengeWait     time.Duration
}

func DefaultOptions() *Options {
	return &Options{
		Headless: true,
		Timeout:  30 * time.Second,
		UserAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		},
		ViewportMinWidth:  1280,
		ViewportMaxWidth:  1920,
		ViewportMinHeight: 720,
		ViewportMaxHeight: 1080,
		AcceptLanguage:    "en-GB,en;q=0.9",
		TimezoneID:        "Europe/London",
		Locale:            "en-GB",
		ExtraHeaders: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Encoding": "gzip, deflate, br",
			"DNT":             "1",
		},
		PreNavigateMin: 1 * time.Second,
		PreNavigateMax: 3 * time.Second,
		ChallengeWait:  20 * time.Second,
	}
}

func New(opts *Options) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
		},
	}

	if opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{
			Server: opts.ProxyServer,
		}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &Browser{
		pw:      pw,
		browser: browser,
		opts:    opts,
		logger:  slog.Default().With("component", "browser"),
	}, nil
}

func (b *Browser) Close() error {
	var errs []error

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}

// LoadRequest describes one page load.
type LoadRequest struct {
	URL          string
	Headers      map[string]string
	WaitSelector string
	Expand       *Expansion
	// Challenged is set when an earlier attempt hit a bot challenge; the
	// load then waits longer for the challenge to clear.
	Challenged bool
}

type LoadResult struct {
	URL    string
	Status int
	HTML   string
}

// Load navigates a fresh, isolated context to req.URL and returns the
// rendered HTML. The context is torn down on every path.
func (b *Browser) Load(ctx context.Context, req LoadRequest) (*LoadResult, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	profile := newProfile(rng, b.opts)

	bctx, err := b.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:         playwright.String(profile.UserAgent),
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            playwright.String(b.opts.Locale),
		TimezoneId:        playwright.String(b.opts.TimezoneID),
		Viewport: &playwright.Size{
			Width:  profile.Width,
			Height: profile.Height,
		},
		ExtraHttpHeaders: profile.Headers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	defer func() {
		if err := bctx.Close(); err != nil {
			b.logger.Warn("failed to close browser context", "error", err)
		}
	}()

	if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
		return nil, fmt.Errorf("failed to add init script: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}
	page.SetDefaultTimeout(float64(b.opts.Timeout.Milliseconds()))

	if len(req.Headers) > 0 {
		if err := page.SetExtraHTTPHeaders(req.Headers); err != nil {
			return nil, fmt.Errorf("failed to set headers: %w", err)
		}
	}

	pause := ratelimit.Jitter(b.opts.PreNavigateMin, b.opts.PreNavigateMax)
	b.logger.Debug("sleeping before navigation", "url", req.URL, "sleep", pause)
	if err := ratelimit.Sleep(ctx, pause); err != nil {
		return nil, err
	}

	resp, err := page.Goto(req.URL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(b.opts.Timeout.Milliseconds())),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}

	status := 0
	if resp != nil {
		status = resp.Status()
	}

	title, err := page.Title()
	if err != nil {
		return nil, fmt.Errorf("failed to get page title: %w", err)
	}

	switch classifyLoad(title, status) {
	case loadChallenge:
		wait := b.opts.ChallengeWait
		if req.Challenged {
			wait *= 2
		}
		b.logger.Info("bot challenge detected, waiting", "url", req.URL, "status", status, "wait", wait)
		if !b.waitForChallenge(ctx, page, title, wait) {
			return nil, fmt.Errorf("%w: %s", ErrChallenge, req.URL)
		}
		status = http.StatusOK
	case loadRejected:
		return nil, &StatusError{Code: status}
	}

	if req.WaitSelector != "" {
		if _, err := page.WaitForSelector(req.WaitSelector, playwright.PageWaitForSelectorOptions{
			Timeout: playwright.Float(float64(b.opts.Timeout.Milliseconds())),
		}); err != nil {
			return nil, fmt.Errorf("selector %q not found: %w", req.WaitSelector, err)
		}
	}

	if err := b.HumanizeInteraction(ctx, page, newHumanPlan(rng, profile.Width, profile.Height)); err != nil {
		return nil, err
	}

	if req.Expand != nil {
		if err := b.expand(ctx, page, req.Expand); err != nil {
			return nil, err
		}
	}

	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to get page content: %w", err)
	}

	return &LoadResult{URL: page.URL(), Status: status, HTML: html}, nil
}

type loadOutcome int

const (
	loadOK loadOutcome = iota
	loadChallenge
	loadRejected
)

// classifyLoad decides how to treat a page right after navigation. Only an
// interstitial title is worth waiting on; any other error status is final.
func classifyLoad(title string, status int) loadOutcome {
	switch {
	case IsChallengeTitle(title):
		return loadChallenge
	case status >= 400:
		return loadRejected
	default:
		return loadOK
	}
}

// challengeCleared reports whether the page moved on from the interstitial
// it was first served.
func challengeCleared(initial, current string) bool {
	return IsChallengeTitle(initial) && current != "" && !IsChallengeTitle(current)
}

func (b *Browser) waitForChallenge(ctx context.Context, page playwright.Page, initial string, wait time.Duration) bool {
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		if err := ratelimit.Sleep(ctx, time.Second); err != nil {
			return false
		}
		title, err := page.Title()
		if err != nil {
			continue
		}
		if challengeCleared(initial, title) {
			return true
		}
	}
	return false
}

// IsChallengeTitle matches the interstitial titles used by Cloudflare.
func IsChallengeTitle(title string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	return strings.HasPrefix(t, "just a moment") ||
		strings.Contains(t, "attention required") ||
		strings.Contains(t, "checking your browser")
}
