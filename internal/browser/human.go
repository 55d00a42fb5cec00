package browser

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/pet-products-scraper/internal/ratelimit"
)

const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'languages', { get: () => ['en-GB', 'en'] });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
window.chrome = window.chrome || { runtime: {} };
`

// profile is the randomized identity of one browser context.
type profile struct {
	UserAgent string
	Width     int
	Height    int
	Headers   map[string]string
}

func newProfile(rng *rand.Rand, opts *Options) profile {
	p := profile{
		Width:   between(rng, opts.ViewportMinWidth, opts.ViewportMaxWidth),
		Height:  between(rng, opts.ViewportMinHeight, opts.ViewportMaxHeight),
		Headers: make(map[string]string, len(opts.ExtraHeaders)+1),
	}
	if len(opts.UserAgents) > 0 {
		p.UserAgent = opts.UserAgents[rng.Intn(len(opts.UserAgents))]
	}
	for k, v := range opts.ExtraHeaders {
		p.Headers[k] = v
	}
	if opts.AcceptLanguage != "" {
		p.Headers["Accept-Language"] = opts.AcceptLanguage
	}
	return p
}

type mouseMove struct {
	X, Y  float64
	Steps int
}

// humanPlan is a randomized sequence of scrolls, mouse moves and pauses.
type humanPlan struct {
	Scrolls []int
	Moves   []mouseMove
	Pauses  []time.Duration
}

func newHumanPlan(rng *rand.Rand, width, height int) humanPlan {
	var plan humanPlan

	for i, n := 0, between(rng, 3, 6); i < n; i++ {
		plan.Scrolls = append(plan.Scrolls, between(rng, 300, 700))
	}
	for i, n := 0, between(rng, 5, 10); i < n; i++ {
		plan.Moves = append(plan.Moves, mouseMove{
			X:     float64(rng.Intn(max(width, 1))),
			Y:     float64(rng.Intn(max(height, 1))),
			Steps: between(rng, 5, 20),
		})
	}
	for i := 0; i < len(plan.Scrolls)+len(plan.Moves); i++ {
		plan.Pauses = append(plan.Pauses, time.Duration(between(rng, 500, 1000))*time.Millisecond)
	}

	return plan
}

func between(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

// HumanizeInteraction scrolls and moves the mouse following plan.
func (b *Browser) HumanizeInteraction(ctx context.Context, page playwright.Page, plan humanPlan) error {
	pause := 0
	next := func() error {
		if pause >= len(plan.Pauses) {
			return nil
		}
		d := plan.Pauses[pause]
		pause++
		return ratelimit.Sleep(ctx, d)
	}

	for _, dy := range plan.Scrolls {
		if err := page.Mouse().Wheel(0, float64(dy)); err != nil {
			b.logger.Debug("scroll failed", "error", err)
		}
		if err := next(); err != nil {
			return err
		}
	}

	for _, m := range plan.Moves {
		if err := page.Mouse().Move(m.X, m.Y, playwright.MouseMoveOptions{Steps: playwright.Int(m.Steps)}); err != nil {
			b.logger.Debug("mouse move failed", "error", err)
		}
		if err := next(); err != nil {
			return err
		}
	}

	return nil
}

// Expansion drives a listing that grows on scroll or on a "load more" click.
type Expansion struct {
	// ItemSelector counts listed items; growth stopping ends the loop.
	ItemSelector string
	// LoadMoreSelector is clicked while visible. Empty means scroll to bottom.
	LoadMoreSelector string
	MaxRounds        int
	Pause            time.Duration
}

func (b *Browser) expand(ctx context.Context, page playwright.Page, e *Expansion) error {
	rounds := e.MaxRounds
	if rounds <= 0 {
		rounds = 200
	}
	pause := e.Pause
	if pause <= 0 {
		pause = 1500 * time.Millisecond
	}

	prev, err := page.Locator(e.ItemSelector).Count()
	if err != nil {
		return fmt.Errorf("failed to count items: %w", err)
	}

	for round := 0; round < rounds; round++ {
		if e.LoadMoreSelector != "" {
			button := page.Locator(e.LoadMoreSelector).First()
			visible, err := button.IsVisible()
			if err != nil || !visible {
				break
			}
			if err := button.Click(); err != nil {
				b.logger.Debug("load more click failed", "error", err)
				break
			}
		} else if _, err := page.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`); err != nil {
			return fmt.Errorf("failed to scroll: %w", err)
		}

		if err := ratelimit.Sleep(ctx, pause); err != nil {
			return err
		}

		cur, err := page.Locator(e.ItemSelector).Count()
		if err != nil {
			return fmt.Errorf("failed to count items: %w", err)
		}
		b.logger.Debug("expanded listing", "round", round+1, "items", cur)
		if cur <= prev {
			break
		}
		prev = cur
	}

	return nil
}
