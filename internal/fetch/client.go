package fetch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/maltedev/pet-products-scraper/internal/metrics"
	"github.com/maltedev/pet-products-scraper/internal/ratelimit"
)

// AttemptState carries what earlier attempts of one request learned.
type AttemptState struct {
	Attempt    int
	Challenged bool
}

// Attempter performs exactly one try of a request.
type Attempter interface {
	Attempt(ctx context.Context, req *Request, st *AttemptState) (*Response, error)
}

// Client routes requests to the HTTP or browser strategy and wraps each in
// the retry policy.
type Client struct {
	http     Attempter
	browser  Attempter
	retrier  *Retrier
	limiters *ratelimit.OriginLimiters
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type ClientOptions struct {
	HTTP     Attempter
	Browser  Attempter
	Retrier  *Retrier
	Limiters *ratelimit.OriginLimiters
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

func NewClient(opts ClientOptions) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retrier := opts.Retrier
	if retrier == nil {
		retrier = NewRetrier(10, time.Second, 3*time.Second, logger)
	}
	return &Client{
		http:     opts.HTTP,
		browser:  opts.Browser,
		retrier:  retrier,
		limiters: opts.Limiters,
		metrics:  opts.Metrics,
		logger:   logger.With("component", "fetch"),
	}
}

func (c *Client) Fetch(ctx context.Context, req *Request) (*Response, error) {
	if err := req.validate(); err != nil {
		return nil, &FetchError{URL: req.URL, Cause: err}
	}

	attempter := c.http
	if req.Strategy == StrategyBrowser {
		attempter = c.browser
	}
	if attempter == nil {
		return nil, &FetchError{URL: req.URL, Cause: ErrNoBrowser}
	}

	var limiter *ratelimit.AdaptiveRateLimiter
	if c.limiters != nil {
		limiter = c.limiters.For(req.URL)
	}

	st := &AttemptState{}
	var resp *Response

	attempts, err := c.retrier.Do(ctx, func(ctx context.Context, attempt int) error {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return Permanent(err)
			}
		}

		st.Attempt = attempt
		start := time.Now()
		r, err := attempter.Attempt(ctx, req, st)
		elapsed := time.Since(start)

		outcome := outcomeLabel(err)
		c.metrics.ObserveFetch(req.Strategy.String(), outcome, elapsed)
		c.logger.Debug("fetch attempt",
			"url", req.URL,
			"method", req.method(),
			"strategy", req.Strategy.String(),
			"attempt", attempt,
			"outcome", outcome,
			"duration", elapsed)

		if err != nil {
			if errors.Is(err, ErrChallenge) {
				st.Challenged = true
			}
			if limiter != nil {
				limiter.RecordError()
			}
			return err
		}

		if limiter != nil {
			limiter.RecordSuccess()
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, &FetchError{URL: req.URL, Attempts: attempts, Cause: err}
	}

	return resp, nil
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrChallenge):
		return "challenge"
	case errors.Is(err, ErrStatus):
		return "status"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
