package fetch

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/temoto/robotstxt"
)

// RobotsPolicy answers whether a URL may be crawled, loading robots.txt
// once per host. Unreachable robots files allow everything.
type RobotsPolicy struct {
	client *resty.Client
	agent  string
	logger *slog.Logger

	mu    sync.Mutex
	hosts map[string]*robotstxt.Group
}

func NewRobotsPolicy(agent string, timeout time.Duration, logger *slog.Logger) *RobotsPolicy {
	return newRobotsPolicy(resty.New().SetTimeout(timeout), agent, logger)
}

func newRobotsPolicy(client *resty.Client, agent string, logger *slog.Logger) *RobotsPolicy {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsPolicy{
		client: client,
		agent:  agent,
		logger: logger.With("component", "robots"),
		hosts:  make(map[string]*robotstxt.Group),
	}
}

func (p *RobotsPolicy) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	group := p.group(ctx, u)
	if group == nil {
		return true
	}

	path := u.EscapedPath()
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return group.Test(path)
}

func (p *RobotsPolicy) group(ctx context.Context, u *url.URL) *robotstxt.Group {
	p.mu.Lock()
	defer p.mu.Unlock()

	if g, ok := p.hosts[u.Host]; ok {
		return g
	}

	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"
	var group *robotstxt.Group

	resp, err := p.client.R().SetContext(ctx).Get(robotsURL)
	if err != nil {
		p.logger.Warn("failed to load robots.txt", "url", robotsURL, "error", err)
	} else {
		data, err := robotstxt.FromStatusAndBytes(resp.StatusCode(), resp.Body())
		if err != nil {
			p.logger.Warn("failed to parse robots.txt", "url", robotsURL, "error", err)
		} else {
			group = data.FindGroup(p.agent)
		}
	}

	p.hosts[u.Host] = group
	return group
}
