package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	browser "github.com/EDDYCJY/fake-useragent"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/temoto/robotstxt"
)

// ClientConfig configures the shared fetch layer.
type ClientConfig struct {
	Timeout         time.Duration `json:"timeout"`
	MaxRetries      int           `json:"max_retries"`
	HostMinInterval time.Duration `json:"host_min_interval"`
	RespectRobots   bool          `json:"respect_robots"`
	Proxies         []string      `json:"proxies"`
	ExtraUserAgents []string      `json:"extra_user_agents"`
}

// DefaultClientConfig returns default fetch behavior
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Timeout:         30 * time.Second,
		MaxRetries:      3,
		HostMinInterval: 500 * time.Millisecond,
		RespectRobots:   true,
	}
}

// Client is the HTTP fetch layer shared by the synchronous adapters. It
// rotates user agents, paces requests per host with jitter, retries
// throttling and transient server errors with bounded exponential backoff,
// and optionally honors robots.txt.
type Client struct {
	http   *resty.Client
	config *ClientConfig

	lastRequest map[string]time.Time
	paceMu      sync.Mutex

	robots   map[string]*robotstxt.RobotsData
	robotsMu sync.Mutex
}

// NewClient creates a fetch client
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultClientConfig()
	}

	httpClient := resty.New().
		SetTimeout(config.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	// Proxy choice is per client, not per request: resty configures the
	// transport, so rotating mid-flight would race with in-flight calls.
	if len(config.Proxies) > 0 {
		proxy := config.Proxies[rand.Intn(len(config.Proxies))]
		if !strings.HasPrefix(proxy, "http") {
			proxy = "http://" + proxy
		}
		httpClient.SetProxy(proxy)
	}

	return &Client{
		http:        httpClient,
		config:      config,
		lastRequest: make(map[string]time.Time),
		robots:      make(map[string]*robotstxt.RobotsData),
	}
}

// UserAgent returns a rotating user agent string, preferring the configured
// pool when one is present.
func (c *Client) UserAgent() string {
	if len(c.config.ExtraUserAgents) > 0 && rand.Intn(2) == 0 {
		return c.config.ExtraUserAgents[rand.Intn(len(c.config.ExtraUserAgents))]
	}
	return browser.Random()
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"User-Agent":                c.UserAgent(),
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.5",
		"DNT":                       "1",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
	}
}

// paceHost blocks until the per-host minimum interval has elapsed since the
// previous request to host, plus a small jitter to de-sync workers.
func (c *Client) paceHost(ctx context.Context, host string) error {
	c.paceMu.Lock()
	last := c.lastRequest[host]
	wait := c.config.HostMinInterval - time.Since(last)
	if wait > 0 {
		wait += time.Duration(rand.Int63n(int64(100 * time.Millisecond)))
	}
	c.lastRequest[host] = time.Now().Add(wait)
	c.paceMu.Unlock()

	if wait <= 0 {
		return nil
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// allowed consults the cached robots.txt for the URL's host. Missing or
// unreachable robots.txt allows the fetch.
func (c *Client) allowed(ctx context.Context, rawURL string) bool {
	if !c.config.RespectRobots {
		return true
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	base := parsed.Scheme + "://" + parsed.Host

	c.robotsMu.Lock()
	data, cached := c.robots[base]
	c.robotsMu.Unlock()

	if !cached {
		resp, err := c.http.R().SetContext(ctx).Get(base + "/robots.txt")
		if err != nil || resp.StatusCode() != http.StatusOK {
			data = nil
		} else if parsedRobots, perr := robotstxt.FromBytes(resp.Body()); perr == nil {
			data = parsedRobots
		}
		c.robotsMu.Lock()
		c.robots[base] = data
		c.robotsMu.Unlock()
	}

	if data == nil {
		return true
	}
	return data.TestAgent(parsed.Path, "TuitionCollector")
}

// retryable reports whether a status code indicates throttling or a
// transient server failure.
func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable:
		return true
	}
	return false
}

// backoffDelay computes the exponential backoff for an attempt, capped and
// with jitter.
func backoffDelay(attempt int, cap time.Duration) time.Duration {
	delay := time.Duration(1<<uint(attempt)) * time.Second
	if delay > cap {
		delay = cap
	}
	return delay + time.Duration(rand.Int63n(int64(time.Second)))
}

// FetchPage fetches a URL and returns its body. Throttling (429) and
// transient server errors (500/502/503) are retried with bounded
// exponential backoff; timeouts likewise with a lower cap. Exhausted
// retries and non-retryable statuses return an empty body and no error;
// the page simply yields nothing.
func (c *Client) FetchPage(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	if !c.allowed(ctx, rawURL) {
		log.Debug().Str("url", rawURL).Msg("Skipping disallowed URL")
		return "", nil
	}

	for attempt := 0; ; attempt++ {
		if err := c.paceHost(ctx, parsed.Host); err != nil {
			return "", err
		}

		resp, err := c.http.R().SetContext(ctx).SetHeaders(c.headers()).Get(rawURL)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if attempt >= c.config.MaxRetries {
				log.Warn().Str("url", rawURL).Err(err).Msg("Giving up after retries")
				return "", nil
			}
			delay := backoffDelay(attempt, 15*time.Second)
			log.Warn().
				Str("host", parsed.Host).
				Dur("backoff", delay).
				Int("attempt", attempt+1).
				Err(err).
				Msg("Request failed, backing off")
			if !sleepCtx(ctx, delay) {
				return "", ctx.Err()
			}
			continue
		}

		status := resp.StatusCode()
		if status == http.StatusOK {
			return string(resp.Body()), nil
		}

		if retryable(status) {
			if attempt >= c.config.MaxRetries {
				log.Warn().
					Str("host", parsed.Host).
					Int("max_retries", c.config.MaxRetries).
					Msg("Giving up after retries")
				return "", nil
			}
			delay := backoffDelay(attempt, 30*time.Second)
			log.Warn().
				Int("status", status).
				Str("host", parsed.Host).
				Dur("backoff", delay).
				Int("attempt", attempt+1).
				Msg("Throttled, backing off")
			if !sleepCtx(ctx, delay) {
				return "", ctx.Err()
			}
			continue
		}

		log.Warn().Int("status", status).Str("url", rawURL).Msg("Unexpected status")
		return "", nil
	}
}

// GetJSON performs a GET with query parameters and decodes the response
// into out. It is used by the metered API adapter; retry policy there is
// credential rotation, not local backoff, so this returns the status code
// and lets the caller decide.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params map[string]string, out interface{}) (int, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(out).
		Get(rawURL)
	if err != nil {
		return 0, fmt.Errorf("api request: %w", err)
	}
	return resp.StatusCode(), nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
