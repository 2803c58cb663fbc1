// Package browser runs isolated headless-browser sessions against tutoring
// platforms and harvests listing data from the JSON API calls the pages
// make, rather than from the rendered markup.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/tuitiondata/collector/internal/scraper"
	"github.com/tuitiondata/collector/pkg/listing"
)

// ErrBlocked reports that the target served a blocking status; the caller
// should fall back to the search API for this query.
var ErrBlocked = errors.New("platform blocked the session")

// SessionConfig configures one browser session.
type SessionConfig struct {
	Headless       bool          `json:"headless"`
	NavTimeout     time.Duration `json:"nav_timeout"`
	SettleDelay    time.Duration `json:"settle_delay"`
	PerSourceLimit int           `json:"per_source_limit"`
	Proxies        []string      `json:"proxies"`
	UserAgents     []string      `json:"user_agents"`
}

// DefaultSessionConfig returns default browser session behavior
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		Headless:       true,
		NavTimeout:     30 * time.Second,
		SettleDelay:    2 * time.Second,
		PerSourceLimit: 25,
	}
}

// Minimal built-in pool; operators extend it via USER_AGENTS.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

func (c *SessionConfig) userAgent() string {
	pool := defaultUserAgents
	if len(c.UserAgents) > 0 {
		pool = append(append([]string{}, pool...), c.UserAgents...)
	}
	return pool[rand.Intn(len(pool))]
}

func (c *SessionConfig) proxy() string {
	if len(c.Proxies) == 0 {
		return ""
	}
	proxy := c.Proxies[rand.Intn(len(c.Proxies))]
	if !strings.HasPrefix(proxy, "http") {
		proxy = "http://" + proxy
	}
	return proxy
}

// platformURL is one candidate page for a (subject, city) pair.
type platformURL struct {
	domain string
	url    string
}

// candidateURLs builds the platform pages to visit for a pair.
func candidateURLs(subject, city string) []platformURL {
	subjectSlug := strings.ReplaceAll(strings.ToLower(subject), " ", "-")
	citySlug := strings.ReplaceAll(strings.ToLower(city), " ", "-")
	return []platformURL{
		{domain: "superprof", url: fmt.Sprintf("https://www.superprof.co.in/lessons/%s/%s.html", subjectSlug, citySlug)},
		{domain: "urbanpro", url: fmt.Sprintf("https://www.urbanpro.com/%s/in-%s", subjectSlug, citySlug)},
	}
}

// payloadCapture accumulates decoded JSON objects seen on the wire.
type payloadCapture struct {
	mu       sync.Mutex
	payloads []map[string]interface{}
}

func (pc *payloadCapture) add(items []map[string]interface{}) {
	pc.mu.Lock()
	pc.payloads = append(pc.payloads, items...)
	pc.mu.Unlock()
}

func (pc *payloadCapture) drain() []map[string]interface{} {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	out := pc.payloads
	pc.payloads = nil
	return out
}

// flattenJSON pulls list-of-object values out of a decoded payload. Both
// top-level arrays and arrays nested one level under an object are
// considered; anything else is ignored.
func flattenJSON(data interface{}) []map[string]interface{} {
	var items []map[string]interface{}

	collect := func(list []interface{}) {
		for _, entry := range list {
			if obj, ok := entry.(map[string]interface{}); ok {
				items = append(items, obj)
			}
		}
	}

	switch v := data.(type) {
	case []interface{}:
		collect(v)
	case map[string]interface{}:
		for _, value := range v {
			if list, ok := value.([]interface{}); ok {
				collect(list)
			}
		}
	}

	return items
}

// blockedStatus reports statuses that mean the platform refused us.
func blockedStatus(status int64) bool {
	switch status {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// CollectPair runs one isolated browser session for a (subject, city)
// pair: a fresh user agent and optional proxy, candidate platform pages
// navigated in turn, and any JSON list payloads on the wire flattened into
// listings. A blocking status or navigation failure on every candidate
// returns ErrBlocked so the caller can fall back to the search API.
func CollectPair(ctx context.Context, subject, city string, config *SessionConfig) ([]listing.Listing, error) {
	if config == nil {
		config = DefaultSessionConfig()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(config.userAgent()),
	)
	if proxy := config.proxy(); proxy != "" {
		opts = append(opts, chromedp.ProxyServer(proxy))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	if err := chromedp.Run(browserCtx, network.Enable()); err != nil {
		return nil, fmt.Errorf("enable network capture: %w", err)
	}

	capture := &payloadCapture{}
	var watchDomain string
	var watchMu sync.Mutex

	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok {
			return
		}
		watchMu.Lock()
		domain := watchDomain
		watchMu.Unlock()
		if domain == "" || !strings.Contains(resp.Response.URL, domain) {
			return
		}
		if !strings.Contains(resp.Response.MimeType, "json") {
			return
		}
		requestID := resp.RequestID
		go func() {
			c := chromedp.FromContext(browserCtx)
			body, err := network.GetResponseBody(requestID).Do(cdp.WithExecutor(browserCtx, c.Target))
			if err != nil {
				return
			}
			var decoded interface{}
			if err := json.Unmarshal(body, &decoded); err != nil {
				return
			}
			if items := flattenJSON(decoded); len(items) > 0 {
				capture.add(items)
			}
		}()
	})

	var results []listing.Listing
	blockedAll := true

	for _, candidate := range candidateURLs(subject, city) {
		watchMu.Lock()
		watchDomain = candidate.domain
		watchMu.Unlock()

		navCtx, cancelNav := context.WithTimeout(browserCtx, config.NavTimeout)
		log.Info().Str("domain", candidate.domain).Str("url", candidate.url).Msg("Navigating platform")

		resp, err := chromedp.RunResponse(navCtx, chromedp.Navigate(candidate.url))
		if err != nil {
			cancelNav()
			log.Warn().Err(err).Str("domain", candidate.domain).Msg("Navigation failed")
			continue
		}
		if resp != nil && blockedStatus(resp.Status) {
			cancelNav()
			log.Warn().Int64("status", resp.Status).Str("domain", candidate.domain).Msg("Platform blocked session")
			continue
		}

		// Give in-page XHRs time to land.
		_ = chromedp.Run(navCtx, chromedp.Sleep(config.SettleDelay))
		cancelNav()

		blockedAll = false

		count := 0
		for _, payload := range capture.drain() {
			if count >= config.PerSourceLimit {
				break
			}
			if l := scraper.FromPayload(payload, capitalize(candidate.domain)); l != nil {
				results = append(results, *l)
				count++
			}
		}
	}

	if blockedAll && len(results) == 0 {
		return nil, ErrBlocked
	}

	log.Info().
		Str("subject", subject).
		Str("city", city).
		Int("count", len(results)).
		Msg("Browser session collected listings")

	return results, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
