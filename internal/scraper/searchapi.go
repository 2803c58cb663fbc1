package scraper

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/tuitiondata/collector/pkg/listing"
)

const (
	customSearchURL = "https://www.googleapis.com/customsearch/v1"

	// The API refuses start indexes past 100.
	customSearchMaxResults = 100
	customSearchPageSize   = 10

	credentialCooldown = 60 * time.Second
	exhaustedRingWait  = 30 * time.Second
)

// Domains that never carry usable tutoring profiles.
var skipDomains = []string{"youtube.com", "facebook.com", "twitter.com", "instagram.com"}

// searchResponse is the subset of the Custom Search response we consume.
type searchResponse struct {
	Items []searchItem `json:"items"`
}

type searchItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// SearchAPIConfig configures the metered search adapter.
type SearchAPIConfig struct {
	DeepFetch         bool `json:"deep_fetch"`
	DeepFetchPerPage  int  `json:"deep_fetch_per_page"`
	DeepFetchMaxChars int  `json:"deep_fetch_max_chars"`
}

// DefaultSearchAPIConfig returns default search adapter behavior
func DefaultSearchAPIConfig() *SearchAPIConfig {
	return &SearchAPIConfig{
		DeepFetch:         false,
		DeepFetchPerPage:  3,
		DeepFetchMaxChars: 4000,
	}
}

// SearchAPIAdapter retrieves listings through the Google Custom Search
// JSON API, rotating credentials from a shared KeyRing and paging in
// batches of ten up to the API's hundred-result cap. It is the only
// metered adapter: the orchestrator routes it through the global API
// semaphore and pacer.
type SearchAPIAdapter struct {
	client   *Client
	ring     *KeyRing
	config   *SearchAPIConfig
	endpoint string
}

// NewSearchAPIAdapter creates the metered search adapter
func NewSearchAPIAdapter(client *Client, ring *KeyRing, config *SearchAPIConfig) *SearchAPIAdapter {
	if config == nil {
		config = DefaultSearchAPIConfig()
	}
	return &SearchAPIAdapter{client: client, ring: ring, config: config, endpoint: customSearchURL}
}

func (a *SearchAPIAdapter) Name() string       { return "Google API Search" }
func (a *SearchAPIAdapter) Category() Category { return CategoryMeteredAPI }

// Configured reports whether any credentials are available.
func (a *SearchAPIAdapter) Configured() bool {
	return a.ring != nil && !a.ring.Empty()
}

// search performs one paged API call, rotating to the next live
// credential. A quota response cools the credential down; an exhausted
// ring makes the caller wait once, bounded, then give up for this call.
func (a *SearchAPIAdapter) search(ctx context.Context, query string, start int) (*searchResponse, error) {
	for attempt := 0; attempt < 2; attempt++ {
		cred, idx, wait, ok := a.ring.Next()
		if !ok {
			if wait <= 0 || wait > exhaustedRingWait {
				wait = exhaustedRingWait
			}
			log.Warn().Dur("wait", wait).Msg("All API credentials cooling down")
			if !sleepCtx(ctx, wait) {
				return nil, ctx.Err()
			}
			continue
		}

		params := map[string]string{
			"key":   cred.APIKey,
			"cx":    cred.EngineID,
			"q":     query,
			"start": strconv.Itoa(start),
			"num":   strconv.Itoa(customSearchPageSize),
		}

		var out searchResponse
		status, err := a.client.GetJSON(ctx, a.endpoint, params, &out)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Msg("Search API request failed")
			return nil, nil
		}

		switch status {
		case http.StatusOK:
			return &out, nil
		case http.StatusTooManyRequests, http.StatusForbidden:
			a.ring.MarkBackoff(idx, credentialCooldown)
			continue
		default:
			log.Warn().Int("status", status).Msg("Search API returned unexpected status")
			return nil, nil
		}
	}
	return nil, nil
}

func skippableLink(link string) bool {
	lower := strings.ToLower(link)
	for _, domain := range skipDomains {
		if strings.Contains(lower, domain) {
			return true
		}
	}
	return false
}

// Scrape pages through API results up to limit, normalizing each item.
func (a *SearchAPIAdapter) Scrape(ctx context.Context, query string, limit int) ([]listing.Listing, error) {
	if !a.Configured() {
		log.Warn().Msg("Search API credentials not configured, skipping")
		return nil, nil
	}

	log.Info().Str("query", query).Int("limit", limit).Msg("Searching via API")

	var results []listing.Listing

	for start := 1; start <= customSearchMaxResults && len(results) < limit; start += customSearchPageSize {
		resp, err := a.search(ctx, query, start)
		if err != nil {
			return results, err
		}
		if resp == nil || len(resp.Items) == 0 {
			break
		}

		deepFetched := 0
		for _, item := range resp.Items {
			if skippableLink(item.Link) {
				continue
			}

			l := listing.Listing{
				Name:        item.Title,
				Title:       item.Title,
				Description: item.Snippet,
				ProfileLink: item.Link,
				Source:      a.Name(),
			}

			if a.config.DeepFetch && deepFetched < a.config.DeepFetchPerPage {
				deepFetched++
				if extra := a.deepFetch(ctx, item.Link); extra != "" {
					l.Description = l.Description + " " + extra
				}
			}

			Finalize(&l)
			results = append(results, l)
			if len(results) >= limit {
				break
			}
		}
	}

	log.Info().Int("count", len(results)).Str("query", query).Msg("Search API results collected")
	return results, nil
}

// deepFetch pulls a result page and flattens its body text, bounded by the
// configured character budget. Strictly an accuracy/cost knob for
// experience and location extraction; failures yield nothing.
func (a *SearchAPIAdapter) deepFetch(ctx context.Context, link string) string {
	html, err := a.client.FetchPage(ctx, link)
	if err != nil || html == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if len(text) > a.config.DeepFetchMaxChars {
		text = text[:a.config.DeepFetchMaxChars]
	}
	return text
}
