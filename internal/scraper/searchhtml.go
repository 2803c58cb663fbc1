package scraper

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/tuitiondata/collector/pkg/listing"
)

// SearchHTMLAdapter scrapes search engine result pages directly, the
// fallback path when no API credentials are configured. Result blocks are
// fragile by nature; per-item parse failures are skipped silently.
type SearchHTMLAdapter struct {
	client  *Client
	baseURL string
}

// NewSearchHTMLAdapter creates the HTML search adapter
func NewSearchHTMLAdapter(client *Client) *SearchHTMLAdapter {
	return &SearchHTMLAdapter{
		client:  client,
		baseURL: "https://www.google.com/search",
	}
}

func (a *SearchHTMLAdapter) Name() string       { return "Google HTML Search" }
func (a *SearchHTMLAdapter) Category() Category { return CategoryUnmetered }

func (a *SearchHTMLAdapter) searchURL(query string, start int) string {
	return a.baseURL + "?q=" + url.QueryEscape(query) + "&start=" + strconv.Itoa(start)
}

// extractResults parses one result page into raw listings.
func (a *SearchHTMLAdapter) extractResults(html string) []listing.Listing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Debug().Err(err).Msg("Failed to parse search page")
		return nil
	}

	var results []listing.Listing

	doc.Find("div.g").Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find("h3").First().Text())
		if title == "" {
			return
		}

		link, ok := sel.Find("a").First().Attr("href")
		if !ok || link == "" {
			return
		}
		if skippableLink(link) {
			return
		}

		description := strings.TrimSpace(sel.Find("div.VwiC3b, div.yXK7lf").First().Text())

		source := a.Name()
		if parsed, err := url.Parse(link); err == nil && parsed.Host != "" {
			source = "Google Search (" + strings.TrimPrefix(parsed.Host, "www.") + ")"
		}

		results = append(results, listing.Listing{
			Name:        title,
			Title:       title,
			Description: description,
			ProfileLink: link,
			Source:      source,
		})
	})

	return results
}

// Scrape pages through search result pages up to limit.
func (a *SearchHTMLAdapter) Scrape(ctx context.Context, query string, limit int) ([]listing.Listing, error) {
	log.Info().Str("query", query).Msg("Searching via HTML scraping")

	var results []listing.Listing
	pages := limit/customSearchPageSize + 1

	for page := 0; page < pages && len(results) < limit; page++ {
		html, err := a.client.FetchPage(ctx, a.searchURL(query, page*customSearchPageSize))
		if err != nil {
			return results, err
		}
		if html == "" {
			log.Warn().Int("page", page+1).Msg("Failed to fetch search page")
			continue
		}

		pageResults := a.extractResults(html)
		if len(pageResults) == 0 {
			break
		}

		for _, l := range pageResults {
			Finalize(&l)
			results = append(results, l)
			if len(results) >= limit {
				break
			}
		}
	}

	log.Info().Int("count", len(results)).Str("query", query).Msg("HTML search results collected")
	return results, nil
}
