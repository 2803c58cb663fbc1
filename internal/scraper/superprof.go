package scraper

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/tuitiondata/collector/internal/classify"
	"github.com/tuitiondata/collector/pkg/listing"
)

// Superprof names subjects differently from the query vocabulary.
var superprofSubjects = map[string]string{
	"math":        "mathematics",
	"physics":     "physics",
	"chemistry":   "chemistry",
	"biology":     "biology",
	"english":     "english",
	"computer":    "computer-science",
	"programming": "programming",
}

// SuperprofAdapter scrapes tutor profiles from Superprof lesson pages.
type SuperprofAdapter struct {
	client  *Client
	baseURL string
}

// NewSuperprofAdapter creates the Superprof adapter
func NewSuperprofAdapter(client *Client) *SuperprofAdapter {
	return &SuperprofAdapter{client: client, baseURL: "https://www.superprof.co.in"}
}

func (a *SuperprofAdapter) Name() string       { return "Superprof" }
func (a *SuperprofAdapter) Category() Category { return CategoryUnmetered }

func (a *SuperprofAdapter) searchURL(subject, city string) string {
	return a.baseURL + "/lessons/" + slugify(subject) + "/" + slugify(city) + ".html"
}

func (a *SuperprofAdapter) extractProfiles(html string) []listing.Listing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Debug().Err(err).Msg("Failed to parse Superprof page")
		return nil
	}

	cards := selectCascade(doc,
		"div[class*=teacher], article[class*=teacher], div[class*=tutor], div[class*=card], div[class*=profile]",
		"div[data-testid*=teacher], div[data-testid*=tutor]",
	)

	var profiles []listing.Listing

	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		if i >= 20 {
			return false
		}

		name := firstText(card,
			"h2[class*=name], h3[class*=name]",
			"h2[class*=title], h3[class*=title]",
			"a[class*=name], a[class*=title]",
		)
		if name == "" {
			return true
		}

		link := firstHref(card, "a[href*='/tutors/']", "a")
		cardText := card.Text()

		description := firstText(card,
			"p[class*=desc], div[class*=desc]",
			"p[class*=tagline], div[class*=tagline]",
			"p[class*=bio], div[class*=bio]",
			"p[class*=about], div[class*=about]",
		)
		if price := cardPrice(cardText); price != "" {
			description += " | Price: " + price
		}

		profiles = append(profiles, listing.Listing{
			Name:        name,
			Title:       name + " - Tutor",
			Description: description,
			ProfileLink: absoluteLink(link, a.baseURL),
			Source:      a.Name(),
			Location:    firstText(card, "span[class*=location], div[class*=location]", "span[class*=city], div[class*=city]", "span[class*=area], div[class*=area]"),
			Experience:  classify.Experience(cardText),
		})
		return true
	})

	return profiles
}

// Scrape fetches and parses the lesson page for the query's subject and
// city.
func (a *SuperprofAdapter) Scrape(ctx context.Context, query string, limit int) ([]listing.Listing, error) {
	subject := superprofSubjects[subjectFromQuery(query, "math")]
	if subject == "" {
		subject = "mathematics"
	}
	city := cityFromQuery(query, "delhi")

	pageURL := a.searchURL(subject, city)
	log.Info().Str("url", pageURL).Str("query", query).Msg("Scraping Superprof")

	html, err := a.client.FetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if html == "" {
		log.Warn().Str("url", pageURL).Msg("Failed to fetch Superprof page")
		return nil, nil
	}

	profiles := a.extractProfiles(html)
	if len(profiles) > limit {
		profiles = profiles[:limit]
	}
	for i := range profiles {
		Finalize(&profiles[i])
	}

	log.Info().Int("count", len(profiles)).Msg("Superprof profiles collected")
	return profiles, nil
}
