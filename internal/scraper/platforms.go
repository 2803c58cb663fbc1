package scraper

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/tuitiondata/collector/pkg/listing"
)

// platformTarget is one directly-scraped tutoring platform.
type platformTarget struct {
	name    string
	baseURL string
	// pageURL builds the listing URL for a subject; platforms without
	// subject paths ignore it.
	pageURL func(subject string) string
}

// PlatformAdapter scrapes several tutoring platforms directly with one
// generic card parser. Platforms come and go; failures on one never stop
// the others.
type PlatformAdapter struct {
	client  *Client
	targets []platformTarget
}

// NewPlatformAdapter creates the multi-platform adapter
func NewPlatformAdapter(client *Client) *PlatformAdapter {
	return &PlatformAdapter{
		client: client,
		targets: []platformTarget{
			{
				name:    "Vedantu",
				baseURL: "https://www.vedantu.com",
				pageURL: func(subject string) string {
					return "https://www.vedantu.com/tutors/" + slugify(subject)
				},
			},
			{
				name:    "Preply",
				baseURL: "https://preply.com",
				pageURL: func(subject string) string {
					return "https://preply.com/en/online/" + slugify(subject) + "-tutors"
				},
			},
		},
	}
}

func (a *PlatformAdapter) Name() string       { return "Direct Platforms" }
func (a *PlatformAdapter) Category() Category { return CategoryUnmetered }

// extractProfiles runs the generic card cascade against one platform page.
func (a *PlatformAdapter) extractProfiles(html string, target platformTarget, limit int) []listing.Listing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Debug().Err(err).Str("platform", target.name).Msg("Failed to parse platform page")
		return nil
	}

	cards := selectCascade(doc,
		"div[class*=tutor], div[class*=teacher], div[class*=profile]",
		"div[class*=card], article[class*=profile]",
		"article[class*=tutor]",
	)

	var profiles []listing.Listing

	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		if len(profiles) >= limit {
			return false
		}

		name := firstText(card,
			"h1[class*=name], h2[class*=name], h3[class*=name], h4[class*=name]",
			"h1[class*=title], h2[class*=title], h3[class*=title], h4[class*=title]",
			"a[class*=name], a[class*=title]",
		)
		if name == "" {
			return true
		}

		profiles = append(profiles, listing.Listing{
			Name:        name,
			Title:       name,
			Description: firstText(card, "p[class*=desc], div[class*=desc], span[class*=desc]", "p[class*=bio], div[class*=bio]", "p[class*=about], div[class*=about]", "p[class*=summary], div[class*=summary]"),
			ProfileLink: absoluteLink(firstHref(card, "a"), target.baseURL),
			Source:      target.name,
		})
		return true
	})

	return profiles
}

// Scrape visits each platform's subject page in turn, splitting the limit
// across platforms.
func (a *PlatformAdapter) Scrape(ctx context.Context, query string, limit int) ([]listing.Listing, error) {
	subject := subjectFromQuery(query, "math")
	perPlatform := limit / len(a.targets)
	if perPlatform < 1 {
		perPlatform = 1
	}

	var results []listing.Listing

	for _, target := range a.targets {
		if len(results) >= limit {
			break
		}

		pageURL := target.pageURL(subject)
		log.Info().Str("platform", target.name).Str("url", pageURL).Msg("Scraping platform")

		html, err := a.client.FetchPage(ctx, pageURL)
		if err != nil {
			return results, err
		}
		if html == "" {
			log.Warn().Str("platform", target.name).Msg("Platform page fetch failed, continuing")
			continue
		}

		profiles := a.extractProfiles(html, target, perPlatform)
		for i := range profiles {
			Finalize(&profiles[i])
		}
		results = append(results, profiles...)
	}

	if len(results) > limit {
		results = results[:limit]
	}

	log.Info().Int("count", len(results)).Msg("Platform profiles collected")
	return results, nil
}
