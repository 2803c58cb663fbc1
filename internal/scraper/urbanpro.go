package scraper

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/tuitiondata/collector/internal/classify"
	"github.com/tuitiondata/collector/pkg/listing"
)

// UrbanProAdapter scrapes tutor profiles from UrbanPro listing pages.
type UrbanProAdapter struct {
	client  *Client
	baseURL string
}

// NewUrbanProAdapter creates the UrbanPro adapter
func NewUrbanProAdapter(client *Client) *UrbanProAdapter {
	return &UrbanProAdapter{client: client, baseURL: "https://www.urbanpro.com"}
}

func (a *UrbanProAdapter) Name() string       { return "UrbanPro" }
func (a *UrbanProAdapter) Category() Category { return CategoryUnmetered }

func (a *UrbanProAdapter) searchURL(subject, city string) string {
	subject = strings.ReplaceAll(subject, " tutor", "")
	return a.baseURL + "/" + slugify(subject) + "/in-" + slugify(city)
}

// extractProfiles parses tutor cards out of a listing page. UrbanPro's
// markup varies between page generations, hence the selector cascade.
func (a *UrbanProAdapter) extractProfiles(html string) []listing.Listing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Debug().Err(err).Msg("Failed to parse UrbanPro page")
		return nil
	}

	cards := selectCascade(doc,
		"div[class*=tutor], div[class*=profile], div[class*=card]",
		"div[itemtype*=Person]",
	)

	var profiles []listing.Listing

	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		if i >= 20 {
			return false
		}

		name := firstText(card,
			"h2[class*=name], h3[class*=name], h4[class*=name]",
			"h2[class*=title], h3[class*=title], h4[class*=title]",
			"a[href*='/tutor/']",
		)
		if name == "" {
			return true
		}

		link := firstHref(card, "a[href*='/tutor/']", "a[href*='/profile/']")
		cardText := card.Text()

		profiles = append(profiles, listing.Listing{
			Name:        name,
			Title:       name + " - Tutor",
			Description: firstText(card, "p[class*=desc], div[class*=desc]", "p[class*=about], div[class*=about]", "p[class*=bio], div[class*=bio]"),
			ProfileLink: absoluteLink(link, a.baseURL),
			Source:      a.Name(),
			Location:    firstText(card, "span[class*=location], div[class*=location]", "span[class*=area], div[class*=area]", "span[class*=city], div[class*=city]"),
			Experience:  classify.Experience(cardText),
		})
		return true
	})

	return profiles
}

// Scrape fetches and parses the listing page for the query's subject and
// city (defaulting to math in Delhi when the query names neither).
func (a *UrbanProAdapter) Scrape(ctx context.Context, query string, limit int) ([]listing.Listing, error) {
	subject := subjectFromQuery(query, "math")
	city := cityFromQuery(query, "delhi")

	pageURL := a.searchURL(subject, city)
	log.Info().Str("url", pageURL).Str("query", query).Msg("Scraping UrbanPro")

	html, err := a.client.FetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if html == "" {
		log.Warn().Str("url", pageURL).Msg("Failed to fetch UrbanPro page")
		return nil, nil
	}

	profiles := a.extractProfiles(html)
	if len(profiles) > limit {
		profiles = profiles[:limit]
	}
	for i := range profiles {
		Finalize(&profiles[i])
	}

	log.Info().Int("count", len(profiles)).Msg("UrbanPro profiles collected")
	return profiles, nil
}
