package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// selectCascade returns the matches of the first selector that yields any,
// mirroring how the platform scrapers probe several markup generations of
// the same site.
func selectCascade(doc *goquery.Document, selectors ...string) *goquery.Selection {
	for _, sel := range selectors {
		if found := doc.Find(sel); found.Length() > 0 {
			return found
		}
	}
	return doc.Find(selectors[len(selectors)-1])
}

// firstText returns the trimmed text of the first selector in the cascade
// that matches inside card.
func firstText(card *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if found := card.Find(sel).First(); found.Length() > 0 {
			if text := strings.TrimSpace(found.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

// firstHref returns the href of the first matching anchor in the cascade.
func firstHref(card *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if href, ok := card.Find(sel).First().Attr("href"); ok && href != "" {
			return href
		}
	}
	return ""
}

// absoluteLink prefixes site-relative links with the platform base URL.
func absoluteLink(href, baseURL string) string {
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	return baseURL + href
}

var pricePattern = regexp.MustCompile(`(?:₹|Rs\.?\s*)\d+[\d,]*`)

// cardPrice extracts a rupee price string from card text, when present.
func cardPrice(text string) string {
	return pricePattern.FindString(text)
}
