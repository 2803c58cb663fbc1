package scraper

import "strings"

// querySubjects and queryCities are the fixed keyword lists adapters use to
// pull a subject and a city out of a free-text query. First match wins;
// adapters fall back to math/delhi when the query names neither.
var querySubjects = []string{
	"math", "physics", "chemistry", "biology", "english", "computer",
	"programming", "science",
}

var queryCities = []string{
	"delhi", "mumbai", "bangalore", "chennai", "kolkata", "pune", "hyderabad",
}

// subjectFromQuery extracts the first known subject keyword from a query,
// or def when none matches.
func subjectFromQuery(query, def string) string {
	lower := strings.ToLower(query)
	for _, s := range querySubjects {
		if strings.Contains(lower, s) {
			return s
		}
	}
	return def
}

// cityFromQuery extracts the first known city from a query, or def.
func cityFromQuery(query, def string) string {
	lower := strings.ToLower(query)
	for _, c := range queryCities {
		if strings.Contains(lower, c) {
			return c
		}
	}
	return def
}

// slugify lower-cases and hyphenates a term for URL path segments.
func slugify(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}
