// Package classify holds the pure text heuristics that turn free-form
// listing text into structured attributes: role, subjects, location, and
// experience. No I/O, no state.
package classify

import (
	"regexp"
	"strings"

	"github.com/tuitiondata/collector/pkg/listing"
)

var tutorKeywords = []string{
	"tutor", "teacher", "instructor", "educator", "trainer", "coach",
	"professor", "lecturer", "mentor", "teaching", "teaches", "expert",
}

var studentKeywords = []string{
	"student", "learner", "undergraduate", "graduate", "studying",
	"pursuing", "enrolled", "pupil", "scholar", "learning",
}

var subjectKeywords = []string{
	"math", "mathematics", "physics", "chemistry", "biology", "science",
	"english", "history", "geography", "computer", "programming", "coding",
	"language", "french", "spanish", "german", "economics", "accounting",
	"statistics", "calculus", "algebra", "geometry", "music", "art",
}

// Cities checked when extracting a location from free text.
var indianCities = []string{
	"delhi", "mumbai", "bangalore", "chennai", "kolkata", "hyderabad",
	"pune", "ahmedabad", "jaipur", "lucknow", "kanpur", "nagpur",
	"indore", "bhopal", "visakhapatnam", "surat", "patna", "vadodara",
}

// Wider city list used by the region heuristic.
var indianCitiesExtended = append([]string{
	"ghaziabad", "ludhiana", "agra", "nashik", "faridabad", "meerut",
	"rajkot", "varanasi", "srinagar", "aurangabad", "dhanbad", "amritsar",
	"allahabad", "ranchi", "coimbatore", "gwalior", "noida",
}, indianCities...)

// Major cities checked against the concatenated free text when the
// location field is inconclusive.
var majorIndianCities = []string{
	"delhi", "mumbai", "bangalore", "chennai", "kolkata", "hyderabad",
	"pune", "ahmedabad", "jaipur", "lucknow",
}

var (
	locationPattern   = regexp.MustCompile(`(?:in|from|at|located in)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)
	experiencePattern = regexp.MustCompile(`(\d+\+?\s*(?:years?|yrs?)(?:\s+of\s+experience)?)`)
)

// Role classifies text as Tutor, Student, or Unknown by tallying keyword
// occurrences. Substring containment, not word-boundary matching. Ties with
// at least one tutor keyword favor Tutor: most scraped listings are tutors.
func Role(text string) listing.Role {
	if text == "" {
		return listing.RoleUnknown
	}

	lower := strings.ToLower(text)

	tutorMatches := 0
	for _, kw := range tutorKeywords {
		if strings.Contains(lower, kw) {
			tutorMatches++
		}
	}
	studentMatches := 0
	for _, kw := range studentKeywords {
		if strings.Contains(lower, kw) {
			studentMatches++
		}
	}

	switch {
	case tutorMatches > studentMatches:
		return listing.RoleTutor
	case studentMatches > tutorMatches:
		return listing.RoleStudent
	case tutorMatches > 0:
		return listing.RoleTutor
	default:
		return listing.RoleUnknown
	}
}

// Subjects extracts subject tags from text via the fixed vocabulary.
// Returned capitalized and deduplicated, in vocabulary order.
func Subjects(text string) []string {
	if text == "" {
		return nil
	}

	lower := strings.ToLower(text)
	seen := make(map[string]bool)
	var found []string

	for _, subject := range subjectKeywords {
		if strings.Contains(lower, subject) {
			capitalized := capitalize(subject)
			if !seen[capitalized] {
				seen[capitalized] = true
				found = append(found, capitalized)
			}
		}
	}

	return found
}

// Location extracts a place name from text: first a known-city substring
// match, then a pattern like "in Jaipur" or "from New Delhi" capturing a
// capitalized word or pair. Empty string when nothing matches.
func Location(text string) string {
	if text == "" {
		return ""
	}

	lower := strings.ToLower(text)
	for _, city := range indianCities {
		if strings.Contains(lower, city) {
			return capitalize(city)
		}
	}

	if m := locationPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}

	return ""
}

// Experience extracts an experience phrase such as "5 years" or
// "10+ yrs of experience", returned verbatim in lower case (the source
// text is lower-cased before matching, not normalized afterwards).
func Experience(text string) string {
	if text == "" {
		return ""
	}

	if m := experiencePattern.FindStringSubmatch(strings.ToLower(text)); m != nil {
		return m[1]
	}

	return ""
}

// IsIndianProfile reports whether a listing is likely from India. The
// location field is checked against "india" and the known city list; when
// that is inconclusive the concatenated name+title+description is checked
// against "india"/"indian" and the major-city list. Pure heuristic, no
// gazetteer.
func IsIndianProfile(l *listing.Listing) bool {
	if loc := strings.ToLower(l.Location); loc != "" {
		if strings.Contains(loc, "india") {
			return true
		}
		for _, city := range indianCitiesExtended {
			if strings.Contains(loc, city) {
				return true
			}
		}
	}

	text := strings.ToLower(l.Name + " " + l.Title + " " + l.Description)
	if strings.Contains(text, "india") || strings.Contains(text, "indian") {
		return true
	}
	for _, city := range majorIndianCities {
		if strings.Contains(text, city) {
			return true
		}
	}

	return false
}

// FilterByExperience keeps tutors whose known experience is strictly below
// maxYears. Tutors with unknown experience are excluded: they cannot be
// proven to satisfy the bound. Non-tutor listings are not this function's
// concern and are dropped; callers re-add them when appropriate.
func FilterByExperience(listings []listing.Listing, maxYears int) []listing.Listing {
	var kept []listing.Listing
	for _, l := range listings {
		if l.Role != listing.RoleTutor {
			continue
		}
		years, ok := l.ExperienceYears()
		if ok && years < maxYears {
			kept = append(kept, l)
		}
	}
	return kept
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
