package scraper

import (
	"encoding/json"
	"strings"

	"github.com/tuitiondata/collector/internal/classify"
	"github.com/tuitiondata/collector/pkg/listing"
)

// Finalize enriches a raw listing in place: the role is classified from the
// combined name+description+title text, subjects are extracted, and
// location and experience are backfilled from text when the source did not
// supply them directly.
func Finalize(l *listing.Listing) {
	combined := l.Name + " " + l.Description + " " + l.Title

	l.Role = classify.Role(combined)
	l.Subjects = classify.Subjects(combined)

	if l.Location == "" {
		l.Location = classify.Location(combined)
	}
	if l.Experience == "" {
		l.Experience = classify.Experience(combined)
	}
}

// payloadString returns the first non-empty string value among keys.
func payloadString(raw map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k].(string); ok {
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// FromPayload converts one intercepted JSON object into a listing.
// Platform APIs name their fields inconsistently, so a small set of
// aliases is probed per attribute and the remaining attributes are
// inferred from the serialized payload text. Returns nil when the object
// carries neither a name nor a link.
func FromPayload(raw map[string]interface{}, source string) *listing.Listing {
	name := payloadString(raw, "name", "title", "teacherName")
	desc := payloadString(raw, "description", "bio", "tagline")
	link := payloadString(raw, "profileUrl", "url", "link")

	if name == "" && link == "" {
		return nil
	}

	var text string
	if encoded, err := json.Marshal(raw); err == nil {
		text = string(encoded)
	}

	loc := payloadString(raw, "location", "city")
	if loc == "" {
		loc = classify.Location(text)
	}
	exp := payloadString(raw, "experience")
	if exp == "" {
		exp = classify.Experience(text)
	}

	title := "Tutor"
	if name != "" {
		title = name + " - Tutor"
	}

	l := &listing.Listing{
		Name:        name,
		Title:       title,
		Description: desc,
		ProfileLink: link,
		Source:      source,
		Location:    loc,
		Experience:  exp,
		Role:        classify.Role(name + " " + desc),
		Subjects:    classify.Subjects(text),
	}
	if l.Name == "" {
		l.Name = "N/A"
	}
	return l
}
