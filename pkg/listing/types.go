package listing

import (
	"strconv"
	"strings"
)

// Role classifies a listing as a tutor profile, a student profile, or
// neither. It is always one of the three enumerated values.
type Role string

const (
	RoleTutor   Role = "Tutor"
	RoleStudent Role = "Student"
	RoleUnknown Role = "Unknown"
)

// Listing is the canonical unit produced by every source adapter. Fields
// other than Source and Role may be empty; adapters fill what they can and
// the normalizer backfills the rest from free text.
type Listing struct {
	Name        string   `json:"name" bson:"name"`
	Title       string   `json:"title" bson:"title"`
	Description string   `json:"description" bson:"description"`
	ProfileLink string   `json:"profile_link" bson:"profile_link"`
	Source      string   `json:"source" bson:"source"`
	Location    string   `json:"location,omitempty" bson:"location,omitempty"`
	Experience  string   `json:"experience,omitempty" bson:"experience,omitempty"`
	Role        Role     `json:"role" bson:"role"`
	Subjects    []string `json:"subjects" bson:"subjects"`
}

// Key returns the identity key used for deduplication. A non-empty profile
// link is the stable identity; listings without one fall back to
// lower-cased name+source, which collides for same-named profiles on the
// same source (the later one is dropped).
func (l *Listing) Key() string {
	link := strings.ToLower(strings.TrimSpace(l.ProfileLink))
	if link != "" {
		return link
	}
	return strings.ToLower(strings.TrimSpace(l.Name)) + "|" + strings.ToLower(strings.TrimSpace(l.Source))
}

// ExperienceYears parses the leading integer out of the experience string,
// so "10+ years" yields 10 and "3 yrs" yields 3. The second return value is
// false when the field is empty or has no leading digit sequence.
func (l *Listing) ExperienceYears() (int, bool) {
	return ParseExperienceYears(l.Experience)
}

// ParseExperienceYears extracts the leading integer from an experience
// string such as "5 years" or "10+ yrs of experience".
func ParseExperienceYears(text string) (int, bool) {
	s := strings.TrimSpace(text)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	years, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return years, true
}

// SubjectsJoined renders the subject set as the ordered, comma-joined
// string used by the tabular sinks. Empty sets render as "N/A" to match
// the historical file format.
func (l *Listing) SubjectsJoined() string {
	if len(l.Subjects) == 0 {
		return "N/A"
	}
	return strings.Join(l.Subjects, ", ")
}
