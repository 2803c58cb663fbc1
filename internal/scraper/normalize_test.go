package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuitiondata/collector/pkg/listing"
)

func TestFinalizeClassifiesAndBackfills(t *testing.T) {
	l := &listing.Listing{
		Name:        "Anita Sharma",
		Title:       "Anita Sharma - Tutor",
		Description: "Math tutor in Mumbai with 5 years of experience",
		Source:      "UrbanPro",
	}

	Finalize(l)

	assert.Equal(t, listing.RoleTutor, l.Role)
	assert.Contains(t, l.Subjects, "Math")
	assert.Equal(t, "Mumbai", l.Location)
	assert.Equal(t, "5 years of experience", l.Experience)
}

func TestFinalizeKeepsSourceProvidedFields(t *testing.T) {
	l := &listing.Listing{
		Name:        "Ravi",
		Description: "tutor from Pune, 3 years",
		Location:    "Nagpur",
		Experience:  "12 years",
	}

	Finalize(l)

	assert.Equal(t, "Nagpur", l.Location)
	assert.Equal(t, "12 years", l.Experience)
}

func TestFromPayloadAliases(t *testing.T) {
	raw := map[string]interface{}{
		"teacherName": "Priya Nair",
		"tagline":     "Chemistry teacher, 8 years experience",
		"profileUrl":  "https://www.superprof.co.in/tutors/priya",
		"city":        "Chennai",
	}

	l := FromPayload(raw, "Superprof")
	require.NotNil(t, l)

	assert.Equal(t, "Priya Nair", l.Name)
	assert.Equal(t, "Priya Nair - Tutor", l.Title)
	assert.Equal(t, "https://www.superprof.co.in/tutors/priya", l.ProfileLink)
	assert.Equal(t, "Chennai", l.Location)
	assert.Equal(t, "8 years experience", l.Experience)
	assert.Equal(t, listing.RoleTutor, l.Role)
	assert.Equal(t, "Superprof", l.Source)
}

func TestFromPayloadInfersFromSerializedText(t *testing.T) {
	raw := map[string]interface{}{
		"name": "Arjun",
		"bio":  "Physics tutor based in Kolkata, 4 yrs",
	}

	l := FromPayload(raw, "Urbanpro")
	require.NotNil(t, l)

	assert.Equal(t, "Kolkata", l.Location)
	assert.Equal(t, "4 yrs", l.Experience)
	assert.Contains(t, l.Subjects, "Physics")
}

func TestFromPayloadRejectsAnonymousObjects(t *testing.T) {
	raw := map[string]interface{}{
		"rating": 4.5,
		"count":  12,
	}
	assert.Nil(t, FromPayload(raw, "Superprof"))
}
