package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tuitiondata/collector/pkg/listing"
)

func TestRole(t *testing.T) {
	tests := []struct {
		name string
		text string
		want listing.Role
	}{
		{"empty", "", listing.RoleUnknown},
		{"tutor keywords only", "Experienced math tutor and teacher", listing.RoleTutor},
		{"student keywords only", "Undergraduate student pursuing B.Sc", listing.RoleStudent},
		{"tie favors tutor", "tutor and student", listing.RoleTutor},
		{"no keywords", "Looking for help with homework", listing.RoleUnknown},
		{"more student mentions", "student learner studying physics with a tutor", listing.RoleStudent},
		{"substring containment", "pupils welcome", listing.RoleStudent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Role(tt.text))
		})
	}
}

func TestRoleIsDeterministic(t *testing.T) {
	text := "Math tutor, 5 years teaching experience in Delhi"
	first := Role(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Role(text))
	}
}

func TestSubjects(t *testing.T) {
	subjects := Subjects("I teach Mathematics, Physics and a bit of coding")
	assert.Contains(t, subjects, "Math")
	assert.Contains(t, subjects, "Mathematics")
	assert.Contains(t, subjects, "Physics")
	assert.Contains(t, subjects, "Coding")

	assert.Empty(t, Subjects(""))
	assert.Empty(t, Subjects("nothing relevant here"))
}

func TestSubjectsDeduplicated(t *testing.T) {
	subjects := Subjects("physics physics PHYSICS")
	count := 0
	for _, s := range subjects {
		if s == "Physics" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestLocation(t *testing.T) {
	assert.Equal(t, "Mumbai", Location("tutoring in mumbai since 2015"))
	assert.Equal(t, "Jaipur", Location("Home tuitions in Jaipur"))
	// Pattern fallback for cities outside the fixed list
	assert.Equal(t, "Springfield", Location("Tutor located in Springfield"))
	assert.Equal(t, "", Location("no place mentioned"))
	assert.Equal(t, "", Location(""))
}

func TestExperience(t *testing.T) {
	assert.Equal(t, "5 years", Experience("Tutor with 5 years teaching"))
	assert.Equal(t, "10+ years of experience", Experience("Has 10+ years of experience"))
	assert.Equal(t, "3 yrs", Experience("3 yrs in the field"))
	assert.Equal(t, "", Experience("very experienced"))
	assert.Equal(t, "", Experience(""))
}

func TestIsIndianProfile(t *testing.T) {
	assert.False(t, IsIndianProfile(&listing.Listing{Location: "Austin, TX"}))
	assert.True(t, IsIndianProfile(&listing.Listing{Location: "Mumbai"}))
	assert.True(t, IsIndianProfile(&listing.Listing{Description: "Based in India, 5 years teaching"}))
	assert.True(t, IsIndianProfile(&listing.Listing{Title: "Chemistry tutor in Hyderabad"}))
	assert.False(t, IsIndianProfile(&listing.Listing{Name: "John Smith", Description: "Tutor in London"}))
}

func TestFilterByExperience(t *testing.T) {
	listings := []listing.Listing{
		{Name: "junior", Role: listing.RoleTutor, Experience: "3 years"},
		{Name: "senior", Role: listing.RoleTutor, Experience: "6 years"},
		{Name: "unknown", Role: listing.RoleTutor, Experience: "experienced"},
		{Name: "student", Role: listing.RoleStudent, Experience: "1 year"},
	}

	kept := FilterByExperience(listings, 5)
	assert.Len(t, kept, 1)
	assert.Equal(t, "junior", kept[0].Name)
}
