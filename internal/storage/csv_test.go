package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuitiondata/collector/pkg/listing"
)

func sample(name, link string, role listing.Role) listing.Listing {
	return listing.Listing{
		Name:        name,
		Title:       name + " - Tutor",
		ProfileLink: link,
		Source:      "Test",
		Role:        role,
	}
}

func TestCSVSinkAppendAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all_profiles.csv")
	sink := NewCSVSink(path)

	batch := []listing.Listing{
		sample("Asha", "https://example.com/asha", listing.RoleTutor),
		sample("Ravi", "https://example.com/ravi", listing.RoleStudent),
	}
	require.NoError(t, sink.Append(context.Background(), batch))

	loaded, err := readListings(path)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.Equal(t, "Asha", loaded[0].Name)
	assert.Equal(t, listing.RoleStudent, loaded[1].Role)
}

func TestCSVSinkRoleSplit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tutors.csv")
	sink := NewCSVSink(path)

	batch := []listing.Listing{
		sample("Asha", "https://example.com/asha", listing.RoleTutor),
		sample("Ravi", "https://example.com/ravi", listing.RoleStudent),
		sample("Meera", "https://example.com/meera", listing.RoleUnknown),
	}
	require.NoError(t, sink.Append(context.Background(), batch))

	tutors, err := readListings(path)
	require.NoError(t, err)
	students, err := readListings(filepath.Join(dir, "students.csv"))
	require.NoError(t, err)

	// Unknown rows stay with tutors.
	assert.Len(t, tutors, 2)
	assert.Len(t, students, 1)
	assert.Equal(t, "Ravi", students[0].Name)
}

func TestCSVSinkAppendIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all_profiles.csv")
	sink := NewCSVSink(path)

	batch := []listing.Listing{sample("Asha", "https://example.com/asha", listing.RoleTutor)}
	require.NoError(t, sink.Append(context.Background(), batch))
	require.NoError(t, sink.Append(context.Background(), batch))

	loaded, err := readListings(path)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestCSVSinkFirstSeenWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all_profiles.csv")
	sink := NewCSVSink(path)

	first := sample("Asha", "https://example.com/asha", listing.RoleTutor)
	first.Location = "Delhi"
	require.NoError(t, sink.Append(context.Background(), []listing.Listing{first}))

	second := sample("Asha", "https://example.com/asha", listing.RoleTutor)
	second.Location = "Mumbai"
	require.NoError(t, sink.Append(context.Background(), []listing.Listing{second}))

	loaded, err := readListings(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "Delhi", loaded[0].Location)
}

func TestCSVSinkSubjectsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all_profiles.csv")
	sink := NewCSVSink(path)

	l := sample("Asha", "https://example.com/asha", listing.RoleTutor)
	l.Subjects = []string{"Math", "Physics"}
	require.NoError(t, sink.Append(context.Background(), []listing.Listing{l}))

	loaded, err := readListings(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, []string{"Math", "Physics"}, loaded[0].Subjects)
}

func TestReadListingsMissingFile(t *testing.T) {
	loaded, err := readListings(filepath.Join(t.TempDir(), "nope.csv"))
	assert.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestCSVSinkEmptyBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all_profiles.csv")
	sink := NewCSVSink(path)

	require.NoError(t, sink.Append(context.Background(), nil))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "empty batch should not create the file")
}

type failingSink struct{}

func (failingSink) Append(context.Context, []listing.Listing) error { return errors.New("boom") }
func (failingSink) Close(context.Context) error                    { return nil }

func TestMultiSinkContinuesAfterFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all_profiles.csv")
	csvSink := NewCSVSink(path)
	multi := NewMultiSink(failingSink{}, csvSink)

	batch := []listing.Listing{sample("Asha", "https://example.com/asha", listing.RoleTutor)}
	err := multi.Append(context.Background(), batch)
	assert.Error(t, err)

	loaded, readErr := readListings(path)
	require.NoError(t, readErr)
	assert.Len(t, loaded, 1, "CSV copy should survive a failing sibling sink")
	assert.True(t, strings.Contains(err.Error(), "boom"))
}
