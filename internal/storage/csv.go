package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tuitiondata/collector/pkg/listing"
)

// csvHeader is the fixed column order for listing files.
var csvHeader = []string{
	"name", "title", "description", "profile_link",
	"source", "location", "experience", "role", "subjects",
}

// CSVSink persists listings to CSV files. Each flush merges with
// whatever the file already holds: existing rows keep their position
// and win identity collisions, new rows append after them.
//
// When the configured path contains "tutors", student rows are split
// into a sibling file with "tutors" replaced by "students"; otherwise
// every row lands in the one file.
type CSVSink struct {
	path string
	mu   sync.Mutex
}

// NewCSVSink creates a sink writing to path.
func NewCSVSink(path string) *CSVSink {
	if path == "" {
		path = "all_profiles.csv"
	}
	return &CSVSink{path: path}
}

// studentPath derives the students file from the tutors file, or ""
// when the path carries no role and splitting is disabled.
func (s *CSVSink) studentPath() string {
	if !strings.Contains(s.path, "tutors") {
		return ""
	}
	return strings.Replace(s.path, "tutors", "students", 1)
}

// Append merges the batch into the role-appropriate files.
func (s *CSVSink) Append(ctx context.Context, batch []listing.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	studentPath := s.studentPath()
	if studentPath == "" {
		return s.mergeFile(s.path, batch)
	}

	var tutors, students []listing.Listing
	for _, l := range batch {
		if l.Role == listing.RoleStudent {
			students = append(students, l)
		} else {
			tutors = append(tutors, l)
		}
	}

	if err := s.mergeFile(s.path, tutors); err != nil {
		return err
	}
	return s.mergeFile(studentPath, students)
}

// Close is a no-op; every Append leaves the files complete.
func (s *CSVSink) Close(ctx context.Context) error {
	return nil
}

// mergeFile rewrites path with existing rows first and unseen new rows
// appended. Existing rows win identity collisions.
func (s *CSVSink) mergeFile(path string, batch []listing.Listing) error {
	if len(batch) == 0 {
		return nil
	}

	existing, err := readListings(path)
	if err != nil {
		return fmt.Errorf("reading existing %s: %w", path, err)
	}

	seen := make(map[string]bool, len(existing))
	for _, l := range existing {
		seen[l.Key()] = true
	}

	merged := existing
	added := 0
	for _, l := range batch {
		key := l.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, l)
		added++
	}

	if added == 0 && len(existing) > 0 {
		return nil
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, l := range merged {
		if err := w.Write(toRecord(l)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	log.Info().Str("path", path).Int("added", added).Int("total", len(merged)).Msg("Flushed listings to CSV")
	return nil
}

func toRecord(l listing.Listing) []string {
	return []string{
		l.Name, l.Title, l.Description, l.ProfileLink,
		l.Source, l.Location, l.Experience, string(l.Role),
		l.SubjectsJoined(),
	}
}

// readListings loads a listings file written by this sink. A missing
// file is an empty result, not an error.
func readListings(path string) ([]listing.Listing, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	index := make(map[string]int, len(records[0]))
	for i, col := range records[0] {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}
	field := func(rec []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var out []listing.Listing
	for _, rec := range records[1:] {
		l := listing.Listing{
			Name:        field(rec, "name"),
			Title:       field(rec, "title"),
			Description: field(rec, "description"),
			ProfileLink: field(rec, "profile_link"),
			Source:      field(rec, "source"),
			Location:    field(rec, "location"),
			Experience:  field(rec, "experience"),
			Role:        listing.Role(field(rec, "role")),
		}
		if subjects := field(rec, "subjects"); subjects != "" && subjects != "N/A" {
			for _, s := range strings.Split(subjects, ",") {
				if s = strings.TrimSpace(s); s != "" {
					l.Subjects = append(l.Subjects, s)
				}
			}
		}
		out = append(out, l)
	}
	return out, nil
}
