// Package collector coordinates scraping runs: fanning queries out over
// adapters, deduplicating and filtering what comes back, and flushing
// partial results to storage so interrupted runs keep their progress.
package collector

import (
	"fmt"
	"math/rand"

	"github.com/tuitiondata/collector/internal/scraper"
)

// Task is one unit of collection work: a query against one adapter.
type Task struct {
	Adapter scraper.Adapter
	Query   string
	Subject string
	City    string
	Limit   int
}

// Phrasings are rotated so bulk runs do not hammer the search API with
// one fixed query shape.
var queryTemplates = []string{
	"%s tutor in %s",
	"%s teacher in %s",
	"home tutor for %s in %s",
	"%s tuition classes in %s",
	"private %s tutor %s",
}

// DefaultSubjects are the subjects bulk runs cover when none are given.
var DefaultSubjects = []string{
	"math", "physics", "chemistry", "biology",
	"english", "computer", "programming", "science",
}

// DefaultCities are the cities bulk runs cover when none are given.
var DefaultCities = []string{
	"delhi", "mumbai", "bangalore", "chennai", "kolkata", "pune", "hyderabad",
}

// BuildTasks expands the subject and city lists into a task per
// (subject, city, adapter) combination. Each pair gets one query
// phrasing, picked per pair so adapters scraping the same pair agree on
// the query text.
func BuildTasks(subjects, cities []string, adapters []scraper.Adapter, perTaskLimit int) []Task {
	if len(subjects) == 0 {
		subjects = DefaultSubjects
	}
	if len(cities) == 0 {
		cities = DefaultCities
	}
	if perTaskLimit <= 0 {
		perTaskLimit = 20
	}

	tasks := make([]Task, 0, len(subjects)*len(cities)*len(adapters))
	for _, subject := range subjects {
		for _, city := range cities {
			query := fmt.Sprintf(queryTemplates[rand.Intn(len(queryTemplates))], subject, city)
			for _, adapter := range adapters {
				tasks = append(tasks, Task{
					Adapter: adapter,
					Query:   query,
					Subject: subject,
					City:    city,
					Limit:   perTaskLimit,
				})
			}
		}
	}
	return tasks
}

// Pair is one (subject, city) combination for browser-driven runs.
type Pair struct {
	Subject string
	City    string
}

// BuildPairs expands the subject and city lists into their cross
// product.
func BuildPairs(subjects, cities []string) []Pair {
	if len(subjects) == 0 {
		subjects = DefaultSubjects
	}
	if len(cities) == 0 {
		cities = DefaultCities
	}

	pairs := make([]Pair, 0, len(subjects)*len(cities))
	for _, subject := range subjects {
		for _, city := range cities {
			pairs = append(pairs, Pair{Subject: subject, City: city})
		}
	}
	return pairs
}
