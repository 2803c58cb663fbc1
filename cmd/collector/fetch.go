package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tuitiondata/collector/internal/collector"
)

var (
	fetchSource        string
	fetchQuery         string
	fetchLimit         int
	fetchMaxSave       int
	fetchOutput        string
	fetchOutputPath    string
	fetchAppend        bool
	fetchMaxExperience int
	fetchNoStudents    bool
	fetchIndiaOnly     bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run one query against the selected sources",
	Example: `  collector fetch --query "math tutor in delhi"
  collector fetch --source api --query "physics tutor in mumbai" --limit 50
  collector fetch --source urbanpro --query "chemistry tutor in pune" --output both`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		client := buildClient(cfg)
		adapters, err := buildAdapters(client, cfg, fetchSource)
		if err != nil {
			return err
		}

		if !fetchAppend {
			removeOutputFiles(fetchOutputPath)
		}
		sink, err := buildSink(ctx, cfg, fetchOutput, fetchOutputPath)
		if err != nil {
			return err
		}
		defer sink.Close(ctx)

		result, err := collector.Fetch(ctx, adapters, fetchQuery, sink, &collector.FetchOptions{
			Limit:   fetchLimit,
			MaxSave: fetchMaxSave,
			Filters: collector.Filters{
				ExcludeStudents:    fetchNoStudents,
				IndiaOnly:          fetchIndiaOnly,
				MaxExperienceYears: fetchMaxExperience,
			},
		})
		if result != nil {
			printSummary(result)
		}
		if err != nil {
			return err
		}
		if len(result.Listings) == 0 {
			return fmt.Errorf("no listings collected for %q", fetchQuery)
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchSource, "source", "all", "source to scrape (api, google, urbanpro, superprof, direct, all)")
	fetchCmd.Flags().StringVar(&fetchQuery, "query", "", "search query, e.g. \"math tutor in delhi\"")
	fetchCmd.Flags().IntVar(&fetchLimit, "limit", 20, "listings to request per source")
	fetchCmd.Flags().IntVar(&fetchMaxSave, "max-save", 0, "cap on saved listings (0 = no cap)")
	fetchCmd.Flags().StringVar(&fetchOutput, "output", "csv", "where to save (csv, mongo, both)")
	fetchCmd.Flags().StringVar(&fetchOutputPath, "output-path", "tutors.csv", "CSV output path")
	fetchCmd.Flags().BoolVar(&fetchAppend, "append", true, "merge into an existing output file instead of replacing it")
	fetchCmd.Flags().IntVar(&fetchMaxExperience, "max-experience", 0, "keep only tutors with fewer than this many years (0 = off)")
	fetchCmd.Flags().BoolVar(&fetchNoStudents, "exclude-students", false, "drop listings classified as student requests")
	fetchCmd.Flags().BoolVar(&fetchIndiaOnly, "india-only", false, "keep only profiles tied to an Indian city")
	_ = fetchCmd.MarkFlagRequired("query")
}

// removeOutputFiles clears a CSV target and its student sibling so a
// non-append run starts clean.
func removeOutputFiles(path string) {
	_ = os.Remove(path)
	if sibling := studentSibling(path); sibling != "" {
		_ = os.Remove(sibling)
	}
}
