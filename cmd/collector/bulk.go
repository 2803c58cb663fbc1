package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tuitiondata/collector/internal/collector"
)

var (
	bulkSubjects      string
	bulkCities        string
	bulkLimit         int
	bulkWorkers       int
	bulkPerTaskLimit  int
	bulkFlush         int
	bulkSource        string
	bulkOutput        string
	bulkOutputPath    string
	bulkMaxExperience int
	bulkNoStudents    bool
	bulkIndiaOnly     bool
)

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Run a large collection across subject and city combinations",
	Long: `bulk expands subjects and cities into a query per combination and works
through them with a worker pool. Metered API calls are throttled globally;
results are flushed to storage in batches so an interrupted run keeps what
it gathered.`,
	Example: `  collector bulk --limit 1000
  collector bulk --subjects math,physics --cities delhi,mumbai --output both`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		client := buildClient(cfg)
		adapters, err := buildAdapters(client, cfg, bulkSource)
		if err != nil {
			return err
		}
		sink, err := buildSink(ctx, cfg, bulkOutput, bulkOutputPath)
		if err != nil {
			return err
		}
		defer sink.Close(ctx)

		tasks := collector.BuildTasks(
			splitFlagList(bulkSubjects), splitFlagList(bulkCities),
			adapters, bulkPerTaskLimit,
		)

		opts := collector.DefaultBulkOptions()
		opts.Limit = bulkLimit
		opts.Workers = bulkWorkers
		opts.FlushThreshold = bulkFlush
		opts.APIConcurrency = cfg.APIMaxConcurrency
		opts.APIMinInterval = cfg.APIMinInterval
		opts.Filters = collector.Filters{
			ExcludeStudents:    bulkNoStudents,
			IndiaOnly:          bulkIndiaOnly,
			MaxExperienceYears: bulkMaxExperience,
		}

		result, err := collector.BulkCollect(ctx, tasks, sink, opts)
		if result != nil {
			printSummary(result)
		}
		if err != nil {
			return err
		}
		if len(result.Listings) == 0 {
			return fmt.Errorf("no listings collected")
		}
		return nil
	},
}

func init() {
	bulkCmd.Flags().StringVar(&bulkSubjects, "subjects", "", "comma-separated subjects (default: built-in list)")
	bulkCmd.Flags().StringVar(&bulkCities, "cities", "", "comma-separated cities (default: built-in list)")
	bulkCmd.Flags().IntVar(&bulkLimit, "limit", 500, "stop after this many listings are kept")
	bulkCmd.Flags().IntVar(&bulkWorkers, "workers", 8, "worker pool size")
	bulkCmd.Flags().IntVar(&bulkPerTaskLimit, "per-task-limit", 20, "listings to request per task")
	bulkCmd.Flags().IntVar(&bulkFlush, "flush", 250, "flush to storage every N listings")
	bulkCmd.Flags().StringVar(&bulkSource, "source", "all", "source to scrape (api, google, urbanpro, superprof, direct, all)")
	bulkCmd.Flags().StringVar(&bulkOutput, "output", "csv", "where to save (csv, mongo, both)")
	bulkCmd.Flags().StringVar(&bulkOutputPath, "output-path", "tutors.csv", "CSV output path")
	bulkCmd.Flags().IntVar(&bulkMaxExperience, "max-experience", 0, "keep only tutors with fewer than this many years (0 = off)")
	bulkCmd.Flags().BoolVar(&bulkNoStudents, "exclude-students", false, "drop listings classified as student requests")
	bulkCmd.Flags().BoolVar(&bulkIndiaOnly, "india-only", false, "keep only profiles tied to an Indian city")
}
