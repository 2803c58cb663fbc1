package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tuitiondata/collector/internal/browser"
	"github.com/tuitiondata/collector/internal/collector"
	"github.com/tuitiondata/collector/pkg/listing"
)

var (
	browseSubjects   string
	browseCities     string
	browseLimit      int
	browseWorkers    int
	browseFlush      int
	browsePerPair    int
	browseHeadful    bool
	browseOutput     string
	browseOutputPath string
	browseNoStudents bool
	browseIndiaOnly  bool
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Collect through headless browser sessions with API fallback",
	Long: `browse drives a headless browser against tutoring platforms, harvesting
listings from the JSON calls their pages make. Each (subject, city) pair
gets a fresh session with its own user agent. When a platform blocks the
session, the pair falls back to the search API if credentials are
configured. Ctrl-C drains in-flight sessions before exiting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		sink, err := buildSink(ctx, cfg, browseOutput, browseOutputPath)
		if err != nil {
			return err
		}
		defer sink.Close(ctx)

		sessionCfg := browser.DefaultSessionConfig()
		sessionCfg.Headless = !browseHeadful
		sessionCfg.PerSourceLimit = browsePerPair
		sessionCfg.Proxies = cfg.Proxies
		sessionCfg.UserAgents = cfg.ExtraUserAgents

		collect := func(ctx context.Context, subject, city string) ([]listing.Listing, error) {
			return browser.CollectPair(ctx, subject, city, sessionCfg)
		}

		opts := collector.DefaultAsyncOptions()
		opts.Limit = browseLimit
		opts.Workers = browseWorkers
		opts.FlushThreshold = browseFlush
		opts.PerPairLimit = browsePerPair
		opts.Filters = collector.Filters{
			ExcludeStudents: browseNoStudents,
			IndiaOnly:       browseIndiaOnly,
		}
		if cfg.HasSearchAPI() {
			opts.Fallback = buildSearchAPI(buildClient(cfg), cfg)
		} else {
			log.Info().Msg("No search API credentials, blocked pairs will be skipped")
		}

		pairs := collector.BuildPairs(splitFlagList(browseSubjects), splitFlagList(browseCities))

		result, err := collector.AsyncCollect(ctx, pairs, collect, sink, opts)
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
	browseCmd.Flags().StringVar(&browseSubjects, "subjects", "", "comma-separated subjects (default: built-in list)")
	browseCmd.Flags().StringVar(&browseCities, "cities", "", "comma-separated cities (default: built-in list)")
	browseCmd.Flags().IntVar(&browseLimit, "limit", 0, "stop after this many listings are kept (0 = visit every pair)")
	browseCmd.Flags().IntVar(&browseWorkers, "workers", 3, "concurrent browser sessions")
	browseCmd.Flags().IntVar(&browseFlush, "flush", 100, "flush to storage every N listings")
	browseCmd.Flags().IntVar(&browsePerPair, "per-pair-limit", 25, "listings to keep per subject and city pair")
	browseCmd.Flags().BoolVar(&browseHeadful, "headful", false, "show the browser window")
	browseCmd.Flags().StringVar(&browseOutput, "output", "csv", "where to save (csv, mongo, both)")
	browseCmd.Flags().StringVar(&browseOutputPath, "output-path", "tutors.csv", "CSV output path")
	browseCmd.Flags().BoolVar(&browseNoStudents, "exclude-students", false, "drop listings classified as student requests")
	browseCmd.Flags().BoolVar(&browseIndiaOnly, "india-only", false, "keep only profiles tied to an Indian city")
}
