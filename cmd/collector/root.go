package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tuitiondata/collector/internal/collector"
	"github.com/tuitiondata/collector/internal/config"
	"github.com/tuitiondata/collector/internal/scraper"
	"github.com/tuitiondata/collector/internal/storage"
	"github.com/tuitiondata/collector/pkg/logging"
)

var (
	cfg *config.Config

	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "collector",
	Short: "Collects tutor and student listings from search APIs and tutoring platforms",
	Long: `collector gathers tutor and student profiles from the Google Custom
Search API, search result pages, and tutoring platforms like UrbanPro and
Superprof. Listings are classified, deduplicated, and written incrementally
to CSV files and optionally MongoDB.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		if logFormat != "" {
			cfg.LogFormat = logFormat
		}
		logCfg := logging.DefaultLogConfig()
		logCfg.Level = cfg.LogLevel
		logCfg.Format = cfg.LogFormat
		if err := logging.SetupLogger(logCfg); err != nil {
			return fmt.Errorf("setting up logging: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (pretty, json)")

	rootCmd.AddCommand(fetchCmd, bulkCmd, browseCmd, initCmd, versionCmd)
}

// signalContext cancels on SIGINT/SIGTERM so runs drain instead of
// losing buffered listings.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func buildClient(cfg *config.Config) *scraper.Client {
	return scraper.NewClient(&scraper.ClientConfig{
		Timeout:         cfg.RequestTimeout,
		MaxRetries:      cfg.MaxRetries,
		HostMinInterval: cfg.HostMinInterval,
		RespectRobots:   cfg.RespectRobots,
		Proxies:         cfg.Proxies,
		ExtraUserAgents: cfg.ExtraUserAgents,
	})
}

func buildSearchAPI(client *scraper.Client, cfg *config.Config) *scraper.SearchAPIAdapter {
	ring := scraper.NewKeyRing(cfg.GoogleAPIKeys, cfg.SearchEngineIDs)
	return scraper.NewSearchAPIAdapter(client, ring, &scraper.SearchAPIConfig{
		DeepFetch:         cfg.DeepFetch,
		DeepFetchPerPage:  3,
		DeepFetchMaxChars: cfg.DeepFetchMaxChars,
	})
}

// buildAdapters resolves a --source value. An unknown source is the one
// error reported before any collection starts.
func buildAdapters(client *scraper.Client, cfg *config.Config, source string) ([]scraper.Adapter, error) {
	switch strings.ToLower(source) {
	case "api":
		if !cfg.HasSearchAPI() {
			return nil, fmt.Errorf("source %q needs GOOGLE_API_KEY and GOOGLE_SEARCH_ENGINE_ID", source)
		}
		return []scraper.Adapter{buildSearchAPI(client, cfg)}, nil
	case "google":
		return []scraper.Adapter{scraper.NewSearchHTMLAdapter(client)}, nil
	case "urbanpro":
		return []scraper.Adapter{scraper.NewUrbanProAdapter(client)}, nil
	case "superprof":
		return []scraper.Adapter{scraper.NewSuperprofAdapter(client)}, nil
	case "direct":
		return []scraper.Adapter{scraper.NewPlatformAdapter(client)}, nil
	case "all":
		adapters := []scraper.Adapter{
			scraper.NewUrbanProAdapter(client),
			scraper.NewSuperprofAdapter(client),
			scraper.NewPlatformAdapter(client),
			scraper.NewSearchHTMLAdapter(client),
		}
		if cfg.HasSearchAPI() {
			adapters = append([]scraper.Adapter{buildSearchAPI(client, cfg)}, adapters...)
		}
		return adapters, nil
	default:
		return nil, fmt.Errorf("unknown source %q (api, google, urbanpro, superprof, direct, all)", source)
	}
}

// buildSink assembles the persistence stack for --output. A MongoDB
// that cannot be reached downgrades "both" to CSV alone; "mongo" alone
// has nothing to fall back to and fails.
func buildSink(ctx context.Context, cfg *config.Config, output, path string) (storage.Sink, error) {
	var sinks []storage.Sink

	switch strings.ToLower(output) {
	case "csv":
		sinks = append(sinks, storage.NewCSVSink(path))
	case "mongo":
		mongoSink, err := storage.NewMongoSink(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			return nil, fmt.Errorf("mongodb sink: %w", err)
		}
		sinks = append(sinks, mongoSink)
	case "both":
		sinks = append(sinks, storage.NewCSVSink(path))
		mongoSink, err := storage.NewMongoSink(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			log.Warn().Err(err).Msg("MongoDB unavailable, continuing with CSV only")
		} else {
			sinks = append(sinks, mongoSink)
		}
	default:
		return nil, fmt.Errorf("unknown output %q (csv, mongo, both)", output)
	}

	return storage.NewMultiSink(sinks...), nil
}

func printSummary(result *collector.Result) {
	s := result.Stats
	fmt.Printf("\nRun %s\n", result.RunID)
	fmt.Printf("  collected:   %d\n", s.Collected)
	fmt.Printf("  duplicates:  %d\n", s.Duplicates)
	if s.DroppedStudents > 0 {
		fmt.Printf("  students:    %d dropped\n", s.DroppedStudents)
	}
	if s.DroppedRegion > 0 {
		fmt.Printf("  region:      %d dropped\n", s.DroppedRegion)
	}
	if s.DroppedExperience > 0 {
		fmt.Printf("  experience:  %d dropped\n", s.DroppedExperience)
	}
	if s.FallbackActivated > 0 {
		fmt.Printf("  fallbacks:   %d\n", s.FallbackActivated)
	}
	if s.AdapterFailures > 0 {
		fmt.Printf("  failures:    %d\n", s.AdapterFailures)
	}
	fmt.Printf("  saved:       %d\n", s.Saved)
}

// studentSibling mirrors the CSV sink's role split: a "tutors" path has
// a "students" counterpart.
func studentSibling(path string) string {
	if !strings.Contains(path, "tutors") {
		return ""
	}
	return strings.Replace(path, "tutors", "students", 1)
}

func splitFlagList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
