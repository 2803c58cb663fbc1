package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const envTemplate = `# Google Custom Search credentials. Comma-separate multiple keys to
# rotate through them when quotas run out.
GOOGLE_API_KEY=
GOOGLE_SEARCH_ENGINE_ID=

# HTTP behavior
SCRAPER_MAX_RETRIES=3
REQUEST_MIN_INTERVAL_MS=500
RESPECT_ROBOTS=true
# WEBSHARE_PROXIES=host1:port,host2:port
# USER_AGENTS=agent one|agent two

# Metered API pacing, shared across all workers
API_MAX_CONCURRENCY=2
API_MIN_INTERVAL_MS=250

# Fetch full result pages for richer classification (costs bandwidth)
DEEP_FETCH=false
DEEP_FETCH_MAX_CHARS=4000

# MongoDB sink
MONGODB_URI=mongodb://localhost:27017
MONGODB_DATABASE=tuition
MONGODB_COLLECTION=listings

LOG_LEVEL=info
LOG_FORMAT=pretty
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter .env file in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(".env"); err == nil {
			return fmt.Errorf(".env already exists, refusing to overwrite")
		}
		if err := os.WriteFile(".env", []byte(envTemplate), 0o600); err != nil {
			return fmt.Errorf("writing .env: %w", err)
		}
		if err := os.MkdirAll("data", 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		fmt.Println("Wrote .env - fill in your credentials before running fetch")
		return nil
	},
}
