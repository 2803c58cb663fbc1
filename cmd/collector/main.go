// Command collector gathers tutor and student listings from search APIs
// and tutoring platforms, then persists them to CSV and MongoDB.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
