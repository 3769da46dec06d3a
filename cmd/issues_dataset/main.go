// Package main provides the entry point for the issues dataset exporter.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "issues_dataset",
	Short: "Export YouTrack issues and activities as NDJSON",
	Long:  "issues_dataset walks a time range in 7-day windows, downloading matching issues and their activity history into newline-delimited JSON files.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
