// Package main provides the entry point for the HomeMatch CLI and API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "homematch",
	Short: "HomeMatch buyer/property matching engine",
	Long:  "HomeMatch scores every buyer against every property listing, persists the ranked matches to the CRM, and serves them over a REST API.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
