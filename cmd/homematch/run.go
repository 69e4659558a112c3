package main

import (
	"context"
	"fmt"

	"github.com/jonathan/homematch/internal/pipeline"
	"github.com/spf13/cobra"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Score buyers against properties and persist the matches",
	Long: `Fetches buyers and properties from the backing store, scores every pair,
and writes matches at or above the minimum score to the matches table.

By default only new pairs are scored. Use --refresh-all to re-score pairs
that already have a match record. Scope the run to a single record with
--buyer or --property.`,
	RunE: runMatchingCmd,
}

var (
	runConfigPath  string
	runBuyerID     string
	runPropertyID  string
	runMinScore    int
	runRefreshAll  bool
	runGeocode     bool
	runVerbose     bool
)

func init() {
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (env vars fill any gaps)")
	runCommand.Flags().StringVarP(&runBuyerID, "buyer", "b", "", "Score a single buyer against all properties")
	runCommand.Flags().StringVarP(&runPropertyID, "property", "p", "", "Score a single property against all buyers")
	runCommand.Flags().IntVar(&runMinScore, "min-score", 0, "Minimum score to persist a match; 0 persists every scored pair (default 30)")
	runCommand.Flags().BoolVar(&runRefreshAll, "refresh-all", false, "Re-score pairs that already have a match record")
	runCommand.Flags().BoolVar(&runGeocode, "geocode", false, "Geocode buyer locations that lack coordinates (requires MAPBOX_TOKEN)")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print a breakdown for every scored pair")

	rootCmd.AddCommand(runCommand)
}

func runMatchingCmd(cmd *cobra.Command, _ []string) error {
	if runBuyerID != "" && runPropertyID != "" {
		return fmt.Errorf("--buyer and --property are mutually exclusive")
	}

	cfg, err := loadMergedConfig(runConfigPath)
	if err != nil {
		return err
	}

	// CLI flags take priority over config file and env values
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}

	ctx := context.Background()

	st, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	c, closeCache, err := buildCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	if runGeocode && cfg.MapboxToken == "" {
		return fmt.Errorf("--geocode requires MAPBOX_TOKEN to be set")
	}

	runner := buildRunner(st, c, cfg)

	opts := runOptions(cfg)
	opts.RefreshAll = runRefreshAll
	opts.Geocode = runGeocode
	// An explicit --min-score wins, including --min-score 0, which persists
	// every scored pair.
	if cmd.Flags().Changed("min-score") {
		opts.MinScore = &runMinScore
	}

	var stats *pipeline.RunStats
	switch {
	case runBuyerID != "":
		stats, err = runner.RunBuyer(ctx, runBuyerID, opts)
	case runPropertyID != "":
		stats, err = runner.RunProperty(ctx, runPropertyID, opts)
	default:
		stats, err = runner.RunAll(ctx, opts)
	}
	if err != nil {
		return err
	}

	if stats.Errors > 0 {
		return fmt.Errorf("run completed with %d failed batches", stats.Errors)
	}
	return nil
}
