package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	clearConfigPath string
	clearYes        bool
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every record in the matches table",
	Long:  `Deletes all match records from the backing store and invalidates the cache. Buyers and properties are untouched.`,
	RunE:  runClear,
}

func init() {
	clearCmd.Flags().StringVar(&clearConfigPath, "config", "", "Path to config.json file (env vars fill any gaps)")
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(clearCmd)
}

func runClear(_ *cobra.Command, _ []string) error {
	if !clearYes {
		fmt.Fprint(os.Stdout, "This deletes every match record. Continue? [y/N]: ")
		var answer string
		_, _ = fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Fprintln(os.Stdout, "Aborted.")
			return nil
		}
	}

	cfg, err := loadMergedConfig(clearConfigPath)
	if err != nil {
		return err
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

	runner := buildRunner(st, c, cfg)
	deleted, err := runner.ClearAll(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Deleted %d match records.\n", deleted)
	return nil
}
