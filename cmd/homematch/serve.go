package main

import (
	"context"
	"fmt"

	"github.com/jonathan/homematch/internal/config"
	"github.com/jonathan/homematch/internal/server"
	"github.com/spf13/cobra"
)

var (
	servePort       int
	serveConfigPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for running matching, listing matches, and clearing the matches table.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file (env vars fill any gaps)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadMergedConfig(serveConfigPath)
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

	srv, err := server.New(server.Config{
		Port:   servePort,
		Runner: buildRunner(st, c, cfg),
		Store:  st,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

// loadMergedConfig loads an optional JSON config file and fills any empty
// fields from the environment.
func loadMergedConfig(path string) (config.Config, error) {
	env := config.FromEnv()

	if path == "" {
		if err := env.Validate(); err != nil {
			return config.Config{}, err
		}
		return env, nil
	}

	loaded, err := config.LoadConfig(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	merged := loaded.MergeWithDefaults(env)
	if err := merged.Validate(); err != nil {
		return config.Config{}, err
	}
	return merged, nil
}
