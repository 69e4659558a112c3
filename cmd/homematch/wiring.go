package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jonathan/homematch/internal/airtable"
	"github.com/jonathan/homematch/internal/cache"
	"github.com/jonathan/homematch/internal/config"
	"github.com/jonathan/homematch/internal/geocode"
	"github.com/jonathan/homematch/internal/observability"
	"github.com/jonathan/homematch/internal/pipeline"
	"github.com/jonathan/homematch/internal/store"
)

// closer tears down whatever connections the wiring opened.
type closer func()

// buildStore selects the backing store from config. A DATABASE_URL wins over
// Airtable credentials so the same .env can carry both during migration.
func buildStore(ctx context.Context, cfg config.Config) (store.Store, closer, error) {
	if cfg.DatabaseURL != "" {
		pg, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return pg, pg.Close, nil
	}

	if cfg.AirtableAPIKey == "" || cfg.AirtableBaseID == "" {
		return nil, nil, fmt.Errorf("no backing store configured: set DATABASE_URL or AIRTABLE_API_KEY and AIRTABLE_BASE_ID")
	}

	tables := store.DefaultTables()
	if cfg.BuyersTable != "" {
		tables.Buyers = cfg.BuyersTable
	}
	if cfg.PropertiesTable != "" {
		tables.Properties = cfg.PropertiesTable
	}
	if cfg.MatchesTable != "" {
		tables.Matches = cfg.MatchesTable
	}

	client := airtable.NewClient(cfg.AirtableAPIKey, cfg.AirtableBaseID, nil)
	return store.NewAirtableStore(client, tables), func() {}, nil
}

// buildCache returns a Redis-backed cache when REDIS_ADDR is set, falling
// back to the in-process cache otherwise.
func buildCache(ctx context.Context, cfg config.Config) (cache.Cache, closer, error) {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(), func() {}, nil
	}

	rc, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rc, func() { _ = rc.Close() }, nil
}

// buildRunner assembles the matching runner from config.
func buildRunner(st store.Store, c cache.Cache, cfg config.Config) *pipeline.Runner {
	opts := []pipeline.RunnerOption{
		pipeline.WithPrinter(observability.NewPrinter(os.Stdout)),
	}
	if cfg.MapboxToken != "" {
		opts = append(opts, pipeline.WithGeocoder(geocode.NewClient(cfg.MapboxToken, nil)))
	}
	if cfg.CacheTTLMinutes > 0 {
		opts = append(opts, pipeline.WithCacheTTL(time.Duration(cfg.CacheTTLMinutes)*time.Minute))
	}
	return pipeline.NewRunner(st, c, opts...)
}

// runOptions maps config values onto pipeline run options.
func runOptions(cfg config.Config) pipeline.Options {
	opts := pipeline.Options{
		BatchSize:   cfg.BatchSize,
		Concurrency: cfg.Concurrency,
		Verbose:     cfg.Verbose,
	}
	if cfg.MinScore != 0 {
		opts.MinScore = &cfg.MinScore
	}
	return opts
}
