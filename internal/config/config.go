// Package config provides configuration loading and validation for the CLI
// and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config represents the matcher configuration that can be loaded from a JSON
// file and overridden by environment variables. All fields are optional;
// missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Backing store
	AirtableAPIKey  string `json:"airtable_api_key,omitempty"`
	AirtableBaseID  string `json:"airtable_base_id,omitempty"`
	BuyersTable     string `json:"buyers_table,omitempty"`
	PropertiesTable string `json:"properties_table,omitempty"`
	MatchesTable    string `json:"matches_table,omitempty"`
	DatabaseURL     string `json:"database_url,omitempty"` // PostgreSQL alternative to Airtable

	// Collaborators
	RedisAddr     string `json:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty"`
	MapboxToken   string `json:"mapbox_token,omitempty"`

	// Run behavior
	MinScore        int  `json:"min_score,omitempty"`
	BatchSize       int  `json:"batch_size,omitempty"`
	Concurrency     int  `json:"concurrency,omitempty"`
	CacheTTLMinutes int  `json:"cache_ttl_minutes,omitempty"`
	Verbose         bool `json:"verbose,omitempty"`
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv builds a Config from environment variables. Values here act as
// defaults under any loaded config file.
func FromEnv() Config {
	return Config{
		AirtableAPIKey:  os.Getenv("AIRTABLE_API_KEY"),
		AirtableBaseID:  os.Getenv("AIRTABLE_BASE_ID"),
		BuyersTable:     os.Getenv("AIRTABLE_BUYERS_TABLE"),
		PropertiesTable: os.Getenv("AIRTABLE_PROPERTIES_TABLE"),
		MatchesTable:    os.Getenv("AIRTABLE_MATCHES_TABLE"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		MapboxToken:     os.Getenv("MAPBOX_TOKEN"),
		MinScore:        envInt("MATCH_MIN_SCORE"),
		BatchSize:       envInt("MATCH_BATCH_SIZE"),
		Concurrency:     envInt("MATCH_CONCURRENCY"),
		CacheTTLMinutes: envInt("MATCH_CACHE_TTL_MINUTES"),
	}
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	// Exactly one backing store must end up configured
	if c.AirtableAPIKey != "" && c.AirtableBaseID == "" {
		return fmt.Errorf("config error: 'airtable_base_id' is required with 'airtable_api_key'")
	}

	// Validate numeric ranges
	if c.MinScore < 0 || c.MinScore > 100 {
		return fmt.Errorf("config error: 'min_score' must be in [0,100]")
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("config error: 'batch_size' must be non-negative")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("config error: 'concurrency' must be non-negative")
	}
	if c.CacheTTLMinutes < 0 {
		return fmt.Errorf("config error: 'cache_ttl_minutes' must be non-negative")
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. This is used to apply env values as defaults for a config file,
// and file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.AirtableAPIKey == "" {
		result.AirtableAPIKey = defaults.AirtableAPIKey
	}
	if result.AirtableBaseID == "" {
		result.AirtableBaseID = defaults.AirtableBaseID
	}
	if result.BuyersTable == "" {
		result.BuyersTable = defaults.BuyersTable
	}
	if result.PropertiesTable == "" {
		result.PropertiesTable = defaults.PropertiesTable
	}
	if result.MatchesTable == "" {
		result.MatchesTable = defaults.MatchesTable
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.RedisAddr == "" {
		result.RedisAddr = defaults.RedisAddr
	}
	if result.RedisPassword == "" {
		result.RedisPassword = defaults.RedisPassword
	}
	if result.MapboxToken == "" {
		result.MapboxToken = defaults.MapboxToken
	}

	// Int fields: use default if zero
	if result.MinScore == 0 {
		result.MinScore = defaults.MinScore
	}
	if result.BatchSize == 0 {
		result.BatchSize = defaults.BatchSize
	}
	if result.Concurrency == 0 {
		result.Concurrency = defaults.Concurrency
	}
	if result.CacheTTLMinutes == 0 {
		result.CacheTTLMinutes = defaults.CacheTTLMinutes
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

func envInt(name string) int {
	raw := os.Getenv(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return v
}
