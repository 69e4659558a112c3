package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `{
		"airtable_api_key": "key123",
		"airtable_base_id": "appBASE",
		"min_score": 40,
		"verbose": true
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "key123", cfg.AirtableAPIKey)
	assert.Equal(t, "appBASE", cfg.AirtableBaseID)
	assert.Equal(t, 40, cfg.MinScore)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := writeConfigFile(t, `{not json`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestFromEnv(t *testing.T) {
	t.Setenv("AIRTABLE_API_KEY", "envkey")
	t.Setenv("AIRTABLE_BASE_ID", "appENV")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("MATCH_MIN_SCORE", "25")
	t.Setenv("MATCH_CONCURRENCY", "not-a-number")

	cfg := FromEnv()
	assert.Equal(t, "envkey", cfg.AirtableAPIKey)
	assert.Equal(t, "appENV", cfg.AirtableBaseID)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 25, cfg.MinScore)
	assert.Equal(t, 0, cfg.Concurrency)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"empty config is valid", Config{}, ""},
		{"complete airtable config", Config{AirtableAPIKey: "k", AirtableBaseID: "b"}, ""},
		{"api key without base id", Config{AirtableAPIKey: "k"}, "airtable_base_id"},
		{"min score too high", Config{MinScore: 101}, "min_score"},
		{"negative min score", Config{MinScore: -1}, "min_score"},
		{"negative batch size", Config{BatchSize: -5}, "batch_size"},
		{"negative concurrency", Config{Concurrency: -1}, "concurrency"},
		{"negative cache ttl", Config{CacheTTLMinutes: -10}, "cache_ttl_minutes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{
		AirtableAPIKey: "filekey",
		MinScore:       40,
	}
	defaults := Config{
		AirtableAPIKey:  "envkey",
		AirtableBaseID:  "appENV",
		RedisAddr:       "localhost:6379",
		MinScore:        30,
		BatchSize:       10,
		CacheTTLMinutes: 5,
	}

	merged := cfg.MergeWithDefaults(defaults)

	// Explicit values win; empty fields fall back to defaults.
	assert.Equal(t, "filekey", merged.AirtableAPIKey)
	assert.Equal(t, 40, merged.MinScore)
	assert.Equal(t, "appENV", merged.AirtableBaseID)
	assert.Equal(t, "localhost:6379", merged.RedisAddr)
	assert.Equal(t, 10, merged.BatchSize)
	assert.Equal(t, 5, merged.CacheTTLMinutes)
}
