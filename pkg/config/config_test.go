package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bastiangx/wordcheck/pkg/dictionary"
	"github.com/bastiangx/wordcheck/pkg/distance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestInitConfigCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := InitConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.FileExists(t, path)

	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, reloaded)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[spell]
false_positive_rate = 0.01
max_edit_distance = 1
transpositions = true

[dict]
data_dir = "/srv/dicts"
languages = ["en", "kn"]

[[dict.source]]
lang = "kn"
path = "kn_chunks"

[server]
rate_limit = 50.0
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.01, cfg.Spell.FalsePositiveRate)
	assert.Equal(t, 1, cfg.Spell.MaxEditDistance)
	assert.True(t, cfg.Spell.Transpositions)
	assert.Equal(t, 5, cfg.Spell.MaxSuggestions, "unset keys keep defaults")
	assert.Equal(t, []string{"en", "kn"}, cfg.Dict.Languages)
	assert.Equal(t, []SourceConfig{{Lang: "kn", Path: "kn_chunks"}}, cfg.Dict.Sources)
	assert.Equal(t, 50.0, cfg.Server.RateLimit)

	opts := cfg.BuildOptions()
	assert.Equal(t, distance.OSA, opts.Index.Metric)
	assert.Equal(t, 1, opts.Index.MaxDistance)
	assert.Equal(t, 0.01, opts.FalsePositiveRate)
}

func TestPartialRecovery(t *testing.T) {
	// a type error in one key fails strict decoding but the rest survives
	path := writeConfig(t, `
[spell]
max_edit_distance = "two"
max_suggestions = 9

[server]
max_limit = 10
enable_filter = false

[redis]
enabled = true
addr = "cache:6379"

[[dict.source]]
lang = "en"
path = "english.txt"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Spell.MaxEditDistance)
	assert.Equal(t, 9, cfg.Spell.MaxSuggestions)
	assert.Equal(t, 10, cfg.Server.MaxLimit)
	assert.False(t, cfg.Server.EnableFilter)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, []SourceConfig{{Lang: "en", Path: "english.txt"}}, cfg.Dict.Sources)
}

func TestUnparseableFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, "this is [not toml")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("WORDCHECK_FP_RATE", "0.05")
	t.Setenv("WORDCHECK_MAX_DISTANCE", "3")
	t.Setenv("WORDCHECK_MAX_SUGGESTIONS", "bogus")
	t.Setenv("WORDCHECK_LANGUAGES", "en,kn")
	t.Setenv("WORDCHECK_TRANSPOSITIONS", "true")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("REDIS_DB", "2")

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	assert.Equal(t, 0.05, cfg.Spell.FalsePositiveRate)
	assert.Equal(t, 3, cfg.Spell.MaxEditDistance)
	assert.Equal(t, 5, cfg.Spell.MaxSuggestions, "invalid values are ignored")
	assert.Equal(t, []string{"en", "kn"}, cfg.Dict.Languages)
	assert.True(t, cfg.Spell.Transpositions)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Config)
		check func(*testing.T, *Config)
	}{
		{"zero fp rate", func(c *Config) { c.Spell.FalsePositiveRate = 0 }, func(t *testing.T, c *Config) {
			assert.Equal(t, 0.001, c.Spell.FalsePositiveRate)
		}},
		{"fp rate of one", func(c *Config) { c.Spell.FalsePositiveRate = 1 }, func(t *testing.T, c *Config) {
			assert.Equal(t, 0.001, c.Spell.FalsePositiveRate)
		}},
		{"huge fp rate clamps", func(c *Config) { c.Spell.FalsePositiveRate = 0.9 }, func(t *testing.T, c *Config) {
			assert.Equal(t, 0.5, c.Spell.FalsePositiveRate)
		}},
		{"negative distance", func(c *Config) { c.Spell.MaxEditDistance = -1 }, func(t *testing.T, c *Config) {
			assert.Equal(t, 2, c.Spell.MaxEditDistance)
		}},
		{"zero workers", func(c *Config) { c.Dict.BuildWorkers = 0 }, func(t *testing.T, c *Config) {
			assert.Equal(t, 1, c.Dict.BuildWorkers)
		}},
		{"no languages", func(c *Config) { c.Dict.Languages = nil }, func(t *testing.T, c *Config) {
			assert.Equal(t, []string{"en"}, c.Dict.Languages)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.setup(cfg)
			cfg.Validate()
			tt.check(t, cfg)
		})
	}
}

func TestDictSources(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "de.txt"), []byte("hallo 1\n"), 0644))

	cfg := DefaultConfig()
	cfg.Dict.Languages = []string{"en", "kn", "de", "fr"}
	cfg.Dict.Sources = []SourceConfig{
		{Lang: "en", Path: "en.txt"},
		{Lang: "kn", Path: "/abs/kn"},
		{Lang: "xx", Path: "ignored.txt"},
	}

	got := cfg.DictSources(dataDir)
	assert.Equal(t, map[string]dictionary.Source{
		"en": {Lang: "en", Path: filepath.Join(dataDir, "en.txt")},
		"kn": {Lang: "kn", Path: "/abs/kn"},
		"de": {Lang: "de", Path: filepath.Join(dataDir, "de.txt")},
	}, got)

	assert.Equal(t, filepath.Join(dataDir, "snapshots"), cfg.SnapshotPath(dataDir))
	cfg.Dict.SnapshotDir = ""
	assert.Equal(t, "", cfg.SnapshotPath(dataDir))
}
