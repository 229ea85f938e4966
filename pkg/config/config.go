/*
Package config manages TOML config for WordCheck services.
*/
package config

import (
	"math"
	"os"
	"path/filepath"

	"github.com/bastiangx/wordcheck/internal/utils"
	"github.com/bastiangx/wordcheck/pkg/dictionary"
	"github.com/bastiangx/wordcheck/pkg/distance"
	"github.com/bastiangx/wordcheck/pkg/index"
	"github.com/bastiangx/wordcheck/pkg/suggest"
	"github.com/bastiangx/wordcheck/pkg/userdict"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure
type Config struct {
	Spell  SpellConfig  `toml:"spell"`
	Dict   DictConfig   `toml:"dict"`
	Server ServerConfig `toml:"server"`
	Redis  RedisConfig  `toml:"redis"`
	CLI    CliConfig    `toml:"cli"`
}

// SpellConfig holds the engine parameters. Changing any of the first three
// invalidates saved snapshots.
type SpellConfig struct {
	FalsePositiveRate float64 `toml:"false_positive_rate"`
	MaxEditDistance   int     `toml:"max_edit_distance"`
	Transpositions    bool    `toml:"transpositions"`
	MaxSuggestions    int     `toml:"max_suggestions"`
	MaxVariants       int     `toml:"max_variants"`
}

// DictConfig holds dictionary options.
type DictConfig struct {
	DataDir      string         `toml:"data_dir"`
	SnapshotDir  string         `toml:"snapshot_dir"`
	Languages    []string       `toml:"languages"`
	Watch        bool           `toml:"watch"`
	BuildWorkers int            `toml:"build_workers"`
	Sources      []SourceConfig `toml:"source"`
}

// SourceConfig maps a language to its dictionary file or chunk directory.
// Relative paths, here and in snapshot_dir, resolve against data_dir.
type SourceConfig struct {
	Lang string `toml:"lang"`
	Path string `toml:"path"`
}

// ServerConfig has server related options.
type ServerConfig struct {
	MaxLimit     int     `toml:"max_limit"`
	MaxTermLen   int     `toml:"max_term_len"`
	EnableFilter bool    `toml:"enable_filter"`
	RateLimit    float64 `toml:"rate_limit"`
}

// RedisConfig holds the user dictionary backend options.
type RedisConfig struct {
	Enabled   bool   `toml:"enabled"`
	Addr      string `toml:"addr"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	KeyPrefix string `toml:"key_prefix"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit int  `toml:"default_limit"`
	KeepCase     bool `toml:"keep_case"`
}

const (
	minFalsePositiveRate = 1e-9
	maxFalsePositiveRate = 0.5
	maxEditDistanceLimit = 4
)

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
// 4. builtin defaults
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		execDir, execErr := utils.GetExecutableDir()
		if execErr != nil {
			return "", execErr
		}
		return execDir, nil
	}
	primaryPath := filepath.Join(homeDir, ".config", "wordcheck")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "wordcheck")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/wordcheck/config.toml
// 3. Builtin defaults
// Environment overrides and validation apply in every case.
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	config, path := loadWithPriority(customConfigPath)
	config.ApplyEnv()
	config.Validate()
	return config, path, nil
}

func loadWithPriority(customConfigPath string) (*Config, string) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err == nil {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath
			}
			log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), ""
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), ""
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Spell: SpellConfig{
			FalsePositiveRate: suggest.DefaultFalsePositiveRate,
			MaxEditDistance:   index.DefaultMaxDistance,
			Transpositions:    false,
			MaxSuggestions:    suggest.DefaultMaxSuggestions,
			MaxVariants:       20000,
		},
		Dict: DictConfig{
			DataDir:      "data",
			SnapshotDir:  "snapshots",
			Languages:    []string{"en"},
			Watch:        false,
			BuildWorkers: 4,
			Sources:      []SourceConfig{{Lang: "en", Path: "en.txt"}},
		},
		Server: ServerConfig{
			MaxLimit:     64,
			MaxTermLen:   60,
			EnableFilter: true,
			RateLimit:    0,
		},
		Redis: RedisConfig{
			Enabled:   false,
			Addr:      "localhost:6379",
			KeyPrefix: userdict.DefaultKeyPrefix,
		},
		CLI: CliConfig{
			DefaultLimit: 5,
			KeepCase:     true,
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()
	// arrays in the file replace the defaults instead of appending to them
	config.Dict.Sources = nil
	config.Dict.Languages = nil

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	defaults := DefaultConfig()
	if config.Dict.Languages == nil {
		config.Dict.Languages = defaults.Dict.Languages
	}
	if config.Dict.Sources == nil {
		config.Dict.Sources = defaults.Dict.Sources
	}
	return config, nil
}

// tryPartialParse attempts to parse a TOML file
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "spell"); ok {
		extractSpellConfig(section, &config.Spell)
	}
	if section, ok := utils.ExtractSection(tempConfig, "dict"); ok {
		extractDictConfig(section, &config.Dict)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "redis"); ok {
		extractRedisConfig(section, &config.Redis)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	return config, nil
}

func extractSpellConfig(data map[string]any, spell *SpellConfig) {
	if val, ok := utils.ExtractFloat(data, "false_positive_rate"); ok {
		spell.FalsePositiveRate = val
	}
	if val, ok := utils.ExtractInt64(data, "max_edit_distance"); ok {
		spell.MaxEditDistance = val
	}
	if val, ok := utils.ExtractBool(data, "transpositions"); ok {
		spell.Transpositions = val
	}
	if val, ok := utils.ExtractInt64(data, "max_suggestions"); ok {
		spell.MaxSuggestions = val
	}
	if val, ok := utils.ExtractInt64(data, "max_variants"); ok {
		spell.MaxVariants = val
	}
}

func extractDictConfig(data map[string]any, dict *DictConfig) {
	if val, ok := utils.ExtractString(data, "data_dir"); ok {
		dict.DataDir = val
	}
	if val, ok := utils.ExtractString(data, "snapshot_dir"); ok {
		dict.SnapshotDir = val
	}
	if val, ok := utils.ExtractStrings(data, "languages"); ok {
		dict.Languages = val
	}
	if val, ok := utils.ExtractBool(data, "watch"); ok {
		dict.Watch = val
	}
	if val, ok := utils.ExtractInt64(data, "build_workers"); ok {
		dict.BuildWorkers = val
	}
	if raw, ok := data["source"].([]map[string]any); ok {
		var sources []SourceConfig
		for _, src := range raw {
			lang, _ := utils.ExtractString(src, "lang")
			path, _ := utils.ExtractString(src, "path")
			if lang != "" && path != "" {
				sources = append(sources, SourceConfig{Lang: lang, Path: path})
			}
		}
		dict.Sources = sources
	}
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		server.MaxLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "max_term_len"); ok {
		server.MaxTermLen = val
	}
	if val, ok := utils.ExtractBool(data, "enable_filter"); ok {
		server.EnableFilter = val
	}
	if val, ok := utils.ExtractFloat(data, "rate_limit"); ok {
		server.RateLimit = val
	}
}

func extractRedisConfig(data map[string]any, redis *RedisConfig) {
	if val, ok := utils.ExtractBool(data, "enabled"); ok {
		redis.Enabled = val
	}
	if val, ok := utils.ExtractString(data, "addr"); ok {
		redis.Addr = val
	}
	if val, ok := utils.ExtractString(data, "password"); ok {
		redis.Password = val
	}
	if val, ok := utils.ExtractInt64(data, "db"); ok {
		redis.DB = val
	}
	if val, ok := utils.ExtractString(data, "key_prefix"); ok {
		redis.KeyPrefix = val
	}
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		cli.DefaultLimit = val
	}
	if val, ok := utils.ExtractBool(data, "keep_case"); ok {
		cli.KeepCase = val
	}
}

// ApplyEnv overrides values from the environment. Invalid values are
// logged and ignored.
func (c *Config) ApplyEnv() {
	if v, ok := utils.EnvFloat("WORDCHECK_FP_RATE"); ok {
		c.Spell.FalsePositiveRate = v
	}
	if v, ok := utils.EnvInt("WORDCHECK_MAX_DISTANCE"); ok {
		c.Spell.MaxEditDistance = v
	}
	if v, ok := utils.EnvInt("WORDCHECK_MAX_SUGGESTIONS"); ok {
		c.Spell.MaxSuggestions = v
	}
	if v, ok := utils.EnvBool("WORDCHECK_TRANSPOSITIONS"); ok {
		c.Spell.Transpositions = v
	}
	if v, ok := utils.EnvList("WORDCHECK_LANGUAGES"); ok {
		c.Dict.Languages = v
	}
	c.Redis.Addr = utils.EnvString("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = utils.EnvString("REDIS_PASSWORD", c.Redis.Password)
	if v, ok := utils.EnvInt("REDIS_DB"); ok {
		c.Redis.DB = v
	}
}

// Validate clamps out-of-range values back to something usable.
func (c *Config) Validate() {
	defaults := DefaultConfig()
	fp := c.Spell.FalsePositiveRate
	if math.IsNaN(fp) || fp <= 0 || fp >= 1 {
		log.Warnf("false_positive_rate %v out of (0,1), using %v", fp, defaults.Spell.FalsePositiveRate)
		c.Spell.FalsePositiveRate = defaults.Spell.FalsePositiveRate
	} else {
		c.Spell.FalsePositiveRate = min(max(fp, minFalsePositiveRate), maxFalsePositiveRate)
	}
	if c.Spell.MaxEditDistance < 0 || c.Spell.MaxEditDistance > maxEditDistanceLimit {
		log.Warnf("max_edit_distance %d out of [0,%d], using %d", c.Spell.MaxEditDistance, maxEditDistanceLimit, defaults.Spell.MaxEditDistance)
		c.Spell.MaxEditDistance = defaults.Spell.MaxEditDistance
	}
	if c.Spell.MaxSuggestions < 1 {
		c.Spell.MaxSuggestions = defaults.Spell.MaxSuggestions
	}
	if c.Spell.MaxVariants < 0 {
		c.Spell.MaxVariants = 0
	}
	if c.Dict.BuildWorkers < 1 {
		c.Dict.BuildWorkers = 1
	}
	if len(c.Dict.Languages) == 0 {
		c.Dict.Languages = defaults.Dict.Languages
	}
	if c.Server.MaxLimit < 1 {
		c.Server.MaxLimit = defaults.Server.MaxLimit
	}
	if c.Server.MaxTermLen < 1 {
		c.Server.MaxTermLen = defaults.Server.MaxTermLen
	}
	if c.Server.RateLimit < 0 {
		c.Server.RateLimit = 0
	}
	if c.CLI.DefaultLimit < 1 {
		c.CLI.DefaultLimit = defaults.CLI.DefaultLimit
	}
}

// BuildOptions translates the spell section for the engine.
func (c *Config) BuildOptions() suggest.BuildOptions {
	metric := distance.Levenshtein
	if c.Spell.Transpositions {
		metric = distance.OSA
	}
	return suggest.BuildOptions{
		FalsePositiveRate: c.Spell.FalsePositiveRate,
		Index: index.Options{
			MaxDistance: c.Spell.MaxEditDistance,
			Metric:      metric,
			MaxVariants: c.Spell.MaxVariants,
		},
		MaxSuggestions: c.Spell.MaxSuggestions,
	}
}

// SnapshotPath resolves snapshot_dir against dataDir. Empty disables snapshots.
func (c *Config) SnapshotPath(dataDir string) string {
	return utils.ResolveRelativePath(dataDir, c.Dict.SnapshotDir)
}

// DictSources returns the configured sources of enabled languages, with
// relative paths resolved against dataDir. A language without an explicit
// source falls back to <dataDir>/<lang>.txt when that file exists.
func (c *Config) DictSources(dataDir string) map[string]dictionary.Source {
	enabled := make(map[string]bool, len(c.Dict.Languages))
	for _, lang := range c.Dict.Languages {
		enabled[lang] = true
	}
	sources := make(map[string]dictionary.Source)
	for _, src := range c.Dict.Sources {
		if !enabled[src.Lang] {
			continue
		}
		sources[src.Lang] = dictionary.Source{Lang: src.Lang, Path: utils.ResolveRelativePath(dataDir, src.Path)}
	}
	for _, lang := range c.Dict.Languages {
		if _, ok := sources[lang]; ok {
			continue
		}
		guess := filepath.Join(dataDir, lang+".txt")
		if utils.FileExists(guess) {
			sources[lang] = dictionary.Source{Lang: lang, Path: guess}
		}
	}
	return sources
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
