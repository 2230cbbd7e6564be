package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/prodsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/request"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/strategy"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/weights"
)

// Datastore drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Analytics drivers.
const (
	AnalyticsValkey = "valkey"
	AnalyticsRedis  = "redis"
	AnalyticsBadger = "badger"
	AnalyticsNone   = "none"
)

// Config holds the prodsearch API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Datastore DatastoreConfig `yaml:"datastore"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Search    SearchConfig    `yaml:"search"`
	Cache     CacheConfig     `yaml:"cache"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatastoreConfig holds product store connection settings.
type DatastoreConfig struct {
	Driver           string `yaml:"driver"` // postgres, sqlite (default: postgres)
	DSN              string `yaml:"dsn"`
	MaxConns         int32  `yaml:"max_conns"`
	QueryTimeoutMs   int    `yaml:"query_timeout_ms"`
	FullTextColumn   string `yaml:"fulltext_column"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// QueryTimeout returns the per-query deadline.
func (d DatastoreConfig) QueryTimeout() time.Duration {
	return time.Duration(d.QueryTimeoutMs) * time.Millisecond
}

// AnalyticsConfig holds search-popularity sink settings.
type AnalyticsConfig struct {
	Driver         string   `yaml:"driver"` // valkey, redis, badger, none (default: none)
	Addrs          []string `yaml:"addrs"`
	Password       string   `yaml:"password"`
	Path           string   `yaml:"path"` // badger directory; empty = in-memory
	KeyPrefix      string   `yaml:"key_prefix"`
	TrackWorkers   int      `yaml:"track_workers"`
	TrackTimeoutMs int      `yaml:"track_timeout_ms"`
}

// TrackTimeout returns the deadline for one popularity write.
func (a AnalyticsConfig) TrackTimeout() time.Duration {
	return time.Duration(a.TrackTimeoutMs) * time.Millisecond
}

// SearchConfig holds request bounds and ranking settings.
type SearchConfig struct {
	DefaultLimit     int             `yaml:"default_limit"`
	MaxLimit         int             `yaml:"max_limit"`
	DefaultStrategy  string          `yaml:"default_strategy"`
	FilterableFields []string        `yaml:"filterable_fields"`
	Weights          weights.Partial `yaml:"weights"`
	FieldWeights     *weights.Field  `yaml:"field_weights"`
	SlowThresholdMs  float64         `yaml:"slow_threshold_ms"`
	SuggestMaxLimit  int             `yaml:"suggest_max_limit"`
}

// Policy converts the search section to request bounds.
func (s SearchConfig) Policy() request.Policy {
	return request.Policy{
		DefaultLimit:     s.DefaultLimit,
		MaxLimit:         s.MaxLimit,
		DefaultStrategy:  strategy.Strategy(s.DefaultStrategy),
		FilterableFields: s.FilterableFields,
	}
}

// Ranking returns the default coefficients with configured overrides applied.
func (s SearchConfig) Ranking() weights.Ranking {
	return weights.Default().Apply(s.Weights)
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	TTLSec           int `yaml:"ttl_sec"`
	MaxEntries       int `yaml:"max_entries"`
	SweepIntervalSec int `yaml:"sweep_interval_sec"` // 0 disables the sweep
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML, expands env variables, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	cfg := Config{Cache: CacheConfig{SweepIntervalSec: -1}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
// A negative cache.sweep_interval_sec means "unset"; Parse seeds it so an explicit 0 survives.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Datastore.Driver == "" {
		c.Datastore.Driver = DriverPostgres
	}
	if c.Datastore.MaxConns <= 0 {
		c.Datastore.MaxConns = 10
	}
	if c.Datastore.QueryTimeoutMs <= 0 {
		c.Datastore.QueryTimeoutMs = 2000
	}
	if c.Datastore.FullTextColumn == "" {
		c.Datastore.FullTextColumn = "search_vector"
	}
	if c.Datastore.ReadinessTimeout <= 0 {
		c.Datastore.ReadinessTimeout = 10
	}

	if c.Analytics.Driver == "" {
		c.Analytics.Driver = AnalyticsNone
	}
	if c.Analytics.KeyPrefix == "" {
		c.Analytics.KeyPrefix = "prodsearch:"
	}
	if c.Analytics.TrackWorkers <= 0 {
		c.Analytics.TrackWorkers = 8
	}
	if c.Analytics.TrackTimeoutMs <= 0 {
		c.Analytics.TrackTimeoutMs = 1000
	}

	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = request.DefaultLimit
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = request.MaxLimit
	}
	if c.Search.DefaultStrategy == "" {
		c.Search.DefaultStrategy = string(strategy.Fuzzy)
	}
	if c.Search.FilterableFields == nil {
		c.Search.FilterableFields = []string{"platform", "category", "brand", "in_stock"}
	}
	if c.Search.FieldWeights == nil {
		fw := weights.DefaultField()
		c.Search.FieldWeights = &fw
	}
	if c.Search.SlowThresholdMs <= 0 {
		c.Search.SlowThresholdMs = 1000
	}
	if c.Search.SuggestMaxLimit <= 0 {
		c.Search.SuggestMaxLimit = 20
	}

	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 10000
	}
	if c.Cache.SweepIntervalSec < 0 {
		c.Cache.SweepIntervalSec = 120
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Datastore.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("datastore.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Datastore.Driver)
	}
	if c.Datastore.DSN == "" {
		return fmt.Errorf("datastore.dsn is required")
	}

	switch c.Analytics.Driver {
	case AnalyticsValkey, AnalyticsRedis:
		if len(c.Analytics.Addrs) == 0 {
			return fmt.Errorf("analytics.addrs is required for driver %q", c.Analytics.Driver)
		}
	case AnalyticsBadger, AnalyticsNone:
	default:
		return fmt.Errorf("analytics.driver must be one of valkey, redis, badger, none, got %q", c.Analytics.Driver)
	}

	if !strategy.Strategy(c.Search.DefaultStrategy).IsValid() {
		return fmt.Errorf("search.default_strategy must be %q or %q, got %q",
			strategy.FullText, strategy.Fuzzy, c.Search.DefaultStrategy)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit %d exceeds search.max_limit %d", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	for _, f := range c.Search.FilterableFields {
		if !filter.ValidName(f) {
			return fmt.Errorf("search.filterable_fields: invalid field name %q", f)
		}
	}
	if err := c.Search.Weights.Validate(); err != nil {
		return fmt.Errorf("search.weights: %w", err)
	}
	if fw := c.Search.FieldWeights; fw != nil && (fw.Name < 0 || fw.Description < 0 || fw.Keywords < 0) {
		return fmt.Errorf("search.field_weights must be non-negative, got %+v", *fw)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
