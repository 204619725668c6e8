package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the craftsearch service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Database   DatabaseConfig   `yaml:"database"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Search     SearchConfig     `yaml:"search"`
	Index      IndexConfig      `yaml:"index"`
	Analytics  AnalyticsConfig  `yaml:"analytics"`
	Logging    LoggingConfig    `yaml:"logging"`
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

// Database drivers.
const (
	DriverValkey = "valkey"
	DriverRedis  = "redis"
	DriverNone   = "none"
)

// DatabaseConfig holds the cache database connection settings.
// With driver "none" the tag cache and persisted budgets are disabled.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, none (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether a cache database is configured.
func (d DatabaseConfig) Enabled() bool { return d.Driver != DriverNone }

// ExtractionConfig holds tag extraction provider settings.
type ExtractionConfig struct {
	Provider    ProviderConfig `yaml:"provider"`
	TextModel   string         `yaml:"text_model"`
	VisionModel string         `yaml:"vision_model"`
	MaxTokens   int            `yaml:"max_tokens"`
	Temperature float32        `yaml:"temperature"`
	TimeoutSec  int            `yaml:"timeout_sec"`
	CacheTTLSec int            `yaml:"cache_ttl_sec"` // 0 = no expiry
	Budget      BudgetConfig   `yaml:"budget"`
}

// Timeout returns the per-call extraction deadline.
func (e ExtractionConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSec) * time.Second
}

// CacheTTL returns the tag cache entry lifetime.
func (e ExtractionConfig) CacheTTL() time.Duration {
	return time.Duration(e.CacheTTLSec) * time.Second
}

// ProviderConfig holds the OpenAI-compatible endpoint. An empty APIKey
// disables extraction and every call takes the fallback path.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	DefaultLimit     int      `yaml:"default_limit"`
	DefaultThreshold *float64 `yaml:"default_threshold"`
	MaxLimit         int      `yaml:"max_limit"`
}

// IndexConfig holds indexing settings.
type IndexConfig struct {
	MaxImages        int `yaml:"max_images"`
	MaxBatchSize     int `yaml:"max_batch_size"`
	BatchConcurrency int `yaml:"batch_concurrency"`
}

// AnalyticsConfig holds search history settings.
type AnalyticsConfig struct {
	Window       int `yaml:"window"`
	PopularLimit int `yaml:"popular_limit"`
	MaxHistory   int `yaml:"max_history"` // 0 = unbounded
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory, if present, is loaded first.
func Load(env string) (Config, error) {
	_ = godotenv.Load() // ignore error if .env doesn't exist

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
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
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Extraction.TextModel == "" {
		c.Extraction.TextModel = "gpt-4o-mini"
	}
	if c.Extraction.VisionModel == "" {
		c.Extraction.VisionModel = "gpt-4o-mini"
	}
	if c.Extraction.MaxTokens <= 0 {
		c.Extraction.MaxTokens = 512
	}
	if c.Extraction.TimeoutSec <= 0 {
		c.Extraction.TimeoutSec = 15
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 10
	}
	if c.Search.DefaultThreshold == nil {
		thr := 0.1
		c.Search.DefaultThreshold = &thr
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 100
	}
	if c.Index.MaxImages <= 0 {
		c.Index.MaxImages = 3
	}
	if c.Index.MaxBatchSize <= 0 {
		c.Index.MaxBatchSize = 100
	}
	if c.Index.BatchConcurrency <= 0 {
		c.Index.BatchConcurrency = 4
	}
	if c.Analytics.Window <= 0 {
		c.Analytics.Window = 100
	}
	if c.Analytics.PopularLimit <= 0 {
		c.Analytics.PopularLimit = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverValkey, DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required")
		}
	case DriverNone:
	default:
		return fmt.Errorf("database.driver must be \"valkey\", \"redis\" or \"none\", got %q", c.Database.Driver)
	}
	switch c.Extraction.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf(
			"extraction.budget.action must be \"warn\" or \"reject\", got %q",
			c.Extraction.Budget.Action,
		)
	}
	if thr := c.Search.DefaultThreshold; thr != nil && (*thr < -1 || *thr > 1) {
		return fmt.Errorf("search.default_threshold must be between -1 and 1, got %v", *thr)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)", c.Search.DefaultLimit, c.Search.MaxLimit)
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
