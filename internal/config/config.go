package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Sources  SourcesConfig  `yaml:"sources" envconfig:"SOURCES"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// SourcesConfig describes the four upstream result feeds plus the two
// local inputs (boundary file and registry feed) consumed once per run.
type SourcesConfig struct {
	TurnoutURL    string `yaml:"turnout_url" envconfig:"TURNOUT_URL" validate:"required"`
	ReferendumURL string `yaml:"referendum_url" envconfig:"REFERENDUM_URL" validate:"required"`
	CandidatesURL string `yaml:"candidates_url" envconfig:"CANDIDATES_URL" validate:"required"`
	PartiesURL    string `yaml:"parties_url" envconfig:"PARTIES_URL" validate:"required"`

	BoundaryFile string `yaml:"boundary_file" envconfig:"BOUNDARY_FILE" default:"data/boundaries.geojson"`
	RegistryFile string `yaml:"registry_file" envconfig:"REGISTRY_FILE" default:"data/registry.json"`

	// Live feeds (turnout, referendum) revalidate on a short window;
	// directory feeds (candidates, parties) are effectively static.
	LiveTTL   time.Duration `yaml:"live_ttl" envconfig:"LIVE_TTL" default:"30s"`
	StaticTTL time.Duration `yaml:"static_ttl" envconfig:"STATIC_TTL" default:"1h"`

	FetchTimeout time.Duration `yaml:"fetch_timeout" envconfig:"FETCH_TIMEOUT" default:"20s"`

	// Requests per second allowed against the upstream result servers.
	RateLimit float64 `yaml:"rate_limit" envconfig:"RATE_LIMIT" default:"4"`
}

// PipelineConfig controls the reconciliation pipeline
type PipelineConfig struct {
	// Interval between automatic snapshot refreshes. Zero disables the
	// background refresher; the pipeline then only runs on demand.
	RefreshInterval time.Duration `yaml:"refresh_interval" envconfig:"REFRESH_INTERVAL" default:"1m"`

	// Unit ids ending in this suffix are province-level aggregates in
	// the turnout feed and are skipped by every join.
	SummarySuffix string `yaml:"summary_suffix" envconfig:"SUMMARY_SUFFIX" default:"00"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains HTTP rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// Load loads configuration from environment variables and an optional
// YAML config file (EP_CONFIG_FILE, default "config.yaml"). Environment
// values take precedence over file values.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("EP", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	configFile := os.Getenv("EP_CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}
	if _, err := os.Stat(configFile); err == nil {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Server.Port == 0 {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if envConfig.Sources.TurnoutURL == "" {
		envConfig.Sources.TurnoutURL = fileConfig.Sources.TurnoutURL
	}
	if envConfig.Sources.ReferendumURL == "" {
		envConfig.Sources.ReferendumURL = fileConfig.Sources.ReferendumURL
	}
	if envConfig.Sources.CandidatesURL == "" {
		envConfig.Sources.CandidatesURL = fileConfig.Sources.CandidatesURL
	}
	if envConfig.Sources.PartiesURL == "" {
		envConfig.Sources.PartiesURL = fileConfig.Sources.PartiesURL
	}
	if envConfig.Sources.BoundaryFile == "" {
		envConfig.Sources.BoundaryFile = fileConfig.Sources.BoundaryFile
	}
	if envConfig.Sources.RegistryFile == "" {
		envConfig.Sources.RegistryFile = fileConfig.Sources.RegistryFile
	}

	return envConfig
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Sources.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}

	if c.Sources.LiveTTL <= 0 || c.Sources.StaticTTL <= 0 {
		return fmt.Errorf("source cache TTLs must be positive")
	}

	if c.Sources.LiveTTL > c.Sources.StaticTTL {
		return fmt.Errorf("live TTL (%s) must not exceed static TTL (%s)",
			c.Sources.LiveTTL, c.Sources.StaticTTL)
	}

	if c.Pipeline.SummarySuffix == "" {
		return fmt.Errorf("pipeline summary suffix must not be empty")
	}

	if len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}

	return nil
}
