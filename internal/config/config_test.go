package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Sources: SourcesConfig{
			TurnoutURL:    "http://results.example/turnout",
			ReferendumURL: "http://results.example/referendum",
			CandidatesURL: "http://results.example/candidates",
			PartiesURL:    "http://results.example/parties",
			BoundaryFile:  "data/boundaries.geojson",
			RegistryFile:  "data/registry.json",
			LiveTTL:       30 * time.Second,
			StaticTTL:     time.Hour,
			FetchTimeout:  20 * time.Second,
			RateLimit:     4,
		},
		Pipeline: PipelineConfig{
			RefreshInterval: time.Minute,
			SummarySuffix:   "00",
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
		},
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "negative fetch timeout",
			mutate:  func(c *Config) { c.Sources.FetchTimeout = 0 },
			wantErr: "fetch timeout must be positive",
		},
		{
			name: "live TTL above static TTL",
			mutate: func(c *Config) {
				c.Sources.LiveTTL = 2 * time.Hour
			},
			wantErr: "must not exceed static TTL",
		},
		{
			name:    "empty summary suffix",
			mutate:  func(c *Config) { c.Pipeline.SummarySuffix = "" },
			wantErr: "summary suffix must not be empty",
		},
		{
			name:    "bad logging level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid logging level",
		},
		{
			name:    "no allowed origins",
			mutate:  func(c *Config) { c.Security.AllowedOrigins = nil },
			wantErr: "allowed origin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(&cfg)

			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfigValidateNormalizesFormat(t *testing.T) {
	cfg := baseConfig()
	cfg.Logging.Format = "console"

	require.NoError(t, cfg.validate())
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
server:
  port: 9999
sources:
  turnout_url: http://upstream/turnout
  referendum_url: http://upstream/referendum
  candidates_url: http://upstream/candidates
  parties_url: http://upstream/parties
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := loadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "http://upstream/turnout", cfg.Sources.TurnoutURL)
}

func TestMergeConfigsEnvPrecedence(t *testing.T) {
	fileCfg := baseConfig()
	fileCfg.Server.Port = 9000
	fileCfg.Sources.TurnoutURL = "http://file/turnout"

	envCfg := Config{}
	envCfg.Sources.TurnoutURL = "http://env/turnout"

	merged := mergeConfigs(fileCfg, envCfg)
	assert.Equal(t, 9000, merged.Server.Port, "file value used when env empty")
	assert.Equal(t, "http://env/turnout", merged.Sources.TurnoutURL, "env value wins")
}
