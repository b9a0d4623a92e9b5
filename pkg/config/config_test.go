package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
service_name = "pricing"
environment = "staging"

[http]
port = 18080

[database]
dsn = "root:root@tcp(localhost:3306)/pricing?parseTime=true"

[pricing]
default_paths = 10000
antithetic = true
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 18080, cfg.HTTP.Port)
	assert.Equal(t, 50051, cfg.GRPC.Port)
	assert.Equal(t, 10000, cfg.Pricing.DefaultPaths)
	assert.True(t, cfg.Pricing.Antithetic)
	assert.Equal(t, 50, cfg.Pricing.DefaultExerciseDates)
	assert.Equal(t, "LAGUERRE", cfg.Pricing.DefaultBasis)
	assert.Equal(t, "0.0.0.0:18080", cfg.HTTPAddr())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("APP_PRICING_DEFAULT_SEED", "7")
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.EqualValues(t, 7, cfg.Pricing.DefaultSeed)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)

	t.Setenv("APP_DATABASE_DSN", "dsn")
	cfg, err := LoadWithDefaults(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "pricing", cfg.ServiceName)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			ServiceName: "pricing",
			HTTP:        HTTPConfig{Port: 8080},
			GRPC:        GRPCConfig{Port: 50051},
			Database:    DatabaseConfig{DSN: "dsn"},
			Pricing:     PricingConfig{DefaultPaths: 100, DefaultExerciseDates: 10, MaxPaths: 1000},
			RateLimit:   RateLimitConfig{Enabled: true, QPS: 1, Burst: 1},
		}
	}
	cfg := valid()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "dev", cfg.Environment)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no service name", func(c *Config) { c.ServiceName = "" }},
		{"bad http port", func(c *Config) { c.HTTP.Port = 70000 }},
		{"bad grpc port", func(c *Config) { c.GRPC.Port = 0 }},
		{"no dsn", func(c *Config) { c.Database.DSN = "" }},
		{"no paths", func(c *Config) { c.Pricing.DefaultPaths = 0 }},
		{"max below default", func(c *Config) { c.Pricing.MaxPaths = 10 }},
		{"odd antithetic", func(c *Config) { c.Pricing.Antithetic = true; c.Pricing.DefaultPaths = 101 }},
		{"bad rate limit", func(c *Config) { c.RateLimit.QPS = 0 }},
		{"unknown rate limit backend", func(c *Config) { c.RateLimit.Backend = "memcached" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
