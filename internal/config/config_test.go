package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "8080", cfg.App.HTTPPort)
	assert.Equal(t, "50051", cfg.App.GRPCPort)
	assert.Equal(t, []string{"*"}, cfg.App.CORSAllowedOrigins)
	assert.Equal(t, 300, cfg.Redis.CacheTTL)
	assert.Equal(t, "user.events", cfg.RabbitMQ.Queue)
	assert.Empty(t, cfg.RabbitMQ.URL)
	assert.Equal(t, "http://localhost:8080", cfg.Client.BaseURL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	content := "DB_DRIVER=SQLite\nDB_SQLITE_PATH=/tmp/test.db\nHTTP_PORT=9090\nCORS_ALLOWED_ORIGINS=http://a.test, http://b.test\nAPI_BASE_URL=http://api.test/\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.env"), []byte(content), 0o600))
	t.Setenv("GRPC_PORT", "6000")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "/tmp/test.db", cfg.DB.SQLitePath)
	assert.Equal(t, "9090", cfg.App.HTTPPort)
	assert.Equal(t, "6000", cfg.App.GRPCPort)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.App.CORSAllowedOrigins)
	assert.Equal(t, "http://api.test", cfg.Client.BaseURL)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadConfig(t.TempDir())
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "unknown driver", mutate: func(c *Config) { c.DB.Driver = "mysql" }},
		{name: "sqlite without path", mutate: func(c *Config) { c.DB.Driver = "sqlite"; c.DB.SQLitePath = "" }},
		{name: "idle above open", mutate: func(c *Config) { c.DB.MaxIdleConns = 50 }},
		{name: "same ports", mutate: func(c *Config) { c.App.GRPCPort = c.App.HTTPPort }},
		{name: "zero shutdown timeout", mutate: func(c *Config) { c.App.ShutdownTimeoutSeconds = 0 }},
		{name: "zero cache ttl", mutate: func(c *Config) { c.Redis.CacheTTL = 0 }},
		{name: "rate limit without redis", mutate: func(c *Config) { c.Redis.Enabled = false }},
		{name: "burst below rps", mutate: func(c *Config) { c.RateLimit.BurstCapacity = 1 }},
		{name: "rabbitmq without queue", mutate: func(c *Config) { c.RabbitMQ.URL = "amqp://x"; c.RabbitMQ.Queue = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDSNAndURLs(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "users", SSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=users port=5432 sslmode=disable", db.DSN())

	r := RedisConfig{Host: "cache", Port: "6380"}
	assert.Equal(t, "cache:6380", r.Address())
}
