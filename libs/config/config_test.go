package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "catalog")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "catalog")
	t.Setenv("JWT_SECRET", "jwt-secret")
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name          string
		env           map[string]string
		expectedError string
		check         func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
				assert.Equal(t, time.Hour, cfg.JWT.AccessTokenExpiry)
				assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
				assert.Equal(t, "catalog:invalidate", cfg.Cache.Channel)
				assert.Equal(t, "0 3 * * *", cfg.Jobs.OrderRepairCron)
				assert.Equal(t, 5, cfg.Jobs.CopyMaxRetry)
				assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
			},
		},
		{
			name: "overrides",
			env: map[string]string{
				"DB_PORT":              "6543",
				"SERVER_PORT":          "9090",
				"CORS_ALLOWED_ORIGINS": "https://a.example.com, ,https://b.example.com",
				"CACHE_TTL":            "30s",
				"REDIS_HOST":           "redis",
				"REDIS_PORT":           "6380",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 6543, cfg.Database.Port)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
				assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
				assert.Equal(t, "redis:6380", cfg.Redis.Addr())
			},
		},
		{
			name:          "missing jwt secret",
			env:           map[string]string{"JWT_SECRET": ""},
			expectedError: "JWT_SECRET is required",
		},
		{
			name:          "missing database host",
			env:           map[string]string{"DB_HOST": ""},
			expectedError: "DB_HOST is required",
		},
		{
			name:          "invalid port",
			env:           map[string]string{"DB_PORT": "abc"},
			expectedError: "invalid DB_PORT",
		},
		{
			name:          "invalid cache ttl",
			env:           map[string]string{"CACHE_TTL": "soon"},
			expectedError: "invalid CACHE_TTL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "catalog",
		Password: "p@ss word",
		DBName:   "catalog",
	}}

	assert.Equal(t, "postgres://catalog:p%40ss%20word@db:5432/catalog?sslmode=disable", cfg.DSN())

	cfg.Database.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}
