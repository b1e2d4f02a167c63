package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadTestConfig loads the configuration for integration tests from TEST_* variables
//
// When the test database is not configured, an empty Config is returned so callers can skip.
func LoadTestConfig() (*Config, error) {
	_ = godotenv.Load("../../../../.env")
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.Database.Host = os.Getenv("TEST_DB_HOST")
	cfg.Database.User = os.Getenv("TEST_DB_USER")
	cfg.Database.Password = os.Getenv("TEST_DB_PASSWORD")
	cfg.Database.DBName = os.Getenv("TEST_DB_NAME")
	cfg.Database.SSLMode = "disable"
	if cfg.Database.Host == "" || cfg.Database.User == "" || cfg.Database.DBName == "" {
		return &Config{}, nil
	}

	port := os.Getenv("TEST_DB_PORT")
	if port == "" {
		port = "5432"
	}
	dbPort, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("invalid TEST_DB_PORT: %w", err)
	}
	cfg.Database.Port = dbPort

	cfg.JWT.Secret = os.Getenv("TEST_JWT_SECRET")
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = "integration-secret"
	}

	return cfg, nil
}

// IsConfigured reports whether a database has been configured
func (c *Config) IsConfigured() bool {
	return c.Database.Host != ""
}
