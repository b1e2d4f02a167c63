// Package config provides configuration for the application
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Logging  LoggingConfig
	CORS     CORSConfig
	JWT      JWTConfig
	Cache    CacheConfig
	Jobs     JobsConfig
	APIKey   string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the host:port address of the Redis server
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port int
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// JWTConfig holds JWT token configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// CacheConfig holds settings of the cached public views
type CacheConfig struct {
	TTL     time.Duration
	Channel string
}

// JobsConfig holds background job settings
type JobsConfig struct {
	OrderRepairCron string
	CopyMaxRetry    int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// .env is optional
	godotenv.Load()

	cfg := &Config{}

	// Database configuration
	for name, dst := range map[string]*string{
		"DB_HOST":     &cfg.Database.Host,
		"DB_USER":     &cfg.Database.User,
		"DB_PASSWORD": &cfg.Database.Password,
		"DB_NAME":     &cfg.Database.DBName,
	} {
		value := os.Getenv(name)
		if value == "" {
			return nil, fmt.Errorf("%s is required", name)
		}
		*dst = value
	}

	dbPort, err := intEnv("DB_PORT", "5432")
	if err != nil {
		return nil, err
	}
	cfg.Database.Port = dbPort
	cfg.Database.SSLMode = stringEnv("DB_SSLMODE", "disable")

	// Server configuration
	serverPort, err := intEnv("SERVER_PORT", "8080")
	if err != nil {
		return nil, err
	}
	cfg.Server.Port = serverPort

	cfg.Logging.Level = stringEnv("LOG_LEVEL", "info")
	cfg.CORS.AllowedOrigins = parseOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"))

	// JWT configuration
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	accessExpiry, err := durationEnv("JWT_ACCESS_TOKEN_EXPIRY", "1h")
	if err != nil {
		return nil, err
	}
	cfg.JWT.AccessTokenExpiry = accessExpiry

	// API key for service-to-service calls (optional)
	cfg.APIKey = os.Getenv("API_KEY")

	// Redis configuration
	cfg.Redis.Host = stringEnv("REDIS_HOST", "localhost")
	if cfg.Redis.Port, err = intEnv("REDIS_PORT", "6379"); err != nil {
		return nil, err
	}
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if cfg.Redis.DB, err = intEnv("REDIS_DB", "0"); err != nil {
		return nil, err
	}

	// Cache configuration
	if cfg.Cache.TTL, err = durationEnv("CACHE_TTL", "10m"); err != nil {
		return nil, err
	}
	cfg.Cache.Channel = stringEnv("CACHE_INVALIDATION_CHANNEL", "catalog:invalidate")

	// Background jobs
	cfg.Jobs.OrderRepairCron = stringEnv("ORDER_REPAIR_CRON", "0 3 * * *")
	if cfg.Jobs.CopyMaxRetry, err = intEnv("COPY_LESSONS_MAX_RETRY", "5"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DSN returns the Postgres connection URL
func (c *Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.sslMode()),
	}
	return u.String()
}

func (c *Config) sslMode() string {
	if c.Database.SSLMode == "" {
		return "disable"
	}
	return c.Database.SSLMode
}

func stringEnv(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func intEnv(name, fallback string) (int, error) {
	value, err := strconv.Atoi(stringEnv(name, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return value, nil
}

func durationEnv(name, fallback string) (time.Duration, error) {
	value, err := time.ParseDuration(stringEnv(name, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return value, nil
}

// parseOrigins splits a comma separated origin list, allowing all origins when it is empty
func parseOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
