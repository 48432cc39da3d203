package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	apperrors "socialgraph/backend/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// App
	Host string
	Port int
	Env  string

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string // empty selects the server's default database

	// Auth guard for mutating routes
	AuthToken   string
	AuthEnabled bool

	MetricsEnabled bool
	EnsureSchema   bool // create id constraints on startup
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// FromEnv reads configuration from the environment and an optional .env
// file without validating it, so callers can layer overrides first
func FromEnv() *Config {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	return &Config{
		Host:           getEnv("HOST", "0.0.0.0"),
		Port:           getEnvInt("PORT", 8000),
		Env:            getEnv("ENV", "development"),
		Neo4jURI:       getEnv("NEO4J_URI", "neo4j://localhost:7687"),
		Neo4jUser:      getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:  getEnv("NEO4J_PASSWORD", ""),
		Neo4jDatabase:  getEnv("NEO4J_DATABASE", ""),
		AuthToken:      getEnv("AUTH_TOKEN", ""),
		AuthEnabled:    getEnvBool("AUTH_ENABLED", true),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		EnsureSchema:   getEnvBool("ENSURE_SCHEMA", false),
	}
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.Neo4jURI == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_URI")
	}
	if c.Neo4jUser == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_USER")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return apperrors.NewConfigValidationFailed("PORT", fmt.Sprintf("%d is not a valid port", c.Port))
	}
	if c.AuthEnabled && c.AuthToken == "" {
		return apperrors.NewConfigValidationFailed("AUTH_TOKEN", "required while auth is enabled")
	}
	return nil
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.ParseBool(value); err == nil {
			return result
		}
	}
	return defaultValue
}
