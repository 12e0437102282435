// Package config provides environment-based application configuration.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all environment-based configuration for the catalog backend.
type Config struct {
	// Port is the HTTP listen port.
	Port int `envconfig:"PORT" default:"8080"`

	// CORSOrigins is a comma-separated list of allowed CORS origins.
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`

	// Database connection fields (DB_HOST, DB_PORT, ...).
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBName     string `envconfig:"DB_NAME" default:"agent_catalog"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" default:""`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	// Pool bounds. Callers beyond PoolMaxConns block waiting for a free
	// connection rather than failing.
	PoolMinConns int32 `envconfig:"DB_POOL_MIN_CONNS" default:"2"`
	PoolMaxConns int32 `envconfig:"DB_POOL_MAX_CONNS" default:"10"`

	// ESURL is the Elasticsearch endpoint backing the document index.
	ESURL string `envconfig:"ES_URL" default:"http://localhost:9200"`

	// ESIndex is the name of the document index.
	ESIndex string `envconfig:"ES_INDEX" default:"documents"`

	// OpenAIAPIKey is used for embedding generation.
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// GithubToken authenticates identity-verification calls.
	GithubToken string `envconfig:"GITHUB_API_TOKEN"`
}

// Load reads a .env file if present, then parses the environment.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}

// DatabaseURL assembles a postgres connection string from the DB_* fields.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}
