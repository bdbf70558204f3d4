package config

import (
	"errors"
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config is the runtime configuration, read once at startup.
type Config struct {
	// DatabaseURL enables the PostgreSQL baseline store when set.
	DatabaseURL string `env:"DATABASE_URL"`
	// Neo4jURI enables the definition index when set.
	Neo4jURI      string `env:"NEO4J_URI"`
	Neo4jUser     string `env:"NEO4J_USER" env-default:"neo4j"`
	Neo4jPassword string `env:"NEO4J_PASSWORD"`

	WorkerCount int    `env:"WORKER_COUNT" env-default:"4"`
	RulesPath   string `env:"RULES_PATH"`

	SourceLanguage string `env:"SOURCE_LANGUAGE" env-default:"English"`
	TargetLanguage string `env:"TARGET_LANGUAGE" env-default:"ChineseSimplified"`
	OutputLayout   string `env:"OUTPUT_LAYOUT" env-default:"by-type"`
	OrphanPolicy   string `env:"ORPHAN_POLICY" env-default:"retain"`

	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that have no sensible fallback.
func (c *Config) Validate() error {
	var errs []error
	if c.WorkerCount < 1 {
		errs = append(errs, fmt.Errorf("WORKER_COUNT must be positive, got %d", c.WorkerCount))
	}
	if c.SourceLanguage == "" {
		errs = append(errs, errors.New("SOURCE_LANGUAGE must not be empty"))
	}
	if c.TargetLanguage == "" {
		errs = append(errs, errors.New("TARGET_LANGUAGE must not be empty"))
	}
	if c.Neo4jURI != "" && c.Neo4jPassword == "" {
		errs = append(errs, errors.New("NEO4J_PASSWORD is required when NEO4J_URI is set"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// StoreEnabled reports whether a database is configured.
func (c *Config) StoreEnabled() bool { return c.DatabaseURL != "" }

// GraphEnabled reports whether a Neo4j server is configured.
func (c *Config) GraphEnabled() bool { return c.Neo4jURI != "" }
