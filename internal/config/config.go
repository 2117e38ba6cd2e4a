// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the complete service configuration.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DB    Database
	Stats Stats
	Log   Log

	// TxMaxRetries bounds attempts of an atomic unit that lost a write conflict.
	TxMaxRetries uint `env:"TX_MAX_RETRIES" envDefault:"5"`
}

// Database holds PostgreSQL connection settings.
type Database struct {
	Host            string `env:"DB_HOST" envDefault:"localhost"`
	Port            string `env:"DB_PORT" envDefault:"5432"`
	User            string `env:"DB_USER" envDefault:"postgres"`
	Password        string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name            string `env:"DB_NAME" envDefault:"eventbooking"`
	SSLMode         string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns        int32  `env:"DB_MAX_CONNS" envDefault:"20"`
	ConnectAttempts uint   `env:"DB_CONNECT_ATTEMPTS" envDefault:"5"`
}

// DSN builds a libpq-compatible connection string.
func (c Database) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Stats configures the view-count collector client. An empty URL disables it.
type Stats struct {
	URL     string        `env:"STATS_URL"`
	App     string        `env:"STATS_APP" envDefault:"ewm-main-service"`
	Timeout time.Duration `env:"STATS_TIMEOUT" envDefault:"3s"`
}

// Log configures the zap logger.
type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads an optional .env file and then parses the environment.
func Load(dotenvFiles ...string) (Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load dotenv: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TxMaxRetries == 0 {
		return Config{}, fmt.Errorf("TX_MAX_RETRIES must be at least 1")
	}
	return cfg, nil
}
