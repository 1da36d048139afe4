/*
Package config loads process configuration from the environment.

PURPOSE:
  One property (tenant) per process: which database it talks to, which
  business id callers must be granted, signing secret for sessions, the
  broker for check-in events and the settlement configuration file.

SOURCES (later wins):
  1. Defaults in the struct tags
  2. .env file in the working directory, if present (godotenv)
  3. Process environment
  4. Command-line flags applied by cmd/server

VARIABLES:
  PORT               HTTP port (8080)
  DB_DRIVER          sqlite | mysql (sqlite)
  SQLITE_PATH        SQLite file, ":memory:" allowed (settlement.db)
  MYSQL_DSN          go-sql-driver DSN, required when DB_DRIVER=mysql
  MYSQL_MAX_OPEN     Pool size (20)
  MYSQL_MAX_IDLE     Idle connections (5)
  MYSQL_CONN_MAX_LIFETIME (30m)
  BUSINESS_ID        Business this process serves; required
  JWT_SECRET         HS256 session secret; required unless AUTH_DISABLED
  AUTH_DISABLED      Skip authentication (local demo only)
  AMQP_URL           RabbitMQ URL; empty disables event publishing
  AMQP_QUEUE         Queue for check-in events (frontdesk.checked_in)
  SETTLEMENT_CONFIG  YAML file with OTA channels etc.; empty = defaults
  LOG_LEVEL          debug | info | warn | error (info)
  LOG_FORMAT         json | console (json)
  ENABLE_SCENARIOS   Expose demo scenario endpoints (false)
  CORS_ORIGINS       Comma-separated allowed origins

SEE ALSO:
  - cmd/server/main.go: Flag overrides and wiring
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

type Config struct {
	Port int `envconfig:"PORT" default:"8080"`

	DBDriver   string `envconfig:"DB_DRIVER" default:"sqlite"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"settlement.db"`
	MySQL      MySQL  `envconfig:"MYSQL"`

	BusinessID   string `envconfig:"BUSINESS_ID" required:"true"`
	JWTSecret    string `envconfig:"JWT_SECRET"`
	AuthDisabled bool   `envconfig:"AUTH_DISABLED" default:"false"`

	AMQPURL   string `envconfig:"AMQP_URL"`
	AMQPQueue string `envconfig:"AMQP_QUEUE" default:"frontdesk.checked_in"`

	SettlementConfig string `envconfig:"SETTLEMENT_CONFIG"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	EnableScenarios bool     `envconfig:"ENABLE_SCENARIOS" default:"false"`
	CORSOrigins     []string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173,http://localhost:8080"`
}

// MySQL fields are read as MYSQL_<TAG>.
type MySQL struct {
	DSN             string        `envconfig:"DSN"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN" default:"20"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"30m"`
}

// Load reads envFile (if it exists) into the environment, then the
// environment into a Config, and validates it. Variables already set in the
// environment are not overridden by the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field rules envconfig tags cannot express.
func (c *Config) Validate() error {
	if c.BusinessID == "" {
		return errors.New("BUSINESS_ID is required")
	}
	switch c.DBDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite driver")
		}
	case DriverMySQL:
		if c.MySQL.DSN == "" {
			return errors.New("MYSQL_DSN is required for the mysql driver")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q: want %s or %s", c.DBDriver, DriverSQLite, DriverMySQL)
	}
	if c.JWTSecret == "" && !c.AuthDisabled {
		return errors.New("JWT_SECRET is required unless AUTH_DISABLED=true")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	return nil
}
