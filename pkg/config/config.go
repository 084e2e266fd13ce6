package config

import (
	"time"
)

// Config represents the complete configuration for the todo lists service.
type Config struct {
	Database DatabaseConfig `koanf:"database" validate:"required"`
	Runtime  RuntimeConfig  `koanf:"runtime"  validate:"required"`
}

// DatabaseConfig contains database connection configuration.
type DatabaseConfig struct {
	ConnString     SensitiveString `koanf:"conn_string"     env:"DATABASE_URL"       sensitive:"true"`
	Host           string          `koanf:"host"            env:"DB_HOST"`
	Port           string          `koanf:"port"            env:"DB_PORT"`
	User           string          `koanf:"user"            env:"DB_USER"`
	Password       SensitiveString `koanf:"password"        env:"DB_PASSWORD"        sensitive:"true"`
	DBName         string          `koanf:"name"            env:"DB_NAME"`
	SSLMode        string          `koanf:"ssl_mode"        env:"DB_SSL_MODE"        validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns       int             `koanf:"max_conns"       env:"DB_MAX_CONNS"       validate:"min=1"`
	ConnectTimeout time.Duration   `koanf:"connect_timeout" env:"DB_CONNECT_TIMEOUT"`
	PingTimeout    time.Duration   `koanf:"ping_timeout"    env:"DB_PING_TIMEOUT"`
}

// RuntimeConfig contains runtime behavior configuration.
type RuntimeConfig struct {
	Environment string `koanf:"environment" validate:"oneof=development test production" env:"NODE_ENV"`
	LogLevel    string `koanf:"log_level"   validate:"oneof=debug info warn error disabled" env:"RUNTIME_LOG_LEVEL"`
	LogJSON     bool   `koanf:"log_json"                                                   env:"RUNTIME_LOG_JSON"`
}

// Default returns a Config with default values for development.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           "5432",
			User:           "postgres",
			DBName:         "todo-lists",
			SSLMode:        "require",
			MaxConns:       10,
			ConnectTimeout: 5 * time.Second,
			PingTimeout:    3 * time.Second,
		},
		Runtime: RuntimeConfig{
			Environment: "development",
			LogLevel:    "info",
		},
	}
}

// IsProduction reports whether the runtime environment is production.
func (c *Config) IsProduction() bool {
	return c.Runtime.Environment == "production"
}
