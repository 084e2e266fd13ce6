package postgres

import (
	"time"

	"github.com/todolists/todolists/pkg/config"
)

// Config holds PostgreSQL connection settings for the driver.
// Prefer providing a DSN via ConnString. When empty, a DSN will be
// synthesized from the individual fields.
type Config struct {
	ConnString     string
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MaxConns       int
	ConnectTimeout time.Duration
	PingTimeout    time.Duration
}

// ConfigFromApp converts the application database settings.
func ConfigFromApp(db *config.DatabaseConfig) *Config {
	if db == nil {
		return &Config{}
	}
	return &Config{
		ConnString:     db.ConnString.Value(),
		Host:           db.Host,
		Port:           db.Port,
		User:           db.User,
		Password:       db.Password.Value(),
		DBName:         db.DBName,
		SSLMode:        db.SSLMode,
		MaxConns:       db.MaxConns,
		ConnectTimeout: db.ConnectTimeout,
		PingTimeout:    db.PingTimeout,
	}
}
