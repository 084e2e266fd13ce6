package postgres

import (
	"fmt"
	"net/url"
	"strings"
)

const defaultSSLMode = "require"

// dsn returns the connection string for cfg. sslmode defaults to require,
// which encrypts the session without verifying the server certificate.
func dsn(cfg *Config) string {
	mode := cfg.SSLMode
	if mode == "" {
		mode = defaultSSLMode
	}
	if cfg.ConnString != "" {
		return withSSLMode(cfg.ConnString, mode)
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		quoteValue(orDefault(cfg.Host, "localhost")),
		quoteValue(orDefault(cfg.Port, "5432")),
		quoteValue(orDefault(cfg.User, "postgres")),
		quoteValue(cfg.Password),
		quoteValue(orDefault(cfg.DBName, "postgres")),
		quoteValue(mode),
	)
}

// withSSLMode appends sslmode when the connection string does not set one.
func withSSLMode(conn string, mode string) string {
	if strings.Contains(conn, "sslmode=") {
		return conn
	}
	if strings.HasPrefix(conn, "postgres://") || strings.HasPrefix(conn, "postgresql://") {
		u, err := url.Parse(conn)
		if err != nil {
			return conn
		}
		q := u.Query()
		q.Set("sslmode", mode)
		u.RawQuery = q.Encode()
		return u.String()
	}
	return strings.TrimSpace(conn) + " sslmode=" + mode
}

// quoteValue renders v as a keyword DSN value, quoting when it is empty or
// holds spaces, quotes or backslashes.
func quoteValue(v string) string {
	if v == "" {
		return "''"
	}
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	escaped := strings.ReplaceAll(v, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	return "'" + escaped + "'"
}

func orDefault(val, def string) string {
	if val == "" {
		return def
	}
	return val
}
