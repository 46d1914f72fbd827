package database

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// DefaultMigrationsDir is used when Config.MigrationsDir is empty.
const DefaultMigrationsDir = "migrations"

// Config holds the Postgres connection settings. The database is optional:
// see Enabled.
type Config struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	MigrationsDir  string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

// Enabled reports whether a database host is configured at all.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

// DSN returns the keyword/value connection string used by lib/pq.
func (c Config) DSN() string {
	return fmt.Sprintf("user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		quoteDSN(c.User), quoteDSN(c.Password), quoteDSN(c.Host), quoteDSN(c.port()), quoteDSN(c.Name), quoteDSN(c.sslMode()))
}

// URL returns the postgres:// form expected by golang-migrate.
func (c Config) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.port()),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.sslMode()}}.Encode(),
	}
	return u.String()
}

// Migrations returns the directory holding *.up.sql files.
func (c Config) Migrations() string {
	if dir := strings.TrimSpace(c.MigrationsDir); dir != "" {
		return dir
	}
	return DefaultMigrationsDir
}

func (c Config) port() string {
	if p := strings.TrimSpace(c.Port); p != "" {
		return p
	}
	return "5432"
}

func (c Config) sslMode() string {
	if m := strings.TrimSpace(c.SSLMode); m != "" {
		return m
	}
	return "disable"
}

// quoteDSN escapes a keyword/value DSN value when it is empty or contains
// spaces, quotes or backslashes.
func quoteDSN(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
