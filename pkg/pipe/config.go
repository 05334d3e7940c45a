package pipe

import (
	"fmt"
	"os"
	"strings"
)

// Config holds the Postgres connection settings, read once from the process
// environment and immutable thereafter.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// Environment variables the pipe requires. All five must be set.
const (
	EnvHost     = "PG_HOST"
	EnvPort     = "PG_PORT"
	EnvUser     = "PG_USER"
	EnvPassword = "PG_PASSWORD"
	EnvDB       = "PG_DB"
)

// ConfigFromEnv reads the required environment variables. A missing or empty
// variable is a hard error; the pipe cannot serve requests without it.
func ConfigFromEnv() (Config, error) {
	cfg := Config{}
	for _, v := range []struct {
		name string
		dst  *string
	}{
		{EnvHost, &cfg.Host},
		{EnvPort, &cfg.Port},
		{EnvUser, &cfg.User},
		{EnvPassword, &cfg.Password},
		{EnvDB, &cfg.DBName},
	} {
		val := os.Getenv(v.name)
		if val == "" {
			return Config{}, fmt.Errorf("required environment variable %s is not set", v.name)
		}
		*v.dst = val
	}
	return cfg, nil
}

// DSN returns the Postgres connection string for the config. Values are
// quoted so credentials containing spaces, quotes, or '=' stay intact.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		quoteDSN(c.Host), quoteDSN(c.Port), quoteDSN(c.User), quoteDSN(c.Password), quoteDSN(c.DBName))
}

// quoteDSN single-quotes a keyword/value connection-string value, escaping
// backslashes and quotes per the libpq rules.
func quoteDSN(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
