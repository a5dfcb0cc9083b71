package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the application configuration.
type Config struct {
	API APIConfig
	DB  DBConfig
	Web WebConfig
	Log LogConfig
}

// APIConfig configures the API server.
type APIConfig struct {
	Addr        string
	Message     string
	CORSOrigins []string
	Schema      string
}

// DBConfig holds database-related configuration.
type DBConfig struct {
	Driver string
	DSN    string
}

// WebConfig configures the web front end and its API client.
type WebConfig struct {
	Addr         string
	APIURL       string
	Timeout      time.Duration
	Retries      int
	ShowErrors   bool
	ColumnPolicy string
}

type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig reads .env files (if present) into the environment and builds the
// configuration from it. Invalid values fall back to their defaults with a
// warning.
func LoadConfig(files ...string) *Config {
	if err := godotenv.Load(files...); err != nil {
		logrus.Debug("No .env file loaded, using environment and defaults")
	}

	return &Config{
		API: APIConfig{
			Addr:        getString("API_ADDR", ":8000"),
			Message:     getString("API_MESSAGE", "Backend is running!"),
			CORSOrigins: getList("CORS_ORIGINS", []string{"http://localhost:3000"}),
			Schema:      getString("DB_SCHEMA", "public"),
		},
		DB: DBConfig{
			Driver: getString("DB_DRIVER", "postgres"),
			DSN:    getString("DATABASE_URL", "postgres://postgres@localhost:5432/postgres?sslmode=disable"),
		},
		Web: WebConfig{
			Addr:         getString("WEB_ADDR", ":3000"),
			APIURL:       getString("API_URL", "http://127.0.0.1:8000"),
			Timeout:      getDuration("API_TIMEOUT", 0),
			Retries:      getInt("API_RETRIES", 0),
			ShowErrors:   getBool("WEB_SHOW_ERRORS", false),
			ColumnPolicy: getString("COLUMN_POLICY", "first-row"),
		},
		Log: LogConfig{
			Level:  getString("LOG_LEVEL", "info"),
			Format: getString("LOG_FORMAT", "text"),
		},
	}
}

func getString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getList(key string, def []string) []string {
	v := getString(key, "")
	if v == "" {
		return def
	}

	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func getInt(key string, def int) int {
	v := getString(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		logrus.Warnf("Invalid %s value: %q. Using default %d.", key, v, def)
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := getString(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logrus.Warnf("Invalid %s value: %q. Using default %t.", key, v, def)
		return def
	}
	return b
}

// getDuration accepts Go durations ("1.5s") or a bare number of seconds.
func getDuration(key string, def time.Duration) time.Duration {
	v := getString(key, "")
	if v == "" {
		return def
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
		return time.Duration(secs * float64(time.Second))
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		logrus.Warnf("Invalid %s value: %q. Using default %s.", key, v, def)
		return def
	}
	return d
}
