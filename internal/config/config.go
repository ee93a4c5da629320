// Package config loads runtime settings from the environment.
//
// Variables may also come from a .env file. Scheduler parameters can be
// supplied as a YAML file (FSRS_PARAMS_FILE); single values from the
// environment override the file, and defaults fill whatever is left.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/example/mnemos/internal/spaced_repetition"
)

// Database types understood by database.Connect
const (
	DBTypeSQLite       = "sqlite"
	DBTypeSQLitePureGo = "sqlite-purego"
	DBTypePostgres     = "postgres"
)

// Defaults for reminder hours
const (
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 22
)

// Config holds all settings of the service
type Config struct {
	Database      DatabaseConfig
	Telegram      TelegramConfig
	Notifications NotificationConfig
	Scheduler     spaced_repetition.Parameters
}

// DatabaseConfig selects the storage backend
type DatabaseConfig struct {
	Type    string // sqlite, sqlite-purego or postgres (default: sqlite)
	DSN     string // connection string; for sqlite defaults to DataDir/mnemos.db
	DataDir string // directory for sqlite files (default: data)
}

// TelegramConfig configures the reminder bot
type TelegramConfig struct {
	Token string
}

// NotificationConfig configures the reminder job
type NotificationConfig struct {
	StartHour  int     // first hour (UTC) reminders may be sent
	EndHour    int     // last hour (UTC) reminders may be sent
	RatePerSec float64 // outgoing message budget
}

// Load reads envFile (if it exists) into the process environment and builds a Config.
// An empty envFile means ".env".
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: failed to load %s: %w", envFile, err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Type:    getEnv("DB_TYPE", DBTypeSQLite),
			DSN:     getEnv("DB_DSN", ""),
			DataDir: getEnv("DATA_DIR", "data"),
		},
		Telegram: TelegramConfig{
			Token: getEnv("TELEGRAM_BOT_TOKEN", ""),
		},
		Notifications: NotificationConfig{
			StartHour:  getEnvHour("NOTIFICATION_START_HOUR", DefaultNotificationStartHour),
			EndHour:    getEnvHour("NOTIFICATION_END_HOUR", DefaultNotificationEndHour),
			RatePerSec: getEnvFloat("NOTIFY_RATE_PER_SEC", 25),
		},
	}

	switch cfg.Database.Type {
	case DBTypeSQLite, DBTypeSQLitePureGo, DBTypePostgres:
	default:
		return nil, fmt.Errorf("config: unsupported DB_TYPE %q", cfg.Database.Type)
	}
	if cfg.Database.Type == DBTypePostgres && cfg.Database.DSN == "" {
		return nil, errors.New("config: DB_DSN is required for postgres")
	}

	params, err := loadParameters(os.Getenv("FSRS_PARAMS_FILE"))
	if err != nil {
		return nil, err
	}
	cfg.Scheduler = params

	return cfg, nil
}

// loadParameters merges defaults, the optional YAML file and env overrides.
func loadParameters(path string) (spaced_repetition.Parameters, error) {
	params := spaced_repetition.DefaultParameters()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return params, fmt.Errorf("config: failed to read parameters file: %w", err)
		}
		var fromFile spaced_repetition.Parameters
		if err := yaml.Unmarshal(data, &fromFile); err != nil {
			return params, fmt.Errorf("config: failed to parse parameters file %s: %w", path, err)
		}
		if len(fromFile.Weights) > 0 {
			params.Weights = fromFile.Weights
		}
		if fromFile.TargetRetention != 0 {
			params.TargetRetention = fromFile.TargetRetention
		}
		// a file that sets graduation_interval_days: 0 graduates on first success
		if hasKey(data, "graduation_interval_days") {
			params.GraduationIntervalDays = fromFile.GraduationIntervalDays
		}
	}

	if v := os.Getenv("FSRS_WEIGHTS"); v != "" {
		w, err := parseWeights(v)
		if err != nil {
			return params, err
		}
		params.Weights = w
	}
	if v := os.Getenv("FSRS_TARGET_RETENTION"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return params, fmt.Errorf("config: invalid FSRS_TARGET_RETENTION %q: %w", v, err)
		}
		params.TargetRetention = r
	}
	if v := os.Getenv("FSRS_GRADUATION_DAYS"); v != "" {
		g, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return params, fmt.Errorf("config: invalid FSRS_GRADUATION_DAYS %q: %w", v, err)
		}
		params.GraduationIntervalDays = g
	}

	return params, nil
}

func hasKey(data []byte, key string) bool {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return false
	}
	_, ok := raw[key]
	return ok
}

// parseWeights parses a comma separated weight list
func parseWeights(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	w := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("config: invalid weight %q: %w", p, err)
		}
		w = append(w, v)
	}
	return w, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvHour(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if h, err := strconv.Atoi(value); err == nil && h >= 0 && h <= 23 {
			return h
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 {
			return f
		}
	}
	return defaultValue
}
