package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/example/mnemos/internal/config"
)

// DB is the global database connection
var DB *sqlx.DB

var (
	// ErrNotFound is returned when a row doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned when a review state was changed by someone else
	ErrVersionConflict = errors.New("review state was modified concurrently")
)

// Connect opens the database described by cfg and creates missing tables
func Connect(cfg config.DatabaseConfig) error {
	driver, dsn, err := driverAndDSN(cfg)
	if err != nil {
		return err
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver != "postgres" {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	DB = db

	return initializeSchema()
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

func driverAndDSN(cfg config.DatabaseConfig) (string, string, error) {
	switch cfg.Type {
	case config.DBTypePostgres:
		return "postgres", cfg.DSN, nil
	case config.DBTypeSQLite, config.DBTypeSQLitePureGo, "":
		dsn := cfg.DSN
		if dsn == "" {
			dataDir := cfg.DataDir
			if dataDir == "" {
				dataDir = "data"
			}
			if err := os.MkdirAll(dataDir, 0755); err != nil {
				return "", "", fmt.Errorf("failed to create data directory: %w", err)
			}
			dsn = filepath.Join(dataDir, "mnemos.db")
		}
		if cfg.Type == config.DBTypeSQLitePureGo {
			// store timestamps in the same layout mattn/go-sqlite3 uses
			if !strings.Contains(dsn, "_time_format=") {
				sep := "?"
				if strings.Contains(dsn, "?") {
					sep = "&"
				}
				dsn += sep + "_time_format=sqlite"
			}
			return "sqlite", dsn, nil
		}
		return "sqlite3", dsn, nil
	}
	return "", "", fmt.Errorf("unsupported database type %q", cfg.Type)
}

func isPostgres() bool {
	return DB.DriverName() == "postgres"
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema() error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if isPostgres() {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}

	statements := []struct {
		table string
		ddl   string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id BIGINT PRIMARY KEY,
				username TEXT NOT NULL DEFAULT '',
				first_name TEXT NOT NULL DEFAULT '',
				last_name TEXT NOT NULL DEFAULT '',
				notification_enabled BOOLEAN NOT NULL DEFAULT true,
				notification_hour INTEGER NOT NULL DEFAULT 9,
				cards_per_day INTEGER NOT NULL DEFAULT 20,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`},
		{"flashcard_sets", `
			CREATE TABLE IF NOT EXISTS flashcard_sets (
				id ` + idColumn + `,
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				created_by BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				UNIQUE(title, created_by)
			)`},
		{"flashcards", `
			CREATE TABLE IF NOT EXISTS flashcards (
				id ` + idColumn + `,
				set_id BIGINT NOT NULL REFERENCES flashcard_sets(id) ON DELETE CASCADE,
				front TEXT NOT NULL,
				back TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				UNIQUE(set_id, front)
			)`},
		{"review_states", `
			CREATE TABLE IF NOT EXISTS review_states (
				id ` + idColumn + `,
				user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				card_id BIGINT NOT NULL REFERENCES flashcards(id) ON DELETE CASCADE,
				state TEXT NOT NULL,
				stability DOUBLE PRECISION NOT NULL DEFAULT 0,
				difficulty DOUBLE PRECISION NOT NULL,
				last_review_at TIMESTAMP,
				next_due_at TIMESTAMP NOT NULL,
				repetitions INTEGER NOT NULL DEFAULT 0,
				lapses INTEGER NOT NULL DEFAULT 0,
				version INTEGER NOT NULL DEFAULT 1,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				UNIQUE(user_id, card_id)
			)`},
		{"review_logs", `
			CREATE TABLE IF NOT EXISTS review_logs (
				id TEXT PRIMARY KEY,
				user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				card_id BIGINT NOT NULL REFERENCES flashcards(id) ON DELETE CASCADE,
				grade INTEGER NOT NULL,
				state_before TEXT NOT NULL,
				state_after TEXT NOT NULL,
				stability DOUBLE PRECISION NOT NULL,
				difficulty DOUBLE PRECISION NOT NULL,
				interval_days DOUBLE PRECISION NOT NULL,
				reviewed_at TIMESTAMP NOT NULL
			)`},
	}

	for _, stmt := range statements {
		if _, err := DB.Exec(stmt.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", stmt.table, err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_review_states_due ON review_states(user_id, next_due_at)",
		"CREATE INDEX IF NOT EXISTS idx_review_logs_user ON review_logs(user_id, reviewed_at)",
	}
	for _, idx := range indexes {
		if _, err := DB.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
