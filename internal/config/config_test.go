package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/mnemos/internal/config"
	"github.com/example/mnemos/internal/spaced_repetition"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DB_TYPE", "DB_DSN", "DATA_DIR", "TELEGRAM_BOT_TOKEN",
		"NOTIFICATION_START_HOUR", "NOTIFICATION_END_HOUR", "NOTIFY_RATE_PER_SEC",
		"FSRS_PARAMS_FILE", "FSRS_WEIGHTS", "FSRS_TARGET_RETENTION", "FSRS_GRADUATION_DAYS",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, config.DBTypeSQLite, cfg.Database.Type)
	assert.Equal(t, "data", cfg.Database.DataDir)
	assert.Equal(t, config.DefaultNotificationStartHour, cfg.Notifications.StartHour)
	assert.Equal(t, config.DefaultNotificationEndHour, cfg.Notifications.EndHour)
	assert.Equal(t, spaced_repetition.DefaultParameters(), cfg.Scheduler)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("DB_DSN", "postgres://localhost/mnemos?sslmode=disable")
	t.Setenv("NOTIFICATION_START_HOUR", "6")
	t.Setenv("NOTIFICATION_END_HOUR", "99")
	t.Setenv("FSRS_TARGET_RETENTION", "0.85")
	t.Setenv("FSRS_GRADUATION_DAYS", "0")

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, config.DBTypePostgres, cfg.Database.Type)
	assert.Equal(t, 6, cfg.Notifications.StartHour)
	assert.Equal(t, config.DefaultNotificationEndHour, cfg.Notifications.EndHour, "out of range hours fall back")
	assert.Equal(t, 0.85, cfg.Scheduler.TargetRetention)
	assert.Equal(t, 0.0, cfg.Scheduler.GraduationIntervalDays)
}

func TestFromEnv_RejectsBadDatabase(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_TYPE", "mysql")
	_, err := config.FromEnv()
	assert.Error(t, err)

	t.Setenv("DB_TYPE", "postgres")
	_, err = config.FromEnv()
	assert.Error(t, err, "postgres needs a DSN")
}

func TestFromEnv_ParametersFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
weights: [0.5, 0.7, 2.5, 6.0, 5.0, 1.0, 1.2, 0.02, 1.4, 0.12, 0.8, 2.5, 0.02, 0.2, 0.05, 0.3, 1.4]
target_retention: 0.92
graduation_interval_days: 0
`), 0o600))
	t.Setenv("FSRS_PARAMS_FILE", path)

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Len(t, cfg.Scheduler.Weights, 17)
	assert.Equal(t, 0.5, cfg.Scheduler.Weights[0])
	assert.Equal(t, 0.92, cfg.Scheduler.TargetRetention)
	assert.Equal(t, 0.0, cfg.Scheduler.GraduationIntervalDays)

	_, err = spaced_repetition.NewScheduler(cfg.Scheduler)
	assert.NoError(t, err)
}

func TestFromEnv_WeightsOverrideFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("FSRS_WEIGHTS", "1,2,3")

	cfg, err := config.FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, cfg.Scheduler.Weights)

	// too short for the scheduler, which is where it gets rejected
	_, err = spaced_repetition.NewScheduler(cfg.Scheduler)
	assert.ErrorIs(t, err, spaced_repetition.ErrInvalidParameters)

	t.Setenv("FSRS_WEIGHTS", "1,x")
	_, err = config.FromEnv()
	assert.Error(t, err)
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("TELEGRAM_BOT_TOKEN")
	t.Cleanup(func() { os.Unsetenv("TELEGRAM_BOT_TOKEN") })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TELEGRAM_BOT_TOKEN=abc:123\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "abc:123", cfg.Telegram.Token)
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	clearEnv(t)
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}
