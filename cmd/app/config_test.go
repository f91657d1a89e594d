package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bebokaka99/truyenviethay-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
database:
  driver: sqlite
  name: ":memory:"
server:
  port: "8081"
quests:
  catalog_ttl: 2m
  streak_quest_keys: [weekly_streak, monthly_streak]
logLevel: debug
`), 0o600))

	t.Setenv("APP_SERVER_INTERNAL_TOKEN", "from-env")
	t.Setenv("APP_SERVER_PORT", "9090")

	cfg, err := LoadConfig(file)
	require.NoError(t, err)

	assert.Equal(t, repository.DriverSQLite, cfg.Database.GetDriver())
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Server.InternalToken)
	assert.Equal(t, 30, cfg.Server.ClaimRatePerMinute)
	assert.Equal(t, 2*time.Minute, cfg.Quests.CatalogTTL)
	assert.Equal(t, []string{"weekly_streak", "monthly_streak"}, cfg.Quests.StreakQuestKeys)
	assert.Equal(t, 4, cfg.Quests.WorkerLimit)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_EnvOnly(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("APP_DATABASE_PASSWORD", "pg-secret")
	t.Setenv("APP_DATABASE_DSN", "postgres://quests@db:5432/quests")
	t.Setenv("APP_AUTH_JWT_SECRET", "jwt-secret")
	t.Setenv("APP_AUTH_TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("APP_SERVER_INTERNAL_TOKEN", "internal")
	t.Setenv("APP_NOTIFICATIONS_TELEGRAM_MIRROR", "true")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "pg-secret", cfg.Database.Password)
	assert.Equal(t, "postgres://quests@db:5432/quests", cfg.Database.GetDatabaseURL())
	assert.Equal(t, "jwt-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "123:abc", cfg.Auth.TelegramBotToken)
	assert.Equal(t, "internal", cfg.Server.InternalToken)
	assert.True(t, cfg.Notifications.TelegramMirror)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate"}, names)
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}
