package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	for _, k := range []string{"DATABASE_URL", "STORAGE_DRIVER", "PORT", "JWT_SECRET", "LOG_LEVEL", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID"} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: "9090"
  session_ttl: 45m
db:
  driver: sqlite
  sqlite_path: /tmp/t.db
auth:
  secret: s3cret
  token_ttl: 30m
log:
  level: debug
report:
  font_paths: [/fonts/a.ttf, /fonts/b.ttf]
telegram:
  token: abc
  chat_id: 42
questionnaire:
  path: catalog.yaml
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 45*time.Minute, cfg.Server.SessionTTL)
	assert.Equal(t, DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, "/tmp/t.db", cfg.DB.SQLitePath)
	assert.Equal(t, "file://migrations", cfg.DB.Migrations, "unset keys keep defaults")
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"/fonts/a.ttf", "/fonts/b.ttf"}, cfg.Report.FontPaths)
	assert.Equal(t, int64(42), cfg.Telegram.ChatID)
	assert.Equal(t, "catalog.yaml", cfg.Questionnaire.Path)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "server:\n  port: \"9090\"\n")
	t.Setenv("PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "postgres://env", cfg.DB.DSN)
	assert.Equal(t, "from-env", cfg.Auth.Secret)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "tok", cfg.Telegram.Token)
	assert.Equal(t, int64(-100123), cfg.Telegram.ChatID)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
		want string
	}{
		{name: "bad yaml", body: "server: [", want: "parse config"},
		{name: "unknown driver", body: "db:\n  driver: mysql\n", want: "unknown db driver"},
		{name: "sqlite without path", body: "db:\n  driver: sqlite\n  sqlite_path: \"\"\n", want: "sqlite_path"},
		{name: "bad chat id", env: map[string]string{"TELEGRAM_CHAT_ID": "abc"}, want: "TELEGRAM_CHAT_ID"},
		{name: "driver from env", env: map[string]string{"STORAGE_DRIVER": "oracle"}, want: "unknown db driver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
