package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/popmarket/popmarket/internal/shared/errors"
)

func writeConfig(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(".", name), []byte(content), 0o644))
}

// isolate runs the test in an empty directory with the config-relevant
// environment variables cleared
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, key := range []string{"TELEGRAM_BOT_TOKEN", "WEBAPP_URL", "HTTP_PORT", "APP_ENV", "MONGO_URI", "MONGO_DATABASE"} {
		if prev, ok := os.LookupEnv(key); ok {
			t.Setenv(key, prev) // registers restore on cleanup
			require.NoError(t, os.Unsetenv(key))
		}
	}
}

func TestLoadRequiresBotToken(t *testing.T) {
	isolate(t)

	_, err := Load()
	assert.ErrorIs(t, err, apperrors.ErrMissingBotToken)
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "popmarket", cfg.MongoDatabase)
	assert.Equal(t, "popmarket-images", cfg.MinioBucket)
	assert.Equal(t, EnvProduction, cfg.AppEnv)
	assert.Empty(t, cfg.MongoURI, "no default: empty selects the in-memory repository")
}

func TestLoadFromYAMLFile(t *testing.T) {
	isolate(t)
	writeConfig(t, "config.yaml", `
telegram_bot_token: "123:abc"
webapp_url: "https://app.example.com"
http_port: "9090"
announce_chat_id: -1001234567890
app_env: "local"
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.TelegramBotToken)
	assert.Equal(t, "https://app.example.com", cfg.WebAppURL)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, int64(-1001234567890), cfg.AnnounceChatID)
	assert.Equal(t, EnvLocal, cfg.AppEnv)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	isolate(t)
	writeConfig(t, "config.yaml", `
telegram_bot_token: "from-file"
http_port: "9090"
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("HTTP_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.TelegramBotToken)
	assert.Equal(t, "7070", cfg.HTTPPort)
}

func TestLoadFromJSONFile(t *testing.T) {
	isolate(t)
	writeConfig(t, "config.json", `{"telegram_bot_token": "123:abc", "mongo_uri": "mongodb://localhost:27017"}`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.TelegramBotToken)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
}

func TestUnknownAppEnvFallsBackToProduction(t *testing.T) {
	isolate(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("APP_ENV", "staging")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvProduction, cfg.AppEnv)
}
