package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/lo"
	"github.com/samber/oops"

	apperrors "github.com/popmarket/popmarket/internal/shared/errors"
)

// AppEnv selects the runtime profile
type AppEnv string

const (
	EnvLocal      AppEnv = "local"
	EnvProduction AppEnv = "production"
)

// Config is the application configuration, loaded from the first
// existing config file with environment variables layered on top
type Config struct {
	TelegramBotToken string `koanf:"telegram_bot_token"`
	// WebAppURL is the public URL of the Mini-App frontend, opened
	// from the bot's inline keyboard
	WebAppURL string `koanf:"webapp_url"`
	HTTPPort  string `koanf:"http_port"`

	// MongoURI empty means the in-memory repository is used (local runs)
	MongoURI      string `koanf:"mongo_uri"`
	MongoDatabase string `koanf:"mongo_database"`

	MinioEndpoint  string `koanf:"minio_endpoint"`
	MinioAccessKey string `koanf:"minio_access_key"`
	MinioSecretKey string `koanf:"minio_secret_key"`
	MinioBucket    string `koanf:"minio_bucket"`
	MinioUseSSL    bool   `koanf:"minio_use_ssl"`
	MinioPublicURL string `koanf:"minio_public_url"`

	// AnnounceChatID is the channel new ads are announced to; 0 disables
	AnnounceChatID int64  `koanf:"announce_chat_id"`
	AppEnv         AppEnv `koanf:"app_env"`
}

// Load reads config.{yaml,yml,json,toml} (first match wins) and then
// environment variables, which override file values
func Load() (*Config, error) {
	k := koanf.New(".")

	configFiles := []string{
		"config.yaml",
		"config.yml",
		"config.json",
		"config.toml",
	}

	configFile, found := lo.Find(configFiles, func(f string) bool {
		_, err := os.Stat(f)
		return err == nil
	})

	if found {
		var parser koanf.Parser
		switch filepath.Ext(configFile) {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		case ".toml":
			parser = toml.Parser()
		default:
			return nil, oops.Errorf("unsupported config file extension: %s", filepath.Ext(configFile))
		}

		if err := k.Load(file.Provider(configFile), parser); err != nil {
			return nil, oops.With("config_file", configFile).Wrap(err)
		}
	}

	// Environment variables override file values
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, oops.With("context", "loading environment variables").Wrap(err)
	}

	setDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.With("context", "unmarshaling config").Wrap(err)
	}

	if cfg.AppEnv != EnvLocal {
		cfg.AppEnv = EnvProduction
	}

	if cfg.TelegramBotToken == "" {
		return nil, apperrors.ErrMissingBotToken
	}

	return &cfg, nil
}

func setDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"http_port":      "8080",
		"mongo_database": "popmarket",
		"minio_bucket":   "popmarket-images",
		"app_env":        string(EnvProduction),
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}
}
