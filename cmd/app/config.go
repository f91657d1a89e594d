package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bebokaka99/truyenviethay-backend/internal/repository"

	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

type Config struct {
	Database      repository.Config   `mapstructure:"database"`
	Server        ServerConfig        `mapstructure:"server"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Quests        QuestsConfig        `mapstructure:"quests"`
	Notifications NotificationsConfig `mapstructure:"notifications"`

	LogLevel string `mapstructure:"logLevel"`
}

type ServerConfig struct {
	Host               string `mapstructure:"host"`
	Port               string `mapstructure:"port"`
	InternalToken      string `mapstructure:"internal_token"`
	ClaimRatePerMinute int    `mapstructure:"claim_rate_per_minute"`
}

type AuthConfig struct {
	JWTSecret        string `mapstructure:"jwt_secret"`
	TelegramBotToken string `mapstructure:"telegram_bot_token"`
	Debug            bool   `mapstructure:"debug"`
}

type QuestsConfig struct {
	Timezone        string        `mapstructure:"timezone"`
	StreakQuestKeys []string      `mapstructure:"streak_quest_keys"`
	CatalogTTL      time.Duration `mapstructure:"catalog_ttl"`
	CatalogSize     int           `mapstructure:"catalog_size"`
	WorkerLimit     int           `mapstructure:"worker_limit"`
}

type NotificationsConfig struct {
	TelegramMirror bool `mapstructure:"telegram_mirror"`
}

// setDefaults registers every key. AutomaticEnv only overrides keys viper
// already knows, so secrets without a default still need an empty one here.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", repository.DriverPostgres)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.internal_token", "")
	v.SetDefault("server.claim_rate_per_minute", 30)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.telegram_bot_token", "")
	v.SetDefault("auth.debug", false)
	v.SetDefault("notifications.telegram_mirror", false)
	v.SetDefault("quests.timezone", "")
	v.SetDefault("quests.streak_quest_keys", []string{"weekly_streak"})
	v.SetDefault("quests.catalog_ttl", time.Minute)
	v.SetDefault("quests.catalog_size", 64)
	v.SetDefault("quests.worker_limit", 4)
	v.SetDefault("logLevel", "info")
}

// LoadConfig reads config.yaml (or file when set) and applies APP_ prefixed
// environment overrides, e.g. APP_DATABASE_HOST.
func LoadConfig(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(configPath)
		v.SetConfigType(configFormat)
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
