package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
}

// ServerConfig stores HTTP listener details.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig stores libsql connection details.
type DatabaseConfig struct {
	Path        string        `mapstructure:"path"`         // path to the .db file
	PingTimeout time.Duration `mapstructure:"ping_timeout"` // liveness probe budget per request
}

// ProviderConfig stores one completion backend.
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// ProvidersConfig stores the completion provider chain, primary first.
type ProvidersConfig struct {
	OpenAI      ProviderConfig `mapstructure:"openai"`
	HuggingFace ProviderConfig `mapstructure:"huggingface"`
	Timeout     time.Duration  `mapstructure:"timeout"`    // per-provider call budget
	MaxTokens   int            `mapstructure:"max_tokens"` // completion token cap
}

// ChatConfig stores orchestration tunables.
type ChatConfig struct {
	ContextLimit    int `mapstructure:"context_limit"`     // max retrieved articles per request
	HistoryWindow   int `mapstructure:"history_window"`    // transcript turns sent to the provider
	SuggestionLimit int `mapstructure:"suggestion_limit"`  // max titles in the offline suggestion
	MinKeywordLen   int `mapstructure:"min_keyword_len"`   // fallback search keeps tokens longer than this
}

// AnalyticsConfig stores reporting tunables.
type AnalyticsConfig struct {
	RecentLimit int `mapstructure:"recent_limit"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/kbchat")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetDefault("server.addr", ":5000")
	viper.SetDefault("server.shutdown_timeout", "10s")

	viper.SetDefault("database.path", "data/kbchat.db")
	viper.SetDefault("database.ping_timeout", "1s")

	viper.SetDefault("providers.openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("providers.openai.model", "gpt-3.5-turbo")
	viper.SetDefault("providers.huggingface.base_url", "https://router.huggingface.co/v1")
	viper.SetDefault("providers.huggingface.model", "google/gemma-2-9b-it")
	viper.SetDefault("providers.timeout", "20s")
	viper.SetDefault("providers.max_tokens", 500)

	viper.SetDefault("chat.context_limit", 3)
	viper.SetDefault("chat.history_window", 5)
	viper.SetDefault("chat.suggestion_limit", 5)
	viper.SetDefault("chat.min_keyword_len", 3)

	viper.SetDefault("analytics.recent_limit", 20)

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Credentials keep their conventional env names.
	_ = viper.BindEnv("providers.openai.api_key", "OPENAI_API_KEY")
	_ = viper.BindEnv("providers.huggingface.api_key", "HUGGINGFACE_API_KEY")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults and env vars are enough.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &cfg, nil
}

// Watch re-unmarshals the config whenever the file changes on disk and
// hands the result to apply, which pushes the new tunables into the
// running components. Credentials, the listen address, and the database
// path are read once at startup and not re-applied.
func Watch(cfg *Config, logger zerolog.Logger, apply func(*Config)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		if err := viper.Unmarshal(cfg); err != nil {
			logger.Error().Err(err).Str("file", e.Name).Msg("config reload failed")
			return
		}
		if apply != nil {
			apply(cfg)
		}
		logger.Info().Str("file", e.Name).Msg("config reloaded")
	})
	viper.WatchConfig()
}
