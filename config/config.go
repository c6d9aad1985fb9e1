// Package config loads runtime settings from defaults, an optional YAML file
// and the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every key-derived environment variable, e.g.
// TODO_CHAT_HTTP_ADDR for http.addr.
const EnvPrefix = "TODO_CHAT"

// Config is the full runtime configuration.
type Config struct {
	HTTP            HTTPConfig    `mapstructure:"http"`
	Storage         StorageConfig `mapstructure:"storage"`
	Chat            ChatConfig    `mapstructure:"chat"`
	LLM             LLMConfig     `mapstructure:"llm"`
	Dapr            DaprConfig    `mapstructure:"dapr"`
	Log             LogConfig     `mapstructure:"log"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	NATSPort        int           `mapstructure:"nats_port"`
}

type HTTPConfig struct {
	Addr        string `mapstructure:"addr"`
	CORSOrigins string `mapstructure:"cors_origins"`
	AccessLog   bool   `mapstructure:"access_log"`
}

type StorageConfig struct {
	DatabaseURL    string `mapstructure:"database_url"`
	HistoryBackend string `mapstructure:"history_backend"`
	HistoryDBPath  string `mapstructure:"history_db_path"`
	RedisAddr      string `mapstructure:"redis_addr"`
	JetStreamDir   string `mapstructure:"jetstream_dir"`
	Debug          bool   `mapstructure:"debug"`
}

type ChatConfig struct {
	HistoryLimit int    `mapstructure:"history_limit"`
	Fallback     string `mapstructure:"fallback"`
}

type LLMConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model"`
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Temperature  float64       `mapstructure:"temperature"`
	ContextTurns int           `mapstructure:"context_turns"`
}

type DaprConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	HTTPPort   int    `mapstructure:"http_port"`
	PubsubName string `mapstructure:"pubsub_name"`
	TopicName  string `mapstructure:"topic_name"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// legacyEnv maps keys to the environment names used by existing deployments.
var legacyEnv = map[string]string{
	"storage.database_url": "DATABASE_URL",
	"storage.redis_addr":   "REDIS_ADDR",
	"storage.debug":        "DB_DEBUG",
	"llm.api_key":          "OPENAI_API_KEY",
	"llm.model":            "OPENAI_MODEL",
	"llm.base_url":         "OPENAI_BASE_URL",
	"dapr.enabled":         "DAPR_ENABLED",
	"dapr.http_port":       "DAPR_HTTP_PORT",
	"dapr.pubsub_name":     "DAPR_PUBSUB_NAME",
	"dapr.topic_name":      "DAPR_TOPIC_NAME",
	"http.cors_origins":    "CORS_ALLOWED_ORIGINS",
	"nats_port":            "NATS_PORT",
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8000")
	v.SetDefault("http.cors_origins", "*")
	v.SetDefault("http.access_log", true)

	v.SetDefault("storage.database_url", "sqlite:///./dev.db")
	v.SetDefault("storage.history_backend", "sqlite")
	v.SetDefault("storage.history_db_path", "./chat_history.db")
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.jetstream_dir", "./data/jetstream")
	v.SetDefault("storage.debug", false)

	v.SetDefault("chat.history_limit", 20)
	v.SetDefault("chat.fallback", "assistant")

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4.1-mini")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.context_turns", 12)

	v.SetDefault("dapr.enabled", false)
	v.SetDefault("dapr.http_port", 3500)
	v.SetDefault("dapr.pubsub_name", "kafka-pubsub")
	v.SetDefault("dapr.topic_name", "task-events")

	v.SetDefault("log.level", "info")
	v.SetDefault("shutdown_timeout", 30*time.Second)
	v.SetDefault("nats_port", 4222)
}

// New returns a viper instance with defaults and environment binding. When
// path is not empty the YAML file it names is read as well.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		// prefixed name first so it wins over the legacy one
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	return v, nil
}

// Load reads the configuration and validates it.
func Load(path string) (*Config, error) {
	v, err := New(path)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper decodes v into a Config and validates it.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Storage.DatabaseURL = strings.TrimSpace(cfg.Storage.DatabaseURL)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the application cannot start with.
func (c *Config) Validate() error {
	if c.Storage.DatabaseURL == "" {
		return fmt.Errorf("storage.database_url must not be empty")
	}
	switch c.Storage.HistoryBackend {
	case "memory", "sqlite", "redis", "kv":
	default:
		return fmt.Errorf("storage.history_backend must be memory, sqlite, redis or kv, got %q", c.Storage.HistoryBackend)
	}
	if c.Storage.HistoryBackend == "kv" && c.Storage.JetStreamDir == "" {
		return fmt.Errorf("storage.jetstream_dir must not be empty for the kv history backend")
	}
	switch c.Chat.Fallback {
	case "assistant", "static":
	default:
		return fmt.Errorf("chat.fallback must be assistant or static, got %q", c.Chat.Fallback)
	}
	switch c.Log.Level {
	case "info", "error":
	default:
		return fmt.Errorf("log.level must be info or error, got %q", c.Log.Level)
	}
	if c.Chat.HistoryLimit <= 0 {
		return fmt.Errorf("chat.history_limit must be positive")
	}
	if c.LLM.ContextTurns <= 0 {
		return fmt.Errorf("llm.context_turns must be positive")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}
	return nil
}
