// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Narrator  NarratorConfig  `mapstructure:"narrator"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Assets    AssetsConfig    `mapstructure:"assets"`
	Historian HistorianConfig `mapstructure:"historian"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"` // memory | postgres
}

type PostgresConfig struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Database string `mapstructure:"database"`
}

// DSN renders the pgx connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", p.User, p.Password, p.Host, p.Port, p.Database)
}

type RedisConfig struct {
	Addr  string `mapstructure:"addr"` // empty disables event publishing
	DB    int    `mapstructure:"db"`
	Queue string `mapstructure:"queue"`
}

type NarratorConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Temperature     float64       `mapstructure:"temperature"`
	DefaultProvider string        `mapstructure:"default_provider"`
	APIKey          string        `mapstructure:"api_key"`
	SettleDelay     time.Duration `mapstructure:"settle_delay"`
	HistoryLimit    int           `mapstructure:"history_limit"`
}

type AuthConfig struct {
	TokenExpire time.Duration `mapstructure:"token_expire"`
	// Raw ed25519 key files. When unset a key pair is generated at startup.
	PrivateKeyPath string `mapstructure:"private_key_path"`
	PublicKeyPath  string `mapstructure:"public_key_path"`
}

type AssetsConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"` // empty keeps uploads in memory
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

type HistorianConfig struct {
	BatchSize int `mapstructure:"batch_size"`
	FlushMs   int `mapstructure:"flush_ms"`
}

// FlushDelay is the interval between time-based flushes.
func (h HistorianConfig) FlushDelay() time.Duration {
	return time.Duration(h.FlushMs) * time.Millisecond
}

// Load reads defaults, an optional YAML file and the environment, in that
// order of increasing precedence. An empty configPath skips the file.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.database", "taverna")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.queue", "taverna_room_events")
	v.SetDefault("narrator.timeout", "60s")
	v.SetDefault("narrator.max_tokens", 800)
	v.SetDefault("narrator.temperature", 0.7)
	v.SetDefault("narrator.default_provider", "openai")
	v.SetDefault("narrator.settle_delay", "2500ms")
	v.SetDefault("narrator.history_limit", 0)
	v.SetDefault("auth.token_expire", "24h")
	v.SetDefault("assets.region", "us-east-1")
	v.SetDefault("historian.batch_size", 20)
	v.SetDefault("historian.flush_ms", 500)

	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("log.level", "LOG_LEVEL")
	_ = v.BindEnv("store.driver", "STORE_DRIVER")
	_ = v.BindEnv("postgres.user", "POSTGRES_USER")
	_ = v.BindEnv("postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("postgres.host", "PG_HOST")
	_ = v.BindEnv("postgres.port", "PG_PORT")
	_ = v.BindEnv("postgres.database", "PG_DATABASE")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("redis.queue", "HISTORIAN_QUEUE_NAME")
	_ = v.BindEnv("narrator.timeout", "NARRATOR_TIMEOUT")
	_ = v.BindEnv("narrator.max_tokens", "NARRATOR_MAX_TOKENS")
	_ = v.BindEnv("narrator.temperature", "NARRATOR_TEMPERATURE")
	_ = v.BindEnv("narrator.default_provider", "NARRATOR_PROVIDER")
	_ = v.BindEnv("narrator.api_key", "NARRATOR_API_KEY")
	_ = v.BindEnv("narrator.settle_delay", "SYNC_SETTLE_DELAY")
	_ = v.BindEnv("narrator.history_limit", "NARRATOR_HISTORY_LIMIT")
	_ = v.BindEnv("auth.token_expire", "TOKEN_EXPIRE_TIME")
	_ = v.BindEnv("auth.private_key_path", "AUTH_PRIVATE_KEY_PATH")
	_ = v.BindEnv("auth.public_key_path", "AUTH_PUBLIC_KEY_PATH")
	_ = v.BindEnv("assets.endpoint", "S3_ENDPOINT")
	_ = v.BindEnv("assets.bucket", "S3_BUCKET")
	_ = v.BindEnv("assets.region", "S3_REGION")
	_ = v.BindEnv("assets.access_key_id", "S3_ACCESS_KEY_ID")
	_ = v.BindEnv("assets.secret_access_key", "S3_SECRET_ACCESS_KEY")
	_ = v.BindEnv("assets.use_path_style", "S3_USE_PATH_STYLE")
	_ = v.BindEnv("historian.batch_size", "HISTORIAN_BATCH_SIZE")
	_ = v.BindEnv("historian.flush_ms", "HISTORIAN_FLUSH_MS")

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if cfg.Store.Driver != "memory" && cfg.Store.Driver != "postgres" {
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err := cfg.Narrator.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects tuning that would leave vendor calls unbounded or make
// every request fail.
func (n NarratorConfig) validate() error {
	switch {
	case n.Timeout <= 0:
		return fmt.Errorf("narrator.timeout must be positive, got %s", n.Timeout)
	case n.MaxTokens <= 0:
		return fmt.Errorf("narrator.max_tokens must be positive, got %d", n.MaxTokens)
	case n.Temperature <= 0 || n.Temperature > 2:
		return fmt.Errorf("narrator.temperature must be in (0, 2], got %g", n.Temperature)
	case n.HistoryLimit < 0:
		return fmt.Errorf("narrator.history_limit must not be negative, got %d", n.HistoryLimit)
	}
	return nil
}
