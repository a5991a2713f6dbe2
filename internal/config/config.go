package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	App          AppConfig         `mapstructure:"app"`
	HTTP         HTTPConfig        `mapstructure:"http"`
	Health       HealthConfig      `mapstructure:"health"`
	JWT          JWTConfig         `mapstructure:"jwt"`
	API          APIConfig         `mapstructure:"api"`
	Paging       PagingConfig      `mapstructure:"paging"`
	Store        StoreConfig       `mapstructure:"store"`
	Database     DatabaseConfig    `mapstructure:"database"`
	Redis        RedisConfig       `mapstructure:"redis"`
	NATS         NATSConfig        `mapstructure:"nats"`
	Translation  TranslationConfig `mapstructure:"translation"`
	AccountsFile string            `mapstructure:"accounts_file"`
}

type AppConfig struct {
	Name     string `mapstructure:"name" validate:"required"`
	NodeID   int64  `mapstructure:"node_id" validate:"gte=0,lte=1023"`
	LogLevel string `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

type HTTPConfig struct {
	Port          int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	Mode          string        `mapstructure:"mode" validate:"omitempty,oneof=debug release test"`
	ThreadTimeout time.Duration `mapstructure:"thread_timeout"`
	CORS          CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type HealthConfig struct {
	Port int `mapstructure:"port" validate:"required,gt=0,lt=65536"`
}

type JWTConfig struct {
	SecretKey    string        `mapstructure:"secret_key" validate:"required,min=16"`
	AccessExpire time.Duration `mapstructure:"access_expire" validate:"required"`
}

type APIConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int           `mapstructure:"burst" validate:"gte=0"`
}

type PagingConfig struct {
	PageSize           int  `mapstructure:"page_size" validate:"gt=0,lte=40"`
	InitialLoadSize    int  `mapstructure:"initial_load_size" validate:"gte=0,lte=80"`
	EnablePlaceholders bool `mapstructure:"enable_placeholders"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=memory postgres"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type NATSConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

type TranslationConfig struct {
	TargetLanguage string        `mapstructure:"target_language"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

// Load 从指定路径加载配置
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// 从环境变量覆盖配置
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults 配置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "fedisync")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.mode", "release")
	v.SetDefault("http.thread_timeout", 15*time.Second)
	v.SetDefault("health.port", 8081)
	v.SetDefault("jwt.access_expire", 24*time.Hour)
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.user_agent", "fedisync/1.0")
	v.SetDefault("api.requests_per_second", 5)
	v.SetDefault("api.burst", 10)
	v.SetDefault("paging.page_size", 20)
	v.SetDefault("paging.initial_load_size", 20)
	v.SetDefault("paging.enable_placeholders", true)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", 2*time.Second)
	v.SetDefault("translation.target_language", "en")
	v.SetDefault("translation.cache_ttl", 24*time.Hour)
}

// applyEnv 从环境变量覆盖配置
func (c *Config) applyEnv() {
	// App
	c.App.NodeID = int64(GetEnvInt("FEDISYNC_NODE_ID", int(c.App.NodeID)))
	c.App.LogLevel = GetEnv("FEDISYNC_LOG_LEVEL", c.App.LogLevel)
	c.AccountsFile = GetEnv("FEDISYNC_ACCOUNTS_FILE", c.AccountsFile)

	// HTTP
	c.HTTP.Port = GetEnvInt("FEDISYNC_HTTP_PORT", c.HTTP.Port)
	c.Health.Port = GetEnvInt("FEDISYNC_HEALTH_PORT", c.Health.Port)

	// JWT
	c.JWT.SecretKey = GetEnv("JWT_SECRET", c.JWT.SecretKey)
	c.JWT.AccessExpire = GetEnvDuration("JWT_ACCESS_EXPIRE", c.JWT.AccessExpire)

	// Store
	c.Store.Driver = GetEnv("FEDISYNC_STORE_DRIVER", c.Store.Driver)

	// Database
	c.Database.Host = GetEnv("POSTGRES_HOST", c.Database.Host)
	c.Database.Port = GetEnvInt("POSTGRES_PORT", c.Database.Port)
	c.Database.User = GetEnv("POSTGRES_USER", c.Database.User)
	c.Database.Password = GetEnv("POSTGRES_PASSWORD", c.Database.Password)
	c.Database.Name = GetEnv("POSTGRES_DB", c.Database.Name)
	c.Database.MaxOpenConns = GetEnvInt("POSTGRES_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = GetEnvInt("POSTGRES_MAX_IDLE_CONNS", c.Database.MaxIdleConns)

	// Redis
	c.Redis.Enabled = GetEnvBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Host = GetEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = GetEnvInt("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = GetEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = GetEnvInt("REDIS_DB", c.Redis.DB)
	c.Redis.PoolSize = GetEnvInt("REDIS_POOL_SIZE", c.Redis.PoolSize)

	// NATS
	c.NATS.Enabled = GetEnvBool("NATS_ENABLED", c.NATS.Enabled)
	c.NATS.URL = GetEnv("NATS_URL", c.NATS.URL)
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Store.Driver == "postgres" && (c.Database.Host == "" || c.Database.Name == "") {
		return fmt.Errorf("invalid config: database host and name are required for the postgres store")
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return fmt.Errorf("invalid config: nats url is required when nats is enabled")
	}
	return nil
}

// SlogLevel 将日志级别字符串转换为 slog.Level
func (c *AppConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
