package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Search    SearchConfig    `yaml:"search"`
	Sync      SyncConfig      `yaml:"sync"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
	// LogSQL turns on gorm statement logging.
	LogSQL bool `yaml:"log_sql"`
}

// RedisConfig for the optional mirror queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SearchConfig selects the search mirror backend.
type SearchConfig struct {
	Driver    string `yaml:"driver"` // memory, surrealdb
	URL       string `yaml:"url"`
	Namespace string `yaml:"namespace"`
	Database  string `yaml:"database"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	// PageSize is used when a search request carries no size.
	PageSize int `yaml:"page_size"`
}

// SyncConfig tunes the outbox relay.
type SyncConfig struct {
	RelaySchedule string        `yaml:"relay_schedule"`
	PurgeSchedule string        `yaml:"purge_schedule"`
	BatchSize     int           `yaml:"batch_size"`
	MaxRetries    int           `yaml:"max_retries"`
	GracePeriod   time.Duration `yaml:"grace_period"`
	RetentionDays int           `yaml:"retention_days"`
}

type RateLimitConfig struct {
	SearchRPS   float64 `yaml:"search_rps"`
	SearchBurst int     `yaml:"search_burst"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		// Unmarshal over the defaults so a partial file keeps the rest.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg.overrideFromEnv()
	cfg.applyFloors()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "ledgersync.db",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		Search: SearchConfig{
			Driver:    "memory",
			URL:       "ws://localhost:8000/rpc",
			Namespace: "ledgersync",
			Database:  "search",
			PageSize:  20,
		},
		Sync: SyncConfig{
			RelaySchedule: "@every 30s",
			PurgeSchedule: "@daily",
			BatchSize:     100,
			MaxRetries:    10,
			GracePeriod:   30 * time.Second,
			RetentionDays: 7,
		},
		RateLimit: RateLimitConfig{
			SearchRPS:   20,
			SearchBurst: 40,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
	if driver := os.Getenv("SEARCH_DRIVER"); driver != "" {
		c.Search.Driver = driver
	}
	if u := os.Getenv("SEARCH_URL"); u != "" {
		c.Search.URL = u
	}
	if ns := os.Getenv("SEARCH_NAMESPACE"); ns != "" {
		c.Search.Namespace = ns
	}
	if db := os.Getenv("SEARCH_DATABASE"); db != "" {
		c.Search.Database = db
	}
	if user := os.Getenv("SEARCH_USERNAME"); user != "" {
		c.Search.Username = user
	}
	if pass := os.Getenv("SEARCH_PASSWORD"); pass != "" {
		c.Search.Password = pass
	}
	if schedule := os.Getenv("SYNC_RELAY_SCHEDULE"); schedule != "" {
		c.Sync.RelaySchedule = schedule
	}
	if v := os.Getenv("SYNC_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Sync.MaxRetries = n
		}
	}
	if v := os.Getenv("SYNC_GRACE_PERIOD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Sync.GracePeriod = d
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

func (c *Config) applyFloors() {
	if c.Search.PageSize <= 0 {
		c.Search.PageSize = 20
	}
	if c.Sync.BatchSize <= 0 {
		c.Sync.BatchSize = 100
	}
	if c.Sync.MaxRetries <= 0 {
		c.Sync.MaxRetries = 10
	}
	if c.Sync.RetentionDays <= 0 {
		c.Sync.RetentionDays = 7
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		// Password format: :password or user:password
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	c.Redis.Addr = url
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
