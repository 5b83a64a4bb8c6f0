package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	PolicyNetworkFirst = "network-first"
	PolicyCacheFirst   = "cache-first"
)

type Config struct {
	Server     ServerConfig
	Upstream   UpstreamConfig
	Preprocess PreprocessConfig
	Cache      CacheConfig
	Supabase   SupabaseConfig
	Redis      RedisConfig
	RabbitMQ   RabbitMQConfig
	Storage    StorageConfig
	Log        LogConfig
	Metrics    MetricsConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type UpstreamConfig struct {
	URL     string
	Timeout time.Duration
}

type PreprocessConfig struct {
	MaxDimension int
	Quality      float64
}

type CacheConfig struct {
	Version      string
	Origin       string
	Policy       string
	Manifest     []string
	OfflinePath  string
	Backend      string
	DSN          string
	MaxEntrySize int64
}

type SupabaseConfig struct {
	URL    string
	KEY    string
	BUCKET string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RabbitMQConfig struct {
	URL   string
	Queue string
}

type StorageConfig struct {
	MaxFileSize    int64
	LedgerBackend  string
	HistoryLimit   int64
	LedgerLocation *time.Location
}

type LogConfig struct {
	Level string
}

type MetricsConfig struct {
	Addr string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	loc, err := time.LoadLocation(getEnv("LEDGER_TZ", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEDGER_TZ: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDuration("READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 45*time.Second),
		},
		Upstream: UpstreamConfig{
			URL:     getEnv("UPSTREAM_URL", "http://localhost:5678/webhook/analyze"),
			Timeout: getDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		},
		Preprocess: PreprocessConfig{
			MaxDimension: getEnvAsInt("PREPROCESS_MAX_DIMENSION", 1280),
			Quality:      getEnvAsFloat("PREPROCESS_QUALITY", 0.85),
		},
		Cache: CacheConfig{
			Version:      getEnv("CACHE_VERSION", "meal-shell-v1"),
			Origin:       getEnv("CACHE_ORIGIN", "http://localhost:8081"),
			Policy:       getEnv("CACHE_POLICY", PolicyNetworkFirst),
			Manifest:     getList("CACHE_MANIFEST", []string{"/", "/index.html", "/script.js", "/styles.css", "/manifest.webmanifest"}),
			OfflinePath:  getEnv("CACHE_OFFLINE_PATH", "/offline.html"),
			Backend:      getEnv("CACHE_BACKEND", "memory"),
			DSN:          getEnv("CACHE_DSN", ""),
			MaxEntrySize: getEnvAsInt64("CACHE_MAX_ENTRY_SIZE", 5*1024*1024), // 5MB
		},
		Supabase: SupabaseConfig{
			URL:    getEnv("SUPABASE_URL", ""),
			KEY:    getEnv("SUPABASE_KEY", ""),
			BUCKET: getEnv("SUPABASE_BUCKET", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RabbitMQ: RabbitMQConfig{
			URL:   getEnv("RABBITMQ_URL", ""),
			Queue: getEnv("RABBITMQ_QUEUE", "meal_analysis"),
		},
		Storage: StorageConfig{
			MaxFileSize:    getEnvAsInt64("MAX_FILE_SIZE", 15*1024*1024), // 15MB
			LedgerBackend:  getEnv("LEDGER_BACKEND", "memory"),
			HistoryLimit:   getEnvAsInt64("HISTORY_LIMIT", 50),
			LedgerLocation: loc,
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Addr: getEnv("METRICS_ADDR", ":9102"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values the services cannot run with.
func (c *Config) Validate() error {
	if c.Upstream.URL == "" {
		return fmt.Errorf("UPSTREAM_URL is required")
	}
	if _, err := url.ParseRequestURI(c.Upstream.URL); err != nil {
		return fmt.Errorf("invalid UPSTREAM_URL: %w", err)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}

	origin, err := url.Parse(c.Cache.Origin)
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return fmt.Errorf("invalid CACHE_ORIGIN %q", c.Cache.Origin)
	}

	switch c.Cache.Policy {
	case PolicyNetworkFirst, PolicyCacheFirst:
	default:
		return fmt.Errorf("invalid CACHE_POLICY %q: must be %s or %s", c.Cache.Policy, PolicyNetworkFirst, PolicyCacheFirst)
	}

	if c.Cache.Version == "" {
		return fmt.Errorf("CACHE_VERSION is required")
	}
	if c.Preprocess.MaxDimension <= 0 {
		return fmt.Errorf("PREPROCESS_MAX_DIMENSION must be positive")
	}
	if c.Preprocess.Quality <= 0 || c.Preprocess.Quality > 1 {
		return fmt.Errorf("PREPROCESS_QUALITY must be in (0,1]")
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

// getList splits a comma separated value, dropping empty elements.
func getList(key string, defaultVal []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
