package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMySQL  = "mysql"
)

// Config holds client configuration loaded from environment variables.
type Config struct {
	APIURL  string
	Timeout time.Duration

	SessionBackend string
	SessionProfile string
	SessionTTL     time.Duration

	RedisAddr string
	RedisDB   int
	RedisPass string
	MySQLDSN  string

	CacheStaleAfter time.Duration
	CacheGCAfter    time.Duration
}

// Load builds Config from the environment with sensible defaults. A .env
// file in the working directory is read first if present; variables that
// are already set win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		APIURL:          strings.TrimRight(getEnv("DEVBLOG_API_URL", "http://localhost:4000"), "/"),
		Timeout:         time.Duration(getEnvInt("DEVBLOG_TIMEOUT_MS", 10000)) * time.Millisecond,
		SessionBackend:  strings.ToLower(getEnv("SESSION_BACKEND", BackendRedis)),
		SessionProfile:  getEnv("SESSION_PROFILE", "default"),
		SessionTTL:      getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		RedisPass:       os.Getenv("REDIS_PASSWORD"),
		MySQLDSN:        getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/devblog?charset=utf8mb4&parseTime=True&loc=Local"),
		CacheStaleAfter: getEnvDuration("CACHE_STALE_AFTER", 60*time.Second),
		CacheGCAfter:    getEnvDuration("CACHE_GC_AFTER", 5*time.Minute),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
