package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Database
	DatabaseURL string

	// Redis (optional; enables the shared rate limiter and cross-instance chat fan-out)
	RedisURL string

	// Auth
	AuthJWTSecret      string
	CronSecret         string
	AdminSecret        string
	AllowedEmailDomain string

	// Timer
	RateLimitInterval time.Duration
	StaleSessionAfter time.Duration
	SchedulerEnabled  bool

	// RabbitMQ
	AMQPURL      string
	AMQPExchange string

	// Object storage
	ObjectStore ObjectStoreConfig

	// Frontend
	FrontendURL string
}

// ObjectStoreConfig describes the S3-compatible bucket used for avatars.
type ObjectStoreConfig struct {
	Bucket        string
	Region        string
	Endpoint      string
	PublicBaseURL string
}

func (c ObjectStoreConfig) Enabled() bool {
	return strings.TrimSpace(c.Bucket) != ""
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:               getEnvOrDefault("PORT", "8080"),
		Env:                getEnvOrDefault("ENV", "development"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		DatabaseURL:        mustGetEnv("DATABASE_URL"),
		RedisURL:           getEnvOrDefault("REDIS_URL", ""),
		AuthJWTSecret:      mustGetEnv("AUTH_JWT_SECRET"),
		CronSecret:         getEnvOrDefault("CRON_SECRET", ""),
		AdminSecret:        getEnvOrDefault("ADMIN_SECRET", ""),
		AllowedEmailDomain: strings.ToLower(getEnvOrDefault("ALLOWED_EMAIL_DOMAIN", "nyu.edu")),
		RateLimitInterval:  getEnvAsDurationOrDefault("RATE_LIMIT_INTERVAL", time.Second),
		StaleSessionAfter:  getEnvAsDurationOrDefault("STALE_SESSION_AFTER", 2*time.Minute),
		SchedulerEnabled:   getEnvAsBoolOrDefault("SCHEDULER_ENABLED", false),
		AMQPURL:            getEnvOrDefault("AMQP_URL", ""),
		AMQPExchange:       getEnvOrDefault("AMQP_EXCHANGE", "rally.events"),
		ObjectStore: ObjectStoreConfig{
			Bucket:        getEnvOrDefault("S3_BUCKET", ""),
			Region:        getEnvOrDefault("S3_REGION", "us-east-1"),
			Endpoint:      getEnvOrDefault("S3_ENDPOINT", ""),
			PublicBaseURL: getEnvOrDefault("S3_PUBLIC_BASE_URL", ""),
		},
		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// getEnvAsDurationOrDefault accepts Go duration strings ("90s") or a bare
// number of seconds.
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil && d > 0 {
		return d
	}
	if secs := getEnvAsIntOrDefault(key, 0); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}
