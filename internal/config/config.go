package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"cinematime/internal/cache"
	"cinematime/internal/database"
	"cinematime/internal/messaging"
)

// Config holds the application configuration
type Config struct {
	Port            string
	GinMode         string
	LogLevel        string
	LogFormat       string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	UserIDHeader    string
	AllowedOrigins  []string
	MetricsEnabled  bool

	Database  database.Config
	NATS      messaging.Config
	Cache     cache.Config
	RateLimit cache.RateLimitConfig
	Booking   BookingConfig
}

// BookingConfig tunes the booking engine
type BookingConfig struct {
	MinCancelLead   time.Duration
	ReferencePrefix string
}

// Load reads the configuration from the environment. Values from a .env
// file in the working directory (or ENV_FILE) fill in unset variables.
func Load() *Config {
	loadDotEnv(getEnv("ENV_FILE", ".env"))

	return &Config{
		Port:            getEnv("PORT", "8081"),
		GinMode:         getEnv("GIN_MODE", "debug"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
		RequestTimeout:  time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		UserIDHeader:    getEnv("USER_ID_HEADER", "X-User-ID"),
		AllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "cinematime"),
			Password:           getEnv("DB_PASSWORD", "cinematime"),
			DBName:             getEnv("DB_NAME", "cinematime"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
			ConnectTimeout:     getEnvDuration("DB_CONNECT_TIMEOUT", 5*time.Second),
		},

		NATS: messaging.Config{
			Enabled:   getEnvBool("NATS_ENABLED", true),
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "cinematime"),
			ClientID:  getEnv("NATS_CLIENT_ID", "cinematime-api"),
		},

		Cache: cache.Config{
			Enabled:     getEnvBool("VALKEY_ENABLED", true),
			Addr:        getEnv("VALKEY_ADDR", "localhost:6379"),
			Password:    getEnv("VALKEY_PASSWORD", ""),
			DB:          getEnvInt("VALKEY_DB", 0),
			ShowtimeTTL: getEnvDuration("SHOWTIME_CACHE_TTL", cache.DefaultShowtimeTTL),
		},

		RateLimit: cache.RateLimitConfig{
			Enabled: getEnvBool("BOOKING_RATE_LIMIT_ENABLED", true),
			Limit:   getEnvInt("BOOKING_RATE_LIMIT", 20),
			Window:  getEnvDuration("BOOKING_RATE_LIMIT_WINDOW", time.Minute),
			Prefix:  getEnv("BOOKING_RATE_LIMIT_PREFIX", "ratelimit:bookings"),
		},

		Booking: BookingConfig{
			MinCancelLead:   getEnvDuration("BOOKING_MIN_CANCEL_LEAD", 2*time.Hour),
			ReferencePrefix: getEnv("BOOKING_REFERENCE_PREFIX", "CT"),
		},
	}
}

func loadDotEnv(path string) {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load env file", "path", path, "error", err)
	}
}

// getEnv returns the variable or defaultValue when unset
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("90m", "2h")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
