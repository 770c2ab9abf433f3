package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// UseMemoryStores runs the engine against in-process stores instead of
	// Postgres. Intended for local development and demos only.
	UseMemoryStores bool

	// Reservation hold lifetime. TTLs requested above the max are clamped.
	ReservationTTL    time.Duration
	ReservationTTLMax time.Duration
	SweepInterval     time.Duration

	AvailabilityCacheTTL time.Duration
	MaxQueryRangeDays    int

	// Per-IP rate limit on hold placement. Zero disables it.
	ReserveRateLimit float64
	ReserveBurst     int

	CORSAllowedOrigins string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		UseMemoryStores: getEnvAsBool("USE_MEMORY_STORES", false),

		ReservationTTL:    getEnvAsDuration("RESERVATION_TTL", 5*time.Minute),
		ReservationTTLMax: getEnvAsDuration("RESERVATION_TTL_MAX", 10*time.Minute),
		SweepInterval:     getEnvAsDuration("RESERVATION_SWEEP_INTERVAL", 45*time.Second),

		AvailabilityCacheTTL: getEnvAsDuration("AVAILABILITY_CACHE_TTL", time.Hour),
		MaxQueryRangeDays:    getEnvAsInt("MAX_QUERY_RANGE_DAYS", 90),

		ReserveRateLimit: getEnvAsFloat("RESERVE_RATE_LIMIT", 0),
		ReserveBurst:     getEnvAsInt("RESERVE_BURST", 5),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
