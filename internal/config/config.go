package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration, shared by the exam client
// and the local stub API server.
type Config struct {
	// Client
	APIBaseURL    string
	HTTPTimeout   time.Duration
	TickInterval  time.Duration
	DebounceDelay time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Stub server
	StubPort       string
	GinMode        string
	JWTSecret      string
	JWTExpiry      time.Duration
	BcryptCost     int
	DemoEmail      string
	DemoPassword   string
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:8080/api/v1"),
		HTTPTimeout:    time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 15)) * time.Second,
		TickInterval:   time.Duration(getEnvInt("TICK_INTERVAL_MS", 1000)) * time.Millisecond,
		DebounceDelay:  time.Duration(getEnvInt("DEBOUNCE_DELAY_MS", 500)) * time.Millisecond,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "pretty"),
		StubPort:       getEnv("STUB_PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		JWTSecret:      getEnv("JWT_SECRET", "change-this-to-a-secure-random-string"),
		JWTExpiry:      time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,
		BcryptCost:     getEnvInt("BCRYPT_COST", 6),
		DemoEmail:      getEnv("DEMO_EMAIL", "student@example.com"),
		DemoPassword:   getEnv("DEMO_PASSWORD", "password123"),
		AllowedOrigins: nil, // Allow-all; the stub only ever runs locally.
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
