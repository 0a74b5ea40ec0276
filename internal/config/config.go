package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Sessions
	JWTSecret      string
	JWTIssuer      string
	AccessTokenTTL time.Duration

	// Email encryption key (AES-256), decoded from 64-char hex.
	EmailEncryptionKey []byte

	// Authentication policy
	SignupRateWindow time.Duration
	SignupRateLimit  int
	LoginRateWindow  time.Duration
	LoginRateLimit   int
	LockoutThreshold int
	LockoutDuration  time.Duration

	// HTTP hardening
	BurstGuardEnabled  bool
	BurstGuardRequests int
	BurstGuardWindow   time.Duration
	MaxRequestBodySize int64
	CookieSecure       bool
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Server defaults
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "brewschews"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Session defaults
		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTIssuer:      getEnv("JWT_ISSUER", "brewschews-authgate"),
		AccessTokenTTL: getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),

		// Policy defaults: signup 5 per hour counting all attempts,
		// login 5 failures per 15 minutes, lock after 5 failures for 60m.
		SignupRateWindow: getEnvDuration("SIGNUP_RATE_WINDOW", time.Hour),
		SignupRateLimit:  getEnvInt("SIGNUP_RATE_LIMIT", 5),
		LoginRateWindow:  getEnvDuration("LOGIN_RATE_WINDOW", 15*time.Minute),
		LoginRateLimit:   getEnvInt("LOGIN_RATE_LIMIT", 5),
		LockoutThreshold: getEnvInt("LOCKOUT_THRESHOLD", 5),
		LockoutDuration:  getEnvDuration("LOCKOUT_DURATION", 60*time.Minute),

		// HTTP hardening defaults
		BurstGuardEnabled:  getEnvBool("BURST_GUARD_ENABLED", true),
		BurstGuardRequests: getEnvInt("BURST_GUARD_REQUESTS", 30),
		BurstGuardWindow:   getEnvDuration("BURST_GUARD_WINDOW", time.Minute),
		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
		CookieSecure:       getEnvBool("COOKIE_SECURE", false),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	rawKey := getEnv("EMAIL_ENCRYPTION_KEY", "")
	if rawKey == "" {
		return nil, fmt.Errorf("EMAIL_ENCRYPTION_KEY is required")
	}
	key, err := hex.DecodeString(rawKey)
	if err != nil || len(key) != 32 {
		return nil, fmt.Errorf("EMAIL_ENCRYPTION_KEY must be 64-char hex (32 bytes)")
	}
	cfg.EmailEncryptionKey = key

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
