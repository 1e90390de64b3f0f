package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Supabase SupabaseConfig
	App      AppConfig
	Authstub AuthstubConfig
}

type SupabaseConfig struct {
	URL         string
	AnonKey     string
	HTTPTimeout time.Duration
}

type AppConfig struct {
	// Scheme is the deep-link URI scheme used for email confirmation and
	// password-recovery re-entry, e.g. suitable://auth/callback.
	Scheme      string
	IdleTimeout time.Duration
	Env         string
	LogLevel    string
}

type AuthstubConfig struct {
	Addr      string
	JWTSecret string
	DBPath    string
	// AccessTokenTTL controls how long minted access tokens live, which in
	// turn drives the client's refresh cadence during development.
	AccessTokenTTL time.Duration
}

func Load() (*Config, error) {
	// Load .env files if they exist (try .env.local first, then .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	config := &Config{
		Supabase: SupabaseConfig{
			URL:         getEnv("SUPABASE_URL", "http://localhost:9999"),
			AnonKey:     getEnv("SUPABASE_ANON_KEY", ""),
			HTTPTimeout: getEnvAsDuration("SUPABASE_HTTP_TIMEOUT", 10*time.Second),
		},
		App: AppConfig{
			Scheme:      getEnv("APP_SCHEME", "suitable"),
			IdleTimeout: getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
			Env:         getEnv("ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Authstub: AuthstubConfig{
			Addr:           getEnv("AUTHSTUB_ADDR", ":9999"),
			JWTSecret:      getEnv("AUTHSTUB_JWT_SECRET", "dev-secret-change-me"),
			DBPath:         getEnv("AUTHSTUB_DB", "authstub.db"),
			AccessTokenTTL: getEnvAsDuration("AUTHSTUB_ACCESS_TOKEN_TTL", time.Hour),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// Plain numbers are taken as seconds.
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
