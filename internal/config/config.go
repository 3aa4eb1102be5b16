package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains runtime configuration values.
type Config struct {
	Environment          string
	HTTPPort             string
	IdentityBaseURL      string
	IdentityAPIKey       string
	BackendBaseURL       string
	BackendAPIKey        string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	MembershipTimeout    time.Duration
	SelectionTTL         time.Duration
	ServiceName          string
	RateLimitRPM         int
	RateLimitBurst       int
	TelemetryEndpoint    string
	TelemetryInsecure    bool
	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSAllowCredentials bool
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	identityURL := strings.TrimRight(strings.TrimSpace(os.Getenv("IDENTITY_BASE_URL")), "/")
	if identityURL == "" {
		return Config{}, fmt.Errorf("IDENTITY_BASE_URL is required")
	}
	backendURL := strings.TrimRight(strings.TrimSpace(os.Getenv("BACKEND_BASE_URL")), "/")
	if backendURL == "" {
		return Config{}, fmt.Errorf("BACKEND_BASE_URL is required")
	}

	cfg := Config{
		Environment:          getEnv("APP_ENV", "development"),
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		IdentityBaseURL:      identityURL,
		IdentityAPIKey:       os.Getenv("IDENTITY_API_KEY"),
		BackendBaseURL:       backendURL,
		BackendAPIKey:        os.Getenv("BACKEND_API_KEY"),
		RedisAddr:            getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getInt("REDIS_DB", 0),
		MembershipTimeout:    getDuration("MEMBERSHIP_TIMEOUT", 3*time.Second),
		SelectionTTL:         getDuration("SELECTION_TTL", 90*24*time.Hour),
		ServiceName:          getEnv("SERVICE_NAME", "desk-session"),
		RateLimitRPM:         getInt("RATE_LIMIT_RPM", 600),
		RateLimitBurst:       getInt("RATE_LIMIT_BURST", 0),
		TelemetryEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure:    getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		CORSAllowedOrigins:   getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		CORSAllowedMethods:   getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
		CORSAllowedHeaders:   getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type"}),
		CORSAllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", false),
	}

	if cfg.MembershipTimeout <= 0 {
		cfg.MembershipTimeout = 3 * time.Second
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
