package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
)

type Config struct {
	Port           int
	AllowedOrigins []string
	DatabaseURL    string

	RateLimitMessages int
	RateLimitWindow   time.Duration
	OutboundBuffer    int

	LogLevel  zerolog.Level
	LogFormat string
}

// Load reads the environment, falling back to defaults for unset variables.
// A variable that is set but malformed is an error.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogFormat:   os.Getenv("LOG_FORMAT"),
	}

	var err error
	if cfg.Port, err = intEnv("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.RateLimitMessages, err = intEnv("RATE_LIMIT_MESSAGES", 20); err != nil {
		return nil, err
	}
	if cfg.OutboundBuffer, err = intEnv("OUTBOUND_BUFFER", 64); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = durationEnv("RATE_LIMIT_WINDOW", time.Second); err != nil {
		return nil, err
	}

	cfg.LogLevel = zerolog.InfoLevel
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if cfg.LogLevel, err = zerolog.ParseLevel(strings.ToLower(raw)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", raw, err)
		}
	}

	cfg.AllowedOrigins = []string{"*"}
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		cfg.AllowedOrigins = nil
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	return cfg, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, raw)
	}
	return value, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration", key, raw)
	}
	return value, nil
}
