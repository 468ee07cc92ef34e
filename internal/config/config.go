// Package config loads server configuration from the environment.
//
// A .env file in the working directory is loaded first (convenient for local
// development); real environment variables always win. Only JWT_SECRET is
// hard-required — the server refuses to start without it because every
// protected route depends on token validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port   int
	DBPath string

	JWTSecret string

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	// BaseURL is used to build links placed in outgoing email
	// (password-reset links).
	BaseURL string
}

// Load reads the environment (plus an optional .env file) into a Config.
func Load() (*Config, error) {
	// Missing .env is fine — env vars may be set by the deployment instead.
	_ = godotenv.Load()

	cfg := &Config{
		Port:               8080,
		DBPath:             getEnv("DB_PATH", "data/sitebuilder.db"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubCallbackURL:  os.Getenv("GITHUB_CALLBACK_URL"),
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("config: invalid PORT %q: %w", portStr, err)
		}
		cfg.Port = port
	}

	cfg.BaseURL = getEnv("BASE_URL", fmt.Sprintf("http://localhost:%d", cfg.Port))
	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = cfg.BaseURL + "/auth/github/callback"
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("config: JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
