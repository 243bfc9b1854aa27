package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	// Telegram Bot
	TelegramToken string

	// Database
	DatabaseURL string

	// Receipt recognition
	OpenAIAPIKey string

	// Web Server
	WebBind string

	// Admin API
	AdminPassword string
	JWTSecret     string
}

func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		WebBind:       getEnvDefault("WEB_BIND", "0.0.0.0:3000"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		JWTSecret:     getEnvDefault("JWT_SECRET", "dev-only-change-me"),
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
