// Package config handles loading and validating runtime configuration for the
// competition platform API. Configuration values are read from environment
// variables rather than being hardcoded, so the same binary can run in dev,
// staging, and production by swapping the environment.
package config

import (
	"os"

	// godotenv reads a .env file and loads its key=value pairs into the process
	// environment. Convenient in development; in production real env vars are used.
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values for the application.
type Config struct {
	Port             string // TCP port the HTTP server listens on (e.g. "8080")
	DatabaseURL      string // PostgreSQL connection string
	JWTSecret        string // HMAC secret for signing the API's own bearer tokens
	TelegramBotToken string // Bot token: verifies Login Widget payloads and sends notifications
	BotAPIKey        string // Shared key the bot presents on its own API routes
	FrontendURL      string // Public frontend base URL, used in notification links
	Env              string // "development", "staging", or "production"
}

// Load reads configuration from environment variables and returns a populated
// Config. A .env file is loaded first if present; a missing .env is fine
// (production sets real environment variables).
func Load() *Config {
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
	}

	frontend := os.Getenv("FRONTEND_URL")
	if frontend == "" {
		frontend = "http://localhost:5173"
	}

	return &Config{
		Port:             port,
		DatabaseURL:      os.Getenv("DATABASE_URL"),       // Required
		JWTSecret:        os.Getenv("JWT_SECRET"),         // Required
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"), // Required for login verification + notifications
		BotAPIKey:        os.Getenv("BOT_API_KEY"),        // Unset disables the bot routes
		FrontendURL:      frontend,
		Env:              env,
	}
}
