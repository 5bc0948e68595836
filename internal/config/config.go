// internal/config/config.go
//
// Process configuration read from environment variables.
// main loads a `.env` file (godotenv) before calling Load, so local
// development can keep settings in a file.
//
// Variables (defaults in parentheses):
//   PORT (5175)              HTTP listen port
//   LOG_LEVEL (info)         zerolog level
//   DB_PATH (./data/app.db)  SQLite database file
//   CLIENT_ORIGIN (http://localhost:5173)  CORS origin
//   JWT_SECRET (dev_secret_change_me)      HS256 signing key
//   JWT_EXPIRES_DAYS (14)    token lifetime
//   COOKIE_NAME (concentration_token)     auth cookie
//   NODE_ENV                 "production" enables Secure cookies
//   DAILY_SALT (local_dev_salt)           daily board seed salt
//   BOARD_DIMENSION (4)      default board dimension
//   SYMBOLS_FILE             optional symbol pool override
//   SESSION_TTL_MINUTES (60) live session lifetime before eviction

package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the resolved process configuration.
type Config struct {
	Port           string
	LogLevel       string
	DBPath         string
	ClientOrigin   string
	JWTSecret      string
	JWTExpiresDays int
	CookieName     string
	Production     bool
	DailySalt      string
	BoardDimension int
	SymbolsFile    string
	SessionTTL     time.Duration
}

// Load reads the configuration from the environment.
func Load() Config {
	return Config{
		Port:           getEnv("PORT", "5175"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DBPath:         getEnv("DB_PATH", "./data/app.db"),
		ClientOrigin:   getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		JWTSecret:      getEnv("JWT_SECRET", "dev_secret_change_me"),
		JWTExpiresDays: envInt("JWT_EXPIRES_DAYS", 14),
		CookieName:     getEnv("COOKIE_NAME", "concentration_token"),
		Production:     os.Getenv("NODE_ENV") == "production",
		DailySalt:      getEnv("DAILY_SALT", "local_dev_salt"),
		BoardDimension: envInt("BOARD_DIMENSION", 4),
		SymbolsFile:    os.Getenv("SYMBOLS_FILE"),
		SessionTTL:     time.Duration(envInt("SESSION_TTL_MINUTES", 60)) * time.Minute,
	}
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// envInt parses k as an int, falling back to def when unset or malformed.
func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
