// internal/config/config.go
//
// Runtime configuration read from the environment (optionally seeded by a
// .env file loaded in main via godotenv).
//
// Environment variables:
//   PORT                 HTTP port (default 5175)
//   LOG_LEVEL            zerolog level (default info)
//   DB_PATH              SQLite file for the leaderboard (default ./data/puzzle.db)
//   CLIENT_ORIGIN        extra origin allowed for CORS and websockets
//   JWT_SECRET           HMAC secret for game tokens (required by serve)
//   ALLOW_DEV_SECRET     "true" lets serve run with the built-in development secret
//   GAME_TOKEN_HOURS     game token lifetime (default 12)
//   LEADERBOARD_KEY      storage key of the main leaderboard (default puzzleScores)
//   LEADERBOARD_SIZE     records kept per leaderboard (default 10)
//   DAILY_SALT           salt for the daily board seed
//   ADMIN_PASSWORD_HASH  bcrypt hash guarding leaderboard clears (optional)
//   SESSION_TTL_MINUTES  idle time before a game is forgotten (default 120)
//   PUZZLE_SIZE          board side length (default 3)

package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const devSecret = "dev_secret_change_me"

// ErrDevSecret is returned by Validate when game tokens would be signed with
// the built-in development secret.
var ErrDevSecret = errors.New("JWT_SECRET is not set; set it or ALLOW_DEV_SECRET=true for local development")

// Config is the resolved configuration.
type Config struct {
	Port              string
	LogLevel          string
	DBPath            string
	ClientOrigin      string
	JWTSecret         string
	AllowDevSecret    bool
	GameTokenTTL      time.Duration
	LeaderboardKey    string
	LeaderboardSize   int
	DailySalt         string
	AdminPasswordHash string
	SessionTTL        time.Duration
	PuzzleSize        int
}

// Load reads the environment, applying defaults for anything unset or invalid.
func Load() Config {
	c := Config{
		Port:              getEnv("PORT", "5175"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DBPath:            getEnv("DB_PATH", "./data/puzzle.db"),
		ClientOrigin:      os.Getenv("CLIENT_ORIGIN"),
		JWTSecret:         getEnv("JWT_SECRET", devSecret),
		AllowDevSecret:    os.Getenv("ALLOW_DEV_SECRET") == "true",
		GameTokenTTL:      time.Duration(envInt("GAME_TOKEN_HOURS", 12)) * time.Hour,
		LeaderboardKey:    getEnv("LEADERBOARD_KEY", "puzzleScores"),
		LeaderboardSize:   envInt("LEADERBOARD_SIZE", 10),
		DailySalt:         getEnv("DAILY_SALT", "local_dev_salt"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		SessionTTL:        time.Duration(envInt("SESSION_TTL_MINUTES", 120)) * time.Minute,
		PuzzleSize:        envInt("PUZZLE_SIZE", 3),
	}
	if c.PuzzleSize < 2 || c.PuzzleSize > 6 {
		log.Warn().Int("size", c.PuzzleSize).Msg("PUZZLE_SIZE out of range, using 3")
		c.PuzzleSize = 3
	}
	return c
}

// UsingDevSecret reports whether JWT_SECRET was left at its development default.
func (c Config) UsingDevSecret() bool { return c.JWTSecret == devSecret }

// Validate checks settings the HTTP server cannot run safely without.
func (c Config) Validate() error {
	if c.UsingDevSecret() && !c.AllowDevSecret {
		return ErrDevSecret
	}
	return nil
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// envInt parses a positive integer from k, falling back to def.
func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid integer in environment, using default")
		return def
	}
	return n
}
