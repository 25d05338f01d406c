// Package config loads server settings from the environment.
// A .env file in the working directory is honored for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs at startup.
type Config struct {
	Server  ServerConfig
	Game    GameConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Addr string
}

type GameConfig struct {
	// MaxRounds ends the game once reached; ScoreTarget ends it as soon as
	// any team reaches it, whichever happens first.
	MaxRounds   int
	ScoreTarget int
	TeamNames   []string

	// RoundDeadline is how long teams have before an unanswered case is
	// resolved as a misdiagnosis.
	RoundDeadline time.Duration
}

type StorageConfig struct {
	SQLitePath string
}

type LogConfig struct {
	Level string
}

// Load reads the environment (and an optional .env file) into a Config.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Addr: getEnv("ADDR", ":8080"),
		},
		Game: GameConfig{
			MaxRounds:     getEnvInt("MAX_ROUNDS", 15),
			ScoreTarget:   getEnvInt("SCORE_TARGET", 40),
			TeamNames:     splitList(getEnv("TEAM_NAMES", "Hospital 1,Hospital 2,Hospital 3")),
			RoundDeadline: getEnvDuration("ROUND_DEADLINE", 30*time.Second),
		},
		Storage: StorageConfig{
			SQLitePath: getEnv("SQLITE_PATH", "triage.db"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		fmt.Printf("Warning: invalid integer for %s (%q), using default\n", key, raw)
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		fmt.Printf("Warning: invalid duration for %s (%q), using default\n", key, raw)
		return defaultValue
	}
	return value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
