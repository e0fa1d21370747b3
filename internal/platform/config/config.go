package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file from the current working directory and sets
// environment variables that are not already set. If .env does not exist, Load
// returns an error but callers can ignore it and use system env or defaults.
// Pass one or more paths to load from specific files; with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// Store drivers accepted in STORE_DRIVER.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Settings is the server configuration read from the environment.
type Settings struct {
	Port            string
	LogLevel        string
	LogFormat       string
	StoreDriver     string
	SQLitePath      string
	ShutdownTimeout time.Duration
}

// FromEnv reads Settings from the environment, applying defaults.
func FromEnv() (Settings, error) {
	s := Settings{
		Port:            GetEnv("PORT", "8080"),
		LogLevel:        GetEnv("LOG_LEVEL", "info"),
		LogFormat:       GetEnv("LOG_FORMAT", "json"),
		StoreDriver:     strings.ToLower(GetEnv("STORE_DRIVER", StoreMemory)),
		SQLitePath:      GetEnv("SQLITE_PATH", "series.db"),
		ShutdownTimeout: time.Duration(GetEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 10)) * time.Second,
	}
	switch s.StoreDriver {
	case StoreMemory, StoreSQLite:
	default:
		return s, fmt.Errorf("invalid STORE_DRIVER %q: must be %q or %q", s.StoreDriver, StoreMemory, StoreSQLite)
	}
	if s.ShutdownTimeout <= 0 {
		return s, fmt.Errorf("invalid SHUTDOWN_TIMEOUT_SECONDS: must be positive")
	}
	return s, nil
}
