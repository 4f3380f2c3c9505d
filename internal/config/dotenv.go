package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables that override config file values.
const (
	EnvCatalog  = "TANGOTUNE_CATALOG"
	EnvLogLevel = "TANGOTUNE_LOG_LEVEL"
	EnvDB       = "TANGOTUNE_DB"
)

// Env holds the environment overrides. Empty fields are unset.
type Env struct {
	Catalog  string
	LogLevel string
	DB       string
}

// LoadDotEnv loads variables from path without overriding ones already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// FromEnv reads the overrides from the process environment.
func FromEnv() Env {
	return Env{
		Catalog:  os.Getenv(EnvCatalog),
		LogLevel: os.Getenv(EnvLogLevel),
		DB:       os.Getenv(EnvDB),
	}
}

// DBPath returns the database path, honoring the override.
func (e Env) DBPath() string {
	if e.DB != "" {
		return e.DB
	}
	return DefaultDBPath()
}
