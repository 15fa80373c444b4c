// Package config reads CLI settings from the environment. A .env file in
// the working directory is loaded first when present; variables already set
// in the environment win over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvLogLevel       = "LABFORMS_LOG_LEVEL"
	EnvLogEncoding    = "LABFORMS_LOG_ENCODING"
	EnvDefinitionsDir = "LABFORMS_DEFINITIONS_DIR"
	EnvOutput         = "LABFORMS_OUTPUT"
	EnvTheme          = "LABFORMS_THEME"
	EnvThemeVariant   = "LABFORMS_THEME_VARIANT"
)

// Config holds the settings shared by every subcommand.
type Config struct {
	LogLevel       string
	LogEncoding    string
	DefinitionsDir string
	Output         string
	Theme          string
	ThemeVariant   string
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		LogLevel:    "warn",
		LogEncoding: "console",
		Output:      "text",
	}
}

// Load reads files with godotenv, defaulting to ".env", and then the
// environment. Missing files are ignored.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", file, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	cfg.LogLevel = envString(lookup, EnvLogLevel, cfg.LogLevel)
	cfg.LogEncoding = envString(lookup, EnvLogEncoding, cfg.LogEncoding)
	cfg.DefinitionsDir = envString(lookup, EnvDefinitionsDir, cfg.DefinitionsDir)
	cfg.Output = strings.ToLower(envString(lookup, EnvOutput, cfg.Output))
	cfg.Theme = envString(lookup, EnvTheme, cfg.Theme)
	cfg.ThemeVariant = envString(lookup, EnvThemeVariant, cfg.ThemeVariant)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown output formats and log encodings.
func (c Config) Validate() error {
	switch c.Output {
	case "text", "html", "json":
	default:
		return fmt.Errorf("config: %s must be text, html or json, got %q", EnvOutput, c.Output)
	}
	switch c.LogEncoding {
	case "console", "json":
	default:
		return fmt.Errorf("config: %s must be console or json, got %q", EnvLogEncoding, c.LogEncoding)
	}
	return nil
}

func envString(lookup func(string) (string, bool), key, fallback string) string {
	if lookup == nil {
		return fallback
	}
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
