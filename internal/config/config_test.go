package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(mapLookup(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(mapLookup(map[string]string{
		EnvLogLevel:       "debug",
		EnvDefinitionsDir: " ./defs ",
		EnvOutput:         "HTML",
		EnvTheme:          "lab",
		EnvThemeVariant:   "dark",
		EnvLogEncoding:    "",
	}))
	require.NoError(t, err)
	assert.Equal(t, Config{
		LogLevel:       "debug",
		LogEncoding:    "console",
		DefinitionsDir: "./defs",
		Output:         "html",
		Theme:          "lab",
		ThemeVariant:   "dark",
	}, cfg)
}

func TestFromEnvRejectsUnknownOutput(t *testing.T) {
	_, err := FromEnv(mapLookup(map[string]string{EnvOutput: "pdf"}))
	assert.ErrorContains(t, err, EnvOutput)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "labforms.env")
	require.NoError(t, os.WriteFile(file, []byte("LABFORMS_THEME=from-file\n"), 0o600))

	t.Setenv(EnvTheme, "")
	require.NoError(t, os.Unsetenv(EnvTheme))

	cfg, err := Load(file, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Theme)
}
