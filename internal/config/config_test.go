package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestValidate checks defaults and format validations.
func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := new(Config)
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultServerAddress, cfg.ServerAddress)
	require.Equal(t, DefaultSchemaDirPath(), cfg.SchemaDir)
	require.Equal(t, DefaultStoreFilename, cfg.StoreFile)
	require.Equal(t, DefaultTimeout, cfg.Timeout)

	// Bad address.
	require.Error(t, Validate(&Config{ServerAddress: "no-port"}))

	// Bad log level.
	require.Error(t, Validate(&Config{LogLevel: "chatty"}))

	require.Error(t, Validate(nil))
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := &Config{
		ServerAddress: "127.0.0.1:50051",
		SchemaDir:     "/usr/share/shutdown-timer/schemas",
		StoreFile:     filepath.Join(dir, "store.json"),
		LogLevel:      "debug",
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)

	require.Error(t, Save(path, nil))
}

// TestLoad_Missing fails for an explicit path that does not exist.
func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

// TestDefaultSchemaDirPath resolves the schema directory next to the executable.
func TestDefaultSchemaDirPath(t *testing.T) {
	t.Parallel()

	executable, err := os.Executable()
	require.NoError(t, err)

	dir := DefaultSchemaDirPath()
	require.True(t, filepath.IsAbs(dir))
	require.Equal(t, DefaultSchemaDir, filepath.Base(dir))

	resolved, err := filepath.EvalSymlinks(executable)
	require.NoError(t, err)
	require.Equal(t, filepath.Dir(resolved), filepath.Dir(dir))

	// A configured directory is kept as is.
	cfg := &Config{SchemaDir: "relative/schemas"}
	require.NoError(t, Validate(cfg))
	require.Equal(t, "relative/schemas", cfg.SchemaDir)
}
