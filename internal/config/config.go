package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/shutdown-timer/internal/logger"
)

// Config holds the parameters shared by the timer binaries.
type Config struct {
	// ServerAddress is the gRPC address of the settings daemon.
	ServerAddress string `yaml:"server_addr"`
	// SchemaDir is the directory holding settings schema files.
	SchemaDir string `yaml:"schema_dir"`
	// SchemaID selects the schema inside SchemaDir.
	SchemaID string `yaml:"schema_id,omitempty"`
	// StoreFile is the path to the JSON document storing the settings.
	StoreFile string `yaml:"store_file"`
	// Timeout is the duration for RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is the minimum level of log messages.
	LogLevel string `yaml:"log_level,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for the configuration.
	DefaultConfigFilename = "timer-settings.yaml"

	// DefaultStoreFilename is the default filename for the settings document.
	DefaultStoreFilename = "timer-settings.json"

	// DefaultSchemaDir is the directory for schema files, next to the executable.
	DefaultSchemaDir = "schemas"

	// DefaultServerAddress is used when the configuration has no address.
	DefaultServerAddress = "127.0.0.1:50061"

	// DefaultTimeout is the default duration for RPC calls.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// errConfigIsNotSet is returned when a nil configuration is provided.
var errConfigIsNotSet = errors.New("configuration is not set")

// Load reads configuration from the provided path and validates it.
// A missing file at the default path yields the defaults.
func Load(path string) (*Config, error) {
	isDefault := path == ""
	if isDefault {
		path = DefaultConfigFilename
	}

	var cfg Config

	contents, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case isDefault && errors.Is(err, os.ErrNotExist):
		// Run with defaults.
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the address and log level.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ServerAddress == "" {
		cfg.ServerAddress = DefaultServerAddress
	}

	if _, _, err := net.SplitHostPort(cfg.ServerAddress); err != nil {
		return fmt.Errorf("invalid server address: %w", err)
	}

	if cfg.SchemaDir == "" {
		cfg.SchemaDir = DefaultSchemaDirPath()
	}

	if cfg.StoreFile == "" {
		cfg.StoreFile = DefaultStoreFilename
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}

	return nil
}

// DefaultSchemaDirPath returns DefaultSchemaDir resolved against the directory
// of the running executable, so the daemon finds the schemas it ships with
// whatever its working directory is.
func DefaultSchemaDirPath() string {
	executable, err := os.Executable()
	if err != nil {
		return DefaultSchemaDir
	}

	if resolved, err := filepath.EvalSymlinks(executable); err == nil {
		executable = resolved
	}

	return filepath.Join(filepath.Dir(executable), DefaultSchemaDir)
}
