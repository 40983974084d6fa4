// Package config holds the settings shared by the server and the CLI.
//
// Settings are resolved in three layers, later layers winning:
//
//  1. Defaults (Default())
//  2. An optional YAML file (--config / FITNESS_CONFIG)
//  3. Environment variables (FITNESS_* and PORT)
//
// A .env file in the working directory is loaded into the environment by the
// binaries before Load runs, so it behaves like layer 3.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	StorageJSON   = "json"
	StorageSQLite = "sqlite"
)

// Config is the resolved application configuration.
type Config struct {
	// Host and Port form the HTTP listen address. Host defaults to loopback:
	// the API serves one local user and has no session tokens.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// DataDir holds users.json and user_data.json (or fitness.db).
	DataDir string `yaml:"data_dir"`

	// Storage selects the backend: "json" (default) or "sqlite".
	Storage string `yaml:"storage"`

	// DBPath overrides the SQLite file location. Empty means
	// <DataDir>/fitness.db.
	DBPath string `yaml:"db_path"`

	// HashPasswords stores new registrations as bcrypt hashes instead of
	// plain text. Off by default so users.json stays readable by the
	// desktop app.
	HashPasswords bool `yaml:"hash_passwords"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Host:     "127.0.0.1",
		Port:     8080,
		DataDir:  "data",
		Storage:  StorageJSON,
		LogLevel: "info",
	}
}

// Load resolves the configuration. path may be empty, in which case only
// defaults and the environment are used. A path that was given but does not
// exist is an error: a typo in --config should not silently fall back.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("FITNESS_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: file %s does not exist", path)
		}
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	// Unmarshal into the defaults so keys missing from the file keep them.
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("FITNESS_HOST"); ok {
		c.Host = v
	}
	if v, ok := os.LookupEnv("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v) // Atoi = ASCII to Integer
		if err != nil {
			return fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v, ok := os.LookupEnv("FITNESS_DATA_DIR"); ok && v != "" {
		c.DataDir = v
	}
	if v, ok := os.LookupEnv("FITNESS_STORAGE"); ok && v != "" {
		c.Storage = strings.ToLower(v)
	}
	if v, ok := os.LookupEnv("FITNESS_DB_PATH"); ok {
		c.DBPath = v
	}
	if v, ok := os.LookupEnv("FITNESS_HASH_PASSWORDS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: invalid FITNESS_HASH_PASSWORDS %q: %w", v, err)
		}
		c.HashPasswords = b
	}
	if v, ok := os.LookupEnv("FITNESS_LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate checks the resolved values.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.DataDir == "" {
		return fmt.Errorf("config: data_dir must not be empty")
	}
	switch c.Storage {
	case StorageJSON, StorageSQLite:
	default:
		return fmt.Errorf("config: unknown storage %q (want %q or %q)", c.Storage, StorageJSON, StorageSQLite)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// Addr returns the listen address, e.g. "127.0.0.1:8080".
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SQLitePath returns the database file used when Storage is "sqlite".
func (c Config) SQLitePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, "fitness.db")
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	// slog.Level implements encoding.TextUnmarshaler and accepts
	// "debug", "INFO", "warn", "error" and offsets like "info+2".
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
