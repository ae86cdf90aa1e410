// Package config loads the scenekit session configuration from yaml with
// SCENEKIT_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/scenekit/internal/core/observability/log"
	"github.com/zeusync/scenekit/internal/core/storage"
	"github.com/zeusync/scenekit/internal/core/storage/s3"
)

// Environment variables read by ApplyEnv.
const (
	EnvLogLevel      = "SCENEKIT_LOG_LEVEL"
	EnvStorageDriver = "SCENEKIT_STORAGE_DRIVER"
	EnvStorageRoot   = "SCENEKIT_STORAGE_ROOT"
	EnvSQLitePath    = "SCENEKIT_SQLITE_PATH"
	EnvS3Bucket      = "SCENEKIT_S3_BUCKET"
	EnvS3Region      = "SCENEKIT_S3_REGION"
	EnvS3Endpoint    = "SCENEKIT_S3_ENDPOINT"
)

type Config struct {
	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
	Console ConsoleConfig `yaml:"console"`
	Scenes  ScenesConfig  `yaml:"scenes"`
}

type LogConfig struct {
	Level    string   `yaml:"level"`
	Encoding string   `yaml:"encoding"`
	Outputs  []string `yaml:"outputs"`
}

type StorageConfig struct {
	Driver storage.Driver `yaml:"driver"`
	// Root is the directory of the fs driver.
	Root   string       `yaml:"root"`
	SQLite SQLiteConfig `yaml:"sqlite"`
	S3     s3.Config    `yaml:"s3"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type ConsoleConfig struct {
	Prompt string `yaml:"prompt"`
	// AbortWord cancels any prompt when typed on its own.
	AbortWord string `yaml:"abort_word"`
	// Rescue enables the rescue console after a panic.
	Rescue bool `yaml:"rescue"`
}

type ScenesConfig struct {
	// Autoload lists storage keys loaded at startup, in order.
	Autoload []string `yaml:"autoload"`
}

func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
			Outputs:  []string{"stderr"},
		},
		Storage: StorageConfig{
			Driver: storage.DriverFilesystem,
			Root:   "scenes",
			SQLite: SQLiteConfig{Path: "scenes.db"},
			S3:     s3.Config{Region: "us-east-1"},
		},
		Console: ConsoleConfig{
			Prompt:    "> ",
			AbortWord: "abort",
			Rescue:    true,
		},
	}
}

// Load reads the file at path over the defaults, applies the environment and
// validates the result. An empty path uses the defaults alone.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: open %q: %w", path, err)
		}
		defer func() { _ = f.Close() }()

		if err = decode(f, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	ApplyEnv(cfg, os.LookupEnv)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader decodes yaml from r over the defaults and validates it.
// Unknown keys are errors.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decode(r, cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

// ApplyEnv overrides cfg with the SCENEKIT_* variables found by lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	set(EnvLogLevel, &cfg.Log.Level)
	if v, ok := lookup(EnvStorageDriver); ok && v != "" {
		cfg.Storage.Driver = storage.Driver(strings.ToLower(v))
	}
	set(EnvStorageRoot, &cfg.Storage.Root)
	set(EnvSQLitePath, &cfg.Storage.SQLite.Path)
	set(EnvS3Bucket, &cfg.Storage.S3.Bucket)
	set(EnvS3Region, &cfg.Storage.S3.Region)
	set(EnvS3Endpoint, &cfg.Storage.S3.Endpoint)
}

// Validate returns every problem found, joined.
func Validate(cfg *Config) error {
	var errs []error

	if _, err := log.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch cfg.Log.Encoding {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.encoding %q is invalid; valid values: json, console", cfg.Log.Encoding))
	}

	switch cfg.Storage.Driver {
	case storage.DriverFilesystem:
		if cfg.Storage.Root == "" {
			errs = append(errs, errors.New("storage.root is required for the fs driver"))
		}
	case storage.DriverMemory:
	case storage.DriverSQLite:
		if cfg.Storage.SQLite.Path == "" {
			errs = append(errs, errors.New("storage.sqlite.path is required for the sqlite driver"))
		}
	case storage.DriverS3:
		if cfg.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("storage.s3.bucket is required for the s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is invalid; valid values: fs, memory, sqlite, s3", cfg.Storage.Driver))
	}

	if word := cfg.Console.AbortWord; word == "" || strings.ContainsAny(word, " \t") {
		errs = append(errs, fmt.Errorf("console.abort_word %q must be a single word", word))
	}

	for i, key := range cfg.Scenes.Autoload {
		if _, err := storage.CleanKey(key); err != nil {
			errs = append(errs, fmt.Errorf("scenes.autoload[%d]: %w", i, err))
		}
	}

	return errors.Join(errs...)
}

// Logger returns the log settings of cfg in the form log.New takes.
func (c *Config) Logger() (log.Config, error) {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.Config{}, err
	}
	return log.Config{Level: level, Encoding: c.Log.Encoding, OutputPaths: c.Log.Outputs}, nil
}
