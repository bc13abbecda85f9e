// Package config loads forum service configuration.
//
// Values are layered: defaults, then an optional YAML file, then FORUM_*
// variables from a .env file, then the process environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backend names accepted by Config.Backend. The default is pebble so state
// survives between CLI runs; memory only lives as long as one process, such
// as a serve run.
const (
	BackendMemory   = "memory"
	BackendPebble   = "pebble"
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
)

// ErrInvalid is returned for configuration values outside their allowed set.
var ErrInvalid = errors.New("config: invalid value")

// Config holds service configuration.
type Config struct {
	// Backend selects the kv store: memory, pebble, sqlite or dynamodb.
	Backend string `yaml:"backend" env:"FORUM_BACKEND"`

	// DataPath is the pebble directory or sqlite file. Defaults per backend.
	DataPath string `yaml:"data_path" env:"FORUM_DATA_PATH"`

	HTTPAddr string `yaml:"http_addr" env:"FORUM_HTTP_ADDR"`

	Dynamo DynamoConfig `yaml:"dynamo"`
	Log    LogConfig    `yaml:"log"`
}

// DynamoConfig configures the dynamodb backend.
type DynamoConfig struct {
	Table string `yaml:"table" env:"FORUM_DYNAMO_TABLE"`

	// Endpoint overrides the service endpoint, e.g. for DynamoDB Local.
	Endpoint string `yaml:"endpoint" env:"FORUM_DYNAMO_ENDPOINT"`

	// Profile selects a shared AWS config profile.
	Profile string `yaml:"profile" env:"FORUM_AWS_PROFILE"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" env:"FORUM_LOG_LEVEL"`
	Format string `yaml:"format" env:"FORUM_LOG_FORMAT"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:  BackendPebble,
		HTTPAddr: ":8080",
		Dynamo: DynamoConfig{
			Table: "forum_ledger",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// validate normalizes the config, applying defaults for empty values.
func (c *Config) validate() error {
	d := DefaultConfig()

	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = d.Backend
	}
	switch c.Backend {
	case BackendMemory, BackendDynamoDB:
	case BackendPebble:
		if c.DataPath == "" {
			c.DataPath = "forum.pebble"
		}
	case BackendSQLite:
		if c.DataPath == "" {
			c.DataPath = "forum.sqlite"
		}
	default:
		return fmt.Errorf("%w: backend %q", ErrInvalid, c.Backend)
	}

	if c.HTTPAddr == "" {
		c.HTTPAddr = d.HTTPAddr
	}
	if c.Dynamo.Table == "" {
		c.Dynamo.Table = d.Dynamo.Table
	}

	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}

	c.Log.Format = strings.ToLower(c.Log.Format)
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("%w: log format %q", ErrInvalid, c.Log.Format)
	}
	return nil
}

// Override adjusts a loaded Config before it is validated, e.g. from flags.
type Override func(*Config)

// Load reads the YAML file at path if path is non-empty, then .env from the
// working directory if present, then the process environment. Overrides are
// applied last.
func Load(path string, overrides ...Override) (Config, error) {
	return load(path, ".env", os.Environ(), overrides...)
}

func load(path, dotenv string, environ []string, overrides ...Override) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := readYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	vars := map[string]string{}
	if dotenv != "" {
		fileVars, err := godotenv.Read(dotenv)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read %s: %w", dotenv, err)
		}
		for k, v := range fileVars {
			vars[k] = v
		}
	}
	// The real environment wins over .env.
	for k, v := range env.ToMap(environ) {
		vars[k] = v
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	for _, o := range overrides {
		o(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readYAML(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}
