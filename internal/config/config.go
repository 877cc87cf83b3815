// Package config loads apothecary settings from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the config file searched for from the working directory up to the root.
const FileName = "apothecary.yaml"

// EnvPrefix prefixes every environment override, e.g. APOTHECARY_BACKEND.
const EnvPrefix = "APOTHECARY_"

// Storage backends.
const (
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
	BackendBadger   = "badger"
)

// Config holds the settings shared by every command.
type Config struct {
	// Backend selects the store: dynamodb, memory or badger.
	Backend string `yaml:"backend"`

	// TablePrefix is prepended to every table name, e.g. "dev_".
	TablePrefix string `yaml:"tablePrefix"`

	Region string `yaml:"region"`

	// Endpoint overrides the DynamoDB endpoint, e.g. http://localhost:8000 for DynamoDB Local.
	Endpoint string `yaml:"endpoint,omitempty"`

	// DataDir is where the badger backend keeps its files.
	DataDir string `yaml:"dataDir,omitempty"`

	// PageSize bounds the items evaluated per scan request. Zero means the store default.
	PageSize int `yaml:"pageSize,omitempty"`

	LogLevel string `yaml:"logLevel"`
	LogFile  string `yaml:"logFile,omitempty"`

	// Path is the file the config was read from, if any.
	Path string `yaml:"-"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Backend:  BackendDynamoDB,
		LogLevel: "info",
	}
}

// Load reads the config file at path, or the nearest apothecary.yaml when path is empty, and
// then applies environment overrides. A missing file is not an error unless path was given.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = Find()
	} else if _, err := os.Stat(path); err != nil {
		return cfg, fmt.Errorf("config file %s: %w", path, err)
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err = dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	c.Path = path
	return nil
}

// Find searches for apothecary.yaml walking up from the current directory. It returns "" if
// there is none.
func Find() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return findFrom(dir)
}

func findFrom(dir string) string {
	for {
		path := filepath.Join(dir, FileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ApplyEnv overrides settings from APOTHECARY_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"BACKEND":      &c.Backend,
		"TABLE_PREFIX": &c.TablePrefix,
		"REGION":       &c.Region,
		"ENDPOINT":     &c.Endpoint,
		"DATA_DIR":     &c.DataDir,
		"LOG_LEVEL":    &c.LogLevel,
		"LOG_FILE":     &c.LogFile,
	}
	for name, field := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*field = v
		}
	}
	if v, ok := lookup(EnvPrefix + "PAGE_SIZE"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sPAGE_SIZE: %w", EnvPrefix, err)
		}
		c.PageSize = n
	}
	return nil
}

// Validate checks that the settings can be used together.
func (c Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendDynamoDB, BackendMemory:
	case BackendBadger:
		if c.DataDir == "" {
			errs = append(errs, errors.New("the badger backend needs a data directory"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if c.PageSize < 0 {
		errs = append(errs, fmt.Errorf("page size %d is negative", c.PageSize))
	}
	return errors.Join(errs...)
}
