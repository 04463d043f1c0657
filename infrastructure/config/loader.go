// Package config loads server configuration from YAML or JSON files, the
// environment, and watches the file for changes.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/geo-mcp/domain/config"
)

// Format represents a configuration file format.
type Format string

const (
	// FormatYAML is the YAML format.
	FormatYAML Format = "yaml"
	// FormatJSON is the JSON format.
	FormatJSON Format = "json"
)

// Loader loads server configuration.
type Loader struct {
	// ExpandEnv enables ${VAR} expansion in the file body.
	ExpandEnv bool
	// StrictEnv fails if a referenced variable is missing.
	StrictEnv bool
	// ApplyEnvOverrides applies GEO_MCP_* variables after parsing.
	ApplyEnvOverrides bool
	// Validate enables configuration validation.
	Validate bool

	lookup func(string) (string, bool)
}

// LoaderOption configures the loader.
type LoaderOption func(*Loader)

// WithStrictEnv enables strict environment variable checking.
func WithStrictEnv(enabled bool) LoaderOption {
	return func(l *Loader) {
		l.StrictEnv = enabled
	}
}

// WithValidation enables or disables configuration validation.
func WithValidation(enabled bool) LoaderOption {
	return func(l *Loader) {
		l.Validate = enabled
	}
}

// WithEnvLookup replaces os.LookupEnv, mainly for tests.
func WithEnvLookup(lookup func(string) (string, bool)) LoaderOption {
	return func(l *Loader) {
		l.lookup = lookup
	}
}

// NewLoader creates a loader with expansion, overrides and validation on.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		ExpandEnv:         true,
		ApplyEnvOverrides: true,
		Validate:          true,
		lookup:            os.LookupEnv,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile loads configuration from a file path, choosing the format by
// extension. An empty path yields the defaults plus environment overrides.
func (l *Loader) LoadFile(path string) (*config.ServerConfig, error) {
	if path == "" {
		return l.finish(config.Default())
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to access config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", config.ErrInvalidFormat, path)
	}

	var format Format
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		format = FormatYAML
	case ".json":
		format = FormatJSON
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	return l.Load(f, format)
}

// Load parses configuration from r on top of the defaults.
func (l *Loader) Load(r io.Reader, format Format) (*config.ServerConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if l.ExpandEnv {
		e := &envExpander{strict: l.StrictEnv, lookup: l.lookup}
		expanded, err := e.Expand(string(data))
		if err != nil {
			return nil, err
		}
		data = []byte(expanded)
	}

	cfg := config.Default()
	switch format {
	case FormatYAML:
		if len(bytes.TrimSpace(data)) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("%w: %v", config.ErrInvalidFormat, err)
			}
		}
	case FormatJSON:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", config.ErrInvalidFormat, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnsupportedFormat, format)
	}

	return l.finish(cfg)
}

// LoadString loads configuration from a string.
func (l *Loader) LoadString(content string, format Format) (*config.ServerConfig, error) {
	return l.Load(strings.NewReader(content), format)
}

func (l *Loader) finish(cfg *config.ServerConfig) (*config.ServerConfig, error) {
	if l.ApplyEnvOverrides {
		if err := applyEnvOverrides(cfg, l.lookup); err != nil {
			return nil, err
		}
	}
	if l.Validate {
		if errs := cfg.Validate(); errs.HasErrors() {
			return nil, fmt.Errorf("%w: %v", config.ErrValidationFailed, errs)
		}
	}
	return cfg, nil
}
