package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the dotted path to the invalid field.
	Path    string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validate checks the configuration for inconsistencies.
func (c *ServerConfig) Validate() ValidationErrors {
	var errs ValidationErrors
	add := func(path, format string, args ...any) {
		errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	switch c.Server.Transport {
	case "stdio":
	case "http":
		if c.Server.Addr == "" {
			add("server.addr", "addr is required for the http transport")
		}
	default:
		add("server.transport", "unsupported transport %q (want stdio or http)", c.Server.Transport)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "console":
	default:
		add("logging.format", "unsupported format %q", c.Logging.Format)
	}

	if !validURL(c.Nominatim.BaseURL) {
		add("nominatim.base_url", "must be an absolute http(s) URL")
	}
	if strings.TrimSpace(c.Nominatim.UserAgent) == "" {
		add("nominatim.user_agent", "a User-Agent identifying the application is required")
	}

	if c.Imagery.Enabled {
		if !validURL(c.Imagery.BaseURL) {
			add("imagery.base_url", "must be an absolute http(s) URL")
		}
	}

	if c.Delivery.Azure.Enabled && c.Delivery.Azure.ConnectionString == "" && c.Delivery.Azure.AccountName == "" {
		add("delivery.azure", "account_name or connection_string is required")
	}

	switch c.Cache.Backend {
	case "", "none", "memory", "badger":
	case "redis":
		if c.Cache.Redis.Address == "" {
			add("cache.redis.address", "address is required for the redis backend")
		}
	default:
		add("cache.backend", "unsupported backend %q", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		add("cache.ttl", "must be non-negative")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Rate <= 0 {
			add("rate_limit.rate", "must be positive")
		}
		if c.RateLimit.Burst < 0 {
			add("rate_limit.burst", "must be non-negative")
		}
	}

	switch c.Observability.Exporter {
	case "", "stdout", "otlp", "none":
	default:
		add("observability.exporter", "unsupported exporter %q", c.Observability.Exporter)
	}
	if c.Observability.SampleRate < 0 || c.Observability.SampleRate > 1 {
		add("observability.sample_rate", "must be between 0 and 1")
	}

	return errs
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
