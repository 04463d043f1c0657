package config

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/felixgeelhaar/geo-mcp/domain/config"
)

// EnvPrefix prefixes every override variable.
const EnvPrefix = "GEO_MCP_"

// override binds one environment variable to a configuration field.
type override struct {
	name  string
	apply func(cfg *config.ServerConfig, value string) error
}

func str(set func(*config.ServerConfig, string)) func(*config.ServerConfig, string) error {
	return func(c *config.ServerConfig, v string) error {
		set(c, v)
		return nil
	}
}

func boolean(set func(*config.ServerConfig, bool)) func(*config.ServerConfig, string) error {
	return func(c *config.ServerConfig, v string) error {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return err
		}
		set(c, b)
		return nil
	}
}

func integer(set func(*config.ServerConfig, int)) func(*config.ServerConfig, string) error {
	return func(c *config.ServerConfig, v string) error {
		n, err := cast.ToIntE(v)
		if err != nil {
			return err
		}
		set(c, n)
		return nil
	}
}

func duration(set func(*config.ServerConfig, config.Duration)) func(*config.ServerConfig, string) error {
	return func(c *config.ServerConfig, v string) error {
		var d config.Duration
		if err := d.UnmarshalJSON([]byte(v)); err != nil {
			return err
		}
		set(c, d)
		return nil
	}
}

var overrides = []override{
	{"TRANSPORT", str(func(c *config.ServerConfig, v string) { c.Server.Transport = v })},
	{"ADDR", str(func(c *config.ServerConfig, v string) { c.Server.Addr = v })},
	{"AUDIT_LOG", str(func(c *config.ServerConfig, v string) { c.Server.AuditLog = v })},
	{"LOG_LEVEL", str(func(c *config.ServerConfig, v string) { c.Logging.Level = v })},
	{"LOG_FORMAT", str(func(c *config.ServerConfig, v string) { c.Logging.Format = v })},
	{"NOMINATIM_URL", str(func(c *config.ServerConfig, v string) { c.Nominatim.BaseURL = v })},
	{"NOMINATIM_USER_AGENT", str(func(c *config.ServerConfig, v string) { c.Nominatim.UserAgent = v })},
	{"NOMINATIM_EMAIL", str(func(c *config.ServerConfig, v string) { c.Nominatim.Email = v })},
	{"NOMINATIM_TIMEOUT", duration(func(c *config.ServerConfig, d config.Duration) { c.Nominatim.Timeout = d })},
	{"IMAGERY_ENABLED", boolean(func(c *config.ServerConfig, b bool) { c.Imagery.Enabled = b })},
	{"IMAGERY_URL", str(func(c *config.ServerConfig, v string) { c.Imagery.BaseURL = v })},
	{"IMAGERY_API_KEY", str(func(c *config.ServerConfig, v string) { c.Imagery.APIKey = v })},
	{"CACHE_BACKEND", str(func(c *config.ServerConfig, v string) { c.Cache.Backend = v })},
	{"CACHE_TTL", duration(func(c *config.ServerConfig, d config.Duration) { c.Cache.TTL = d })},
	{"REDIS_ADDR", str(func(c *config.ServerConfig, v string) { c.Cache.Redis.Address = v })},
	{"REDIS_PASSWORD", str(func(c *config.ServerConfig, v string) { c.Cache.Redis.Password = v })},
	{"RATE_LIMIT_ENABLED", boolean(func(c *config.ServerConfig, b bool) { c.RateLimit.Enabled = b })},
	{"RATE_LIMIT_RATE", integer(func(c *config.ServerConfig, n int) { c.RateLimit.Rate = n })},
	{"RATE_LIMIT_BURST", integer(func(c *config.ServerConfig, n int) { c.RateLimit.Burst = n })},
	{"TRACING_ENABLED", boolean(func(c *config.ServerConfig, b bool) { c.Observability.TracingEnabled = b })},
	{"METRICS_ENABLED", boolean(func(c *config.ServerConfig, b bool) { c.Observability.MetricsEnabled = b })},
	{"OTLP_ENDPOINT", str(func(c *config.ServerConfig, v string) {
		c.Observability.Exporter = "otlp"
		c.Observability.Endpoint = v
	})},
}

// applyEnvOverrides applies GEO_MCP_* variables to cfg.
func applyEnvOverrides(cfg *config.ServerConfig, lookup func(string) (string, bool)) error {
	for _, o := range overrides {
		value, ok := lookup(EnvPrefix + o.name)
		if !ok || value == "" {
			continue
		}
		if err := o.apply(cfg, value); err != nil {
			return fmt.Errorf("%w: %s%s: %v", config.ErrInvalidFormat, EnvPrefix, o.name, err)
		}
	}
	return nil
}
