// Package config provides the domain model for server configuration.
package config

import (
	"time"

	"github.com/spf13/cast"
)

// ServerConfig is the complete server configuration.
type ServerConfig struct {
	Server        ServerSettings      `json:"server" yaml:"server"`
	Logging       LoggingConfig       `json:"logging" yaml:"logging"`
	Nominatim     NominatimConfig     `json:"nominatim" yaml:"nominatim"`
	Imagery       ImageryConfig       `json:"imagery" yaml:"imagery"`
	Delivery      DeliveryConfig      `json:"delivery" yaml:"delivery"`
	Cache         CacheConfig         `json:"cache" yaml:"cache"`
	RateLimit     RateLimitConfig     `json:"rate_limit" yaml:"rate_limit"`
	Resilience    ResilienceConfig    `json:"resilience" yaml:"resilience"`
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`
}

// ServerSettings configures the MCP endpoint.
type ServerSettings struct {
	// Name is reported to clients during initialization.
	Name string `json:"name" yaml:"name"`
	// Transport is stdio or http.
	Transport string `json:"transport" yaml:"transport"`
	// Addr is the listen address for the http transport.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
	// Instructions are sent to the client on initialize.
	Instructions string `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	// CallTimeout bounds a single tool call.
	CallTimeout Duration `json:"call_timeout,omitempty" yaml:"call_timeout,omitempty"`

	// AuditLog is where calls to state-changing tools are recorded as JSON
	// lines. Empty disables the trail; "-" writes to stderr.
	AuditLog string `json:"audit_log,omitempty" yaml:"audit_log,omitempty"`
}

// LoggingConfig configures bolt.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// NominatimConfig configures the geocoding provider.
type NominatimConfig struct {
	BaseURL        string   `json:"base_url" yaml:"base_url"`
	UserAgent      string   `json:"user_agent" yaml:"user_agent"`
	Email          string   `json:"email,omitempty" yaml:"email,omitempty"`
	AcceptLanguage string   `json:"accept_language,omitempty" yaml:"accept_language,omitempty"`
	Timeout        Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ImageryConfig configures the imagery ordering provider.
type ImageryConfig struct {
	Enabled      bool     `json:"enabled" yaml:"enabled"`
	BaseURL      string   `json:"base_url" yaml:"base_url"`
	APIKey       string   `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APIKeyHeader string   `json:"api_key_header,omitempty" yaml:"api_key_header,omitempty"`
	Timeout      Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DeliveryConfig configures the buckets imagery is delivered to.
type DeliveryConfig struct {
	S3    S3Config    `json:"s3,omitempty" yaml:"s3,omitempty"`
	GCS   GCSConfig   `json:"gcs,omitempty" yaml:"gcs,omitempty"`
	Azure AzureConfig `json:"azure,omitempty" yaml:"azure,omitempty"`
}

// S3Config configures S3 delivery listing.
type S3Config struct {
	Enabled         bool   `json:"enabled" yaml:"enabled"`
	Region          string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint        string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	AccessKeyID     string `json:"access_key_id,omitempty" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty" yaml:"secret_access_key,omitempty"`
	SessionToken    string `json:"session_token,omitempty" yaml:"session_token,omitempty"`
}

// GCSConfig configures Google Cloud Storage delivery listing.
type GCSConfig struct {
	Enabled         bool   `json:"enabled" yaml:"enabled"`
	CredentialsFile string `json:"credentials_file,omitempty" yaml:"credentials_file,omitempty"`
	CredentialsJSON string `json:"credentials_json,omitempty" yaml:"credentials_json,omitempty"`
}

// AzureConfig configures Azure Blob delivery listing.
type AzureConfig struct {
	Enabled          bool   `json:"enabled" yaml:"enabled"`
	AccountName      string `json:"account_name,omitempty" yaml:"account_name,omitempty"`
	AccountKey       string `json:"account_key,omitempty" yaml:"account_key,omitempty"`
	ConnectionString string `json:"connection_string,omitempty" yaml:"connection_string,omitempty"`
}

// CacheConfig configures response caching for lookup tools.
type CacheConfig struct {
	// Backend is none, memory, redis or badger.
	Backend    string       `json:"backend" yaml:"backend"`
	TTL        Duration     `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	MaxEntries int          `json:"max_entries,omitempty" yaml:"max_entries,omitempty"`
	Redis      RedisConfig  `json:"redis,omitempty" yaml:"redis,omitempty"`
	Badger     BadgerConfig `json:"badger,omitempty" yaml:"badger,omitempty"`
}

// RedisConfig configures the Redis cache backend.
type RedisConfig struct {
	Address   string `json:"address" yaml:"address"`
	Password  string `json:"password,omitempty" yaml:"password,omitempty"`
	DB        int    `json:"db,omitempty" yaml:"db,omitempty"`
	KeyPrefix string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
}

// BadgerConfig configures the Badger cache backend.
type BadgerConfig struct {
	Dir      string `json:"dir,omitempty" yaml:"dir,omitempty"`
	InMemory bool   `json:"in_memory,omitempty" yaml:"in_memory,omitempty"`
}

// RateLimitConfig configures the per-tool token bucket.
type RateLimitConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Rate is the number of calls allowed per Window.
	Rate   int      `json:"rate" yaml:"rate"`
	Burst  int      `json:"burst" yaml:"burst"`
	Window Duration `json:"window,omitempty" yaml:"window,omitempty"`
}

// ResilienceConfig configures outbound provider protection.
type ResilienceConfig struct {
	MaxConcurrent           int      `json:"max_concurrent,omitempty" yaml:"max_concurrent,omitempty"`
	CircuitBreakerThreshold int      `json:"circuit_breaker_threshold,omitempty" yaml:"circuit_breaker_threshold,omitempty"`
	RetryAttempts           int      `json:"retry_attempts,omitempty" yaml:"retry_attempts,omitempty"`
	RetryDelay              Duration `json:"retry_delay,omitempty" yaml:"retry_delay,omitempty"`
}

// ObservabilityConfig configures tracing and metrics.
type ObservabilityConfig struct {
	TracingEnabled bool    `json:"tracing_enabled" yaml:"tracing_enabled"`
	MetricsEnabled bool    `json:"metrics_enabled" yaml:"metrics_enabled"`
	Exporter       string  `json:"exporter,omitempty" yaml:"exporter,omitempty"`
	Endpoint       string  `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	SampleRate     float64 `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
	Environment    string  `json:"environment,omitempty" yaml:"environment,omitempty"`
}

// Duration is a time.Duration that accepts "30s" strings or plain seconds.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return d.parse(s)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.parse(s)
}

// parse accepts Go duration syntax, or a bare number meaning seconds.
func (d *Duration) parse(s string) error {
	if secs, err := cast.ToFloat64E(s); err == nil {
		*d = Duration(time.Duration(secs * float64(time.Second)))
		return nil
	}
	dur, err := cast.ToDurationE(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
