package config

import "time"

// Default returns the configuration used when no file is given.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Name:        "geo-mcp",
			Transport:   "stdio",
			Addr:        ":8080",
			CallTimeout: Duration(60 * time.Second),
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Nominatim: NominatimConfig{
			BaseURL:   "https://nominatim.openstreetmap.org",
			UserAgent: "geo-mcp/1.0",
			Timeout:   Duration(10 * time.Second),
		},
		Imagery: ImageryConfig{
			APIKeyHeader: "X-API-Key",
			Timeout:      Duration(30 * time.Second),
		},
		Cache: CacheConfig{
			Backend:    "memory",
			TTL:        Duration(24 * time.Hour),
			MaxEntries: 1000,
			Redis:      RedisConfig{Address: "localhost:6379", KeyPrefix: "geo-mcp:"},
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Rate:    60,
			Burst:   10,
			Window:  Duration(time.Minute),
		},
		Resilience: ResilienceConfig{
			MaxConcurrent:           10,
			CircuitBreakerThreshold: 5,
			RetryAttempts:           3,
			RetryDelay:              Duration(200 * time.Millisecond),
		},
		Observability: ObservabilityConfig{
			Exporter:    "stdout",
			SampleRate:  1.0,
			Environment: "development",
		},
	}
}
