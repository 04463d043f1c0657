package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	domainconfig "github.com/felixgeelhaar/geo-mcp/domain/config"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestExpand(t *testing.T) {
	t.Parallel()

	env := envMap(map[string]string{"HOST": "nominatim.local", "EMPTY": ""})

	tests := []struct {
		name    string
		input   string
		strict  bool
		want    string
		wantErr bool
	}{
		{name: "plain", input: "https://${HOST}/", want: "https://nominatim.local/"},
		{name: "default used", input: "${PORT:-8080}", want: "8080"},
		{name: "default for empty", input: "${EMPTY:-x}", want: "x"},
		{name: "default ignored", input: "${HOST:-other}", want: "nominatim.local"},
		{name: "unset is empty", input: "[${NOPE}]", want: "[]"},
		{name: "unset strict fails", input: "${NOPE}", strict: true, wantErr: true},
		{name: "required missing", input: "${KEY:?imagery key needed}", wantErr: true},
		{name: "required present", input: "${HOST:?needed}", want: "nominatim.local"},
		{name: "dollar left alone", input: "cost $5", want: "cost $5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := &envExpander{strict: tt.strict, lookup: env}
			got, err := e.Expand(tt.input)
			if tt.wantErr {
				if !errors.Is(err, domainconfig.ErrMissingEnvVar) {
					t.Errorf("Expand() error = %v, want ErrMissingEnvVar", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expand() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Expand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoader_LoadYAML(t *testing.T) {
	t.Parallel()

	loader := NewLoader(WithEnvLookup(envMap(map[string]string{
		"IMAGERY_KEY":              "secret",
		"GEO_MCP_LOG_LEVEL":        "debug",
		"GEO_MCP_RATE_LIMIT_BURST": "3",
	})))

	cfg, err := loader.LoadString(`
server:
  transport: http
  addr: ":9090"
nominatim:
  base_url: https://nominatim.example.org
  user_agent: test-agent
  timeout: 5s
imagery:
  enabled: true
  base_url: https://imagery.example.org/v1
  api_key: ${IMAGERY_KEY}
cache:
  backend: badger
  badger:
    in_memory: true
`, FormatYAML)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}

	if cfg.Server.Transport != "http" || cfg.Server.Addr != ":9090" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Nominatim.Timeout.Duration() != 5*time.Second {
		t.Errorf("nominatim timeout = %v", cfg.Nominatim.Timeout.Duration())
	}
	if cfg.Imagery.APIKey != "secret" {
		t.Errorf("imagery api key = %q, want expanded value", cfg.Imagery.APIKey)
	}
	if cfg.Imagery.APIKeyHeader != "X-API-Key" {
		t.Errorf("defaults should survive partial files, got header %q", cfg.Imagery.APIKeyHeader)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want env override", cfg.Logging.Level)
	}
	if cfg.RateLimit.Burst != 3 {
		t.Errorf("burst = %d, want env override 3", cfg.RateLimit.Burst)
	}
	if !cfg.Cache.Badger.InMemory {
		t.Error("badger in_memory should be set")
	}
}

func TestLoader_Errors(t *testing.T) {
	t.Parallel()

	loader := NewLoader(WithEnvLookup(envMap(nil)))

	tests := []struct {
		name    string
		content string
		format  Format
		wantErr error
	}{
		{"malformed yaml", "server: [", FormatYAML, domainconfig.ErrInvalidFormat},
		{"malformed json", "{", FormatJSON, domainconfig.ErrInvalidFormat},
		{"invalid values", "server:\n  transport: carrier-pigeon\n", FormatYAML, domainconfig.ErrValidationFailed},
		{"unknown format", "", Format("toml"), domainconfig.ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := loader.LoadString(tt.content, tt.format); !errors.Is(err, tt.wantErr) {
				t.Errorf("LoadString() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoader_BadOverride(t *testing.T) {
	t.Parallel()

	loader := NewLoader(WithEnvLookup(envMap(map[string]string{"GEO_MCP_RATE_LIMIT_RATE": "lots"})))
	if _, err := loader.LoadFile(""); !errors.Is(err, domainconfig.ErrInvalidFormat) {
		t.Errorf("LoadFile() error = %v, want ErrInvalidFormat", err)
	}
}

func TestLoader_LoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	loader := NewLoader(WithEnvLookup(envMap(nil)))

	jsonPath := filepath.Join(dir, "geo.json")
	if err := os.WriteFile(jsonPath, []byte(`{"logging":{"level":"warn"}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := loader.LoadFile(jsonPath)
	if err != nil {
		t.Fatalf("LoadFile(json) error = %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("level = %q, want warn", cfg.Logging.Level)
	}

	if _, err := loader.LoadFile(filepath.Join(dir, "missing.yaml")); !errors.Is(err, domainconfig.ErrConfigNotFound) {
		t.Errorf("LoadFile(missing) error = %v, want ErrConfigNotFound", err)
	}

	txt := filepath.Join(dir, "geo.txt")
	_ = os.WriteFile(txt, []byte("x"), 0o600)
	if _, err := loader.LoadFile(txt); !errors.Is(err, domainconfig.ErrUnsupportedFormat) {
		t.Errorf("LoadFile(txt) error = %v, want ErrUnsupportedFormat", err)
	}

	if _, err := loader.LoadFile(dir); !errors.Is(err, domainconfig.ErrInvalidFormat) {
		t.Errorf("LoadFile(dir) error = %v, want ErrInvalidFormat", err)
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "geo.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: info\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	changes := make(chan *domainconfig.ServerConfig, 16)
	w := NewWatcher(path, NewLoader(WithEnvLookup(envMap(nil))), func(c *domainconfig.ServerConfig) {
		select {
		case changes <- c:
		default:
		}
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	// A truncating write can surface an intermediate empty file first.
	timeout := time.After(5 * time.Second)
	for reloaded := false; !reloaded; {
		select {
		case cfg := <-changes:
			reloaded = cfg.Logging.Level == "debug"
		case <-timeout:
			t.Fatal("no reload with level debug observed")
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}
