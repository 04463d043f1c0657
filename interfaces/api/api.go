// Package api assembles a complete geo-mcp server from configuration.
//
// A server is built in one call:
//
//	cfg, _ := config.NewLoader().LoadFile("geo-mcp.yaml")
//	srv, err := api.New(ctx, cfg, api.WithVersion("1.0.0"))
//	if err != nil {
//	    return err
//	}
//	defer srv.Close(ctx)
//	return srv.Serve(ctx)
//
// Providers, caches and delivery listers can be injected with options,
// which is how tests run the full pipeline against fakes.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/felixgeelhaar/geo-mcp/application"
	"github.com/felixgeelhaar/geo-mcp/domain/cache"
	"github.com/felixgeelhaar/geo-mcp/domain/config"
	"github.com/felixgeelhaar/geo-mcp/domain/geocode"
	"github.com/felixgeelhaar/geo-mcp/domain/imagery"
	"github.com/felixgeelhaar/geo-mcp/domain/middleware"
	"github.com/felixgeelhaar/geo-mcp/domain/pack"
	"github.com/felixgeelhaar/geo-mcp/domain/tool"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/audit"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/delivery"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/logging"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/mcp"
	inframw "github.com/felixgeelhaar/geo-mcp/infrastructure/middleware"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/observability"
	imageryclient "github.com/felixgeelhaar/geo-mcp/infrastructure/provider/imagery"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/provider/nominatim"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/resilience"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/schema"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/statemachine"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/storage/memory"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/telemetry"
	"github.com/felixgeelhaar/geo-mcp/pack/geocoding"
	imagerypack "github.com/felixgeelhaar/geo-mcp/pack/imagery"
)

// ErrConfigRequired is returned when New is called without configuration.
var ErrConfigRequired = errors.New("configuration is required")

// Option customizes server assembly.
type Option func(*options)

type options struct {
	version     string
	geocoder    geocode.Provider
	imagery     imagery.Provider
	credentials application.CredentialCheck
	cache       cache.Cache
	cacheSet    bool
	listers     []imagery.DeliveryLister
	httpClient  *http.Client
	audit       audit.Logger
}

// WithVersion sets the version reported to clients and telemetry.
func WithVersion(v string) Option {
	return func(o *options) {
		o.version = v
	}
}

// WithGeocoder replaces the Nominatim client.
func WithGeocoder(p geocode.Provider) Option {
	return func(o *options) {
		o.geocoder = p
	}
}

// WithImageryProvider replaces the imagery REST client and enables the
// imagery tools regardless of configuration.
func WithImageryProvider(p imagery.Provider) Option {
	return func(o *options) {
		o.imagery = p
	}
}

// WithCredentialCheck replaces the check run for tools requiring credentials.
func WithCredentialCheck(check application.CredentialCheck) Option {
	return func(o *options) {
		o.credentials = check
	}
}

// WithCache replaces the configured cache backend. A nil cache disables caching.
func WithCache(c cache.Cache) Option {
	return func(o *options) {
		o.cache = c
		o.cacheSet = true
	}
}

// WithDeliveryListers adds delivery listers alongside the configured ones.
func WithDeliveryListers(listers ...imagery.DeliveryLister) Option {
	return func(o *options) {
		o.listers = append(o.listers, listers...)
	}
}

// WithHTTPClient sets the HTTP client used by the provider clients.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithAuditLogger records state-changing calls to logger instead of the
// configured audit log.
func WithAuditLogger(logger audit.Logger) Option {
	return func(o *options) {
		o.audit = logger
	}
}

// Server is an assembled geo-mcp server.
type Server struct {
	Config     *config.ServerConfig
	Registry   tool.Registry
	Dispatcher *application.Dispatcher
	Tracker    *statemachine.Tracker
	Telemetry  *observability.Provider
	MCP        *mcp.GeoServer
	Packs      []*pack.Pack
	Audit      audit.Logger

	closers []func(context.Context) error
}

// New builds a server from cfg. On error, everything opened so far is closed.
func New(ctx context.Context, cfg *config.ServerConfig, opts ...Option) (srv *Server, err error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	o := &options{version: "dev"}
	for _, opt := range opts {
		opt(o)
	}

	s := &Server{Config: cfg}
	defer func() {
		if err != nil {
			_ = s.Close(ctx)
		}
	}()

	s.Telemetry, err = observability.New(observability.FromServerConfig(cfg.Observability, o.version)...)
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}
	s.closers = append(s.closers, s.Telemetry.Shutdown)

	metricsCfg := telemetry.DefaultMetricsConfig()
	metricsCfg.MeterVersion = o.version
	metricsCfg.MeterProvider = s.Telemetry.MeterProvider()
	metrics, err := telemetry.NewMetricsProvider(metricsCfg)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	credentials, err := s.buildPacks(ctx, cfg, o)
	if err != nil {
		return nil, err
	}

	registry := memory.NewToolRegistry()
	if err := pack.InstallAll(registry, s.Packs...); err != nil {
		return nil, err
	}
	s.Registry = registry

	validator := schema.NewValidator()
	if err := validator.Precompile(registry.ListTools()...); err != nil {
		return nil, err
	}

	responseCache := o.cache
	if !o.cacheSet {
		responseCache, err = s.openCache(ctx, cfg.Cache)
		if err != nil {
			return nil, err
		}
	}

	chain := middleware.NewRegistry()
	chain.Use(
		inframw.Logging(inframw.LoggingConfig{}),
		inframw.Tracing(inframw.TracingConfig{Tracer: s.Telemetry.Tracer(), SpanNamePrefix: "tool."}),
		inframw.Metrics(metrics),
	)
	auditLogger := o.audit
	if auditLogger == nil {
		auditLogger, err = s.openAudit(cfg.Server.AuditLog)
		if err != nil {
			return nil, err
		}
	}
	if auditLogger != nil {
		s.Audit = auditLogger
		chain.Use(audit.Middleware(auditLogger))
	}
	if cfg.RateLimit.Enabled {
		chain.Use(inframw.RateLimit(inframw.RateLimitConfig{
			Scope:   inframw.ScopePerTool,
			Rate:    cfg.RateLimit.Rate,
			Burst:   cfg.RateLimit.Burst,
			Window:  cfg.RateLimit.Window.Duration(),
			Metrics: metrics,
		}))
	}
	if responseCache != nil {
		chain.Use(inframw.Caching(inframw.CachingConfig{
			Cache:   responseCache,
			TTL:     cfg.Cache.TTL.Duration(),
			Metrics: metrics,
		}))
	}

	if o.credentials != nil {
		credentials = o.credentials
	}
	s.Dispatcher, err = application.NewDispatcherWithOptions(
		application.WithRegistry(registry),
		application.WithValidator(validator),
		application.WithMiddleware(chain),
		application.WithCredentialCheck(credentials),
		application.WithCallTimeout(cfg.Server.CallTimeout.Duration()),
	)
	if err != nil {
		return nil, err
	}

	s.MCP, err = mcp.NewGeoServer(mcp.ServerConfig{
		Name:         cfg.Server.Name,
		Version:      o.version,
		Description:  "Geocoding and satellite imagery ordering tools",
		Instructions: cfg.Server.Instructions,
		Dispatcher:   s.Dispatcher,
	})
	if err != nil {
		return nil, err
	}
	s.MCP.Use(mcp.Recover(), mcp.RequestID())

	logging.Info().
		Add(logging.Component("api")).
		Add(logging.Int("tools", registry.Size())).
		Add(logging.Str("tool_names", fmt.Sprint(registry.Names()))).
		Msg("server assembled")
	return s, nil
}

// buildPacks creates the geocoding pack and, when enabled, the imagery pack.
// It returns the credential check for tools that need an API key.
func (s *Server) buildPacks(ctx context.Context, cfg *config.ServerConfig, o *options) (application.CredentialCheck, error) {
	credentials := func(tool.Definition) bool { return true }
	exec := executorConfig(cfg.Resilience)

	geocoder := o.geocoder
	if geocoder == nil {
		nomExec := exec
		nomExec.Timeout = cfg.Nominatim.Timeout.Duration()
		var clientOpts []nominatim.Option
		if o.httpClient != nil {
			clientOpts = append(clientOpts, nominatim.WithHTTPClient(o.httpClient))
		}
		client, err := nominatim.New(nominatim.Config{
			BaseURL:        cfg.Nominatim.BaseURL,
			UserAgent:      cfg.Nominatim.UserAgent,
			Email:          cfg.Nominatim.Email,
			AcceptLanguage: cfg.Nominatim.AcceptLanguage,
			Timeout:        cfg.Nominatim.Timeout.Duration(),
			Resilience:     nomExec,
		}, clientOpts...)
		if err != nil {
			return nil, err
		}
		geocoder = client
	}
	geoPack, err := geocoding.New(geocoder)
	if err != nil {
		return nil, err
	}
	s.Packs = append(s.Packs, geoPack)

	provider := o.imagery
	if provider == nil && cfg.Imagery.Enabled {
		imgExec := exec
		imgExec.Timeout = cfg.Imagery.Timeout.Duration()
		var clientOpts []imageryclient.Option
		if o.httpClient != nil {
			clientOpts = append(clientOpts, imageryclient.WithHTTPClient(o.httpClient))
		}
		client, err := imageryclient.New(imageryclient.Config{
			BaseURL:      cfg.Imagery.BaseURL,
			APIKey:       cfg.Imagery.APIKey,
			APIKeyHeader: cfg.Imagery.APIKeyHeader,
			Timeout:      cfg.Imagery.Timeout.Duration(),
			Resilience:   imgExec,
		}, clientOpts...)
		if err != nil {
			return nil, err
		}
		provider = client
		credentials = func(def tool.Definition) bool {
			return !def.Annotations().HasTag("imagery") || client.HasCredentials()
		}
	}
	if provider == nil {
		return credentials, nil
	}

	tracker, err := statemachine.NewTracker()
	if err != nil {
		return nil, err
	}
	s.Tracker = tracker

	listers, err := s.openListers(ctx, cfg.Delivery)
	if err != nil {
		return nil, err
	}
	for _, l := range o.listers {
		listers.Add(l)
	}

	imgPack, err := imagerypack.New(imagerypack.Config{
		Provider:   provider,
		Tracker:    tracker,
		Deliveries: listers,
	})
	if err != nil {
		return nil, err
	}
	s.Packs = append(s.Packs, imgPack)
	return credentials, nil
}

// openListers creates a lister for every enabled delivery bucket provider.
func (s *Server) openListers(ctx context.Context, cfg config.DeliveryConfig) (*delivery.Listers, error) {
	listers := delivery.NewListers()

	if cfg.S3.Enabled {
		l, err := delivery.NewS3Lister(ctx, delivery.S3Config{
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			SessionToken:    cfg.S3.SessionToken,
			Endpoint:        cfg.S3.Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 delivery: %w", err)
		}
		listers.Add(l)
	}
	if cfg.GCS.Enabled {
		gcsCfg := delivery.GCSConfig{CredentialsFile: cfg.GCS.CredentialsFile}
		if cfg.GCS.CredentialsJSON != "" {
			gcsCfg.CredentialsJSON = []byte(cfg.GCS.CredentialsJSON)
		}
		l, err := delivery.NewGCSLister(ctx, gcsCfg)
		if err != nil {
			return nil, fmt.Errorf("gcs delivery: %w", err)
		}
		s.closers = append(s.closers, func(context.Context) error { return l.Close() })
		listers.Add(l)
	}
	if cfg.Azure.Enabled {
		l, err := delivery.NewAzureLister(delivery.AzureConfig{
			AccountName:      cfg.Azure.AccountName,
			AccountKey:       cfg.Azure.AccountKey,
			ConnectionString: cfg.Azure.ConnectionString,
		})
		if err != nil {
			return nil, fmt.Errorf("azure delivery: %w", err)
		}
		listers.Add(l)
	}
	return listers, nil
}

func executorConfig(cfg config.ResilienceConfig) resilience.ExecutorConfig {
	exec := resilience.DefaultExecutorConfig()
	if cfg.MaxConcurrent > 0 {
		exec.MaxConcurrent = cfg.MaxConcurrent
	}
	if cfg.CircuitBreakerThreshold > 0 {
		exec.CircuitBreakerThreshold = cfg.CircuitBreakerThreshold
	}
	if cfg.RetryAttempts > 0 {
		exec.RetryMaxAttempts = cfg.RetryAttempts
	}
	if d := cfg.RetryDelay.Duration(); d > 0 {
		exec.RetryInitialDelay = d
	}
	return exec
}

// Serve runs the configured transport until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	logging.Info().
		Add(logging.Component("api")).
		Add(logging.Str("transport", s.Config.Server.Transport)).
		Add(logging.Str("addr", s.Config.Server.Addr)).
		Msg("serving")
	return s.MCP.Serve(ctx, s.Config.Server.Transport, s.Config.Server.Addr)
}

// Call dispatches a single tool call.
func (s *Server) Call(ctx context.Context, req application.CallRequest) application.Reply {
	return s.Dispatcher.Handle(ctx, req)
}

// ApplyConfig applies the settings that can change without a restart.
// Currently that is the log level.
func (s *Server) ApplyConfig(cfg *config.ServerConfig) {
	if cfg.Logging.Level != s.Config.Logging.Level {
		logging.SetLevel(cfg.Logging.Level)
		logging.Info().
			Add(logging.Component("api")).
			Add(logging.Str("level", cfg.Logging.Level)).
			Msg("log level changed")
	}
	s.Config.Logging = cfg.Logging
}

// Close releases caches, listers and telemetry in reverse order of creation.
func (s *Server) Close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
