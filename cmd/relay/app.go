package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vyrodovalexey/avarelay/internal/backend"
	"github.com/vyrodovalexey/avarelay/internal/config"
	"github.com/vyrodovalexey/avarelay/internal/downstream"
	"github.com/vyrodovalexey/avarelay/internal/edge"
	"github.com/vyrodovalexey/avarelay/internal/edge/graphql"
	"github.com/vyrodovalexey/avarelay/internal/edge/rest"
	"github.com/vyrodovalexey/avarelay/internal/edge/soap"
	"github.com/vyrodovalexey/avarelay/internal/health"
	"github.com/vyrodovalexey/avarelay/internal/observability"
	"github.com/vyrodovalexey/avarelay/internal/relay"
	"github.com/vyrodovalexey/avarelay/internal/server"
	"github.com/vyrodovalexey/avarelay/internal/server/middleware"
	tlspkg "github.com/vyrodovalexey/avarelay/internal/tls"
)

// certificateWarnWindow degrades readiness this long before a certificate expires.
const certificateWarnWindow = 14 * 24 * time.Hour

// application holds all application components.
type application struct {
	config        *config.Config
	server        *server.Server
	metrics       *observability.Metrics
	tracer        *observability.Tracer
	healthChecker *health.Checker
	metricsServer *http.Server
	tlsClient     *tlspkg.Client
	// watched lists the TLS material reloaded on file changes.
	watched []*tlspkg.Material
}

// newApplication initializes all application components for the configured role.
func newApplication(cfg *config.Config, logger observability.Logger) (*application, error) {
	if cfg.HasSecretRefs() {
		if err := resolveSecrets(cfg, logger); err != nil {
			return nil, err
		}
	}

	metrics := observability.NewMetrics(cfg.Observability.Metrics.Namespace)
	metrics.SetBuildInfo(version, string(cfg.Service.Role))

	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:    cfg.Observability.Tracing.ServiceName,
		ServiceVersion: cfg.Service.Version,
		OTLPEndpoint:   cfg.Observability.Tracing.OTLPEndpoint,
		SamplingRate:   cfg.Observability.Tracing.SamplingRate,
		Enabled:        cfg.Observability.Tracing.Enabled,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	app := &application{
		config:        cfg,
		metrics:       metrics,
		tracer:        tracer,
		healthChecker: health.NewChecker(cfg.Service.Version, string(cfg.Service.Role)),
	}

	srvCfg := serverConfig(cfg.Server)
	if t := cfg.Server.TLS; t != nil && t.Enabled {
		tlsConfig, material, err := tlspkg.BuildServerTLS(serverTLSConfig(cfg.Service.Name, t),
			tlspkg.WithLogger(logger), tlspkg.WithMetrics(metrics))
		if err != nil {
			return nil, fmt.Errorf("failed to load server TLS material: %w", err)
		}
		srvCfg.TLS = tlsConfig
		app.healthChecker.RegisterCheck("server-certificate",
			health.CertificateExpiryCheck(certificateExpiry(material), certificateWarnWindow))
		if t.Watch {
			app.watched = append(app.watched, material)
		}
	}

	app.server = server.New(srvCfg, logger.Zap())
	app.server.Use(
		middleware.Recovery(logger.Zap()),
		middleware.RequestID(),
		middleware.Tracing(cfg.Service.Name),
		middleware.Metrics(metrics),
		middleware.LoggingWithConfig(middleware.LoggingConfig{
			Logger:          logger.Zap(),
			SkipHealthCheck: true,
		}),
	)

	if err := app.registerRoutes(logger); err != nil {
		return nil, err
	}
	return app, nil
}

// registerRoutes mounts the handlers of the configured role.
func (app *application) registerRoutes(logger observability.Logger) error {
	cfg := app.config
	engine := app.server.Engine()

	switch cfg.Service.Role {
	case config.RoleBackend:
		processor := backend.NewProcessor(cfg.Service.Version, backend.WithProcessorLogger(logger))
		backend.NewHandler(processor).RegisterRoutes(engine)

	case config.RoleMiddleware:
		backendClient := relay.NewBackendClient(cfg.Backend.URL, app.metrics,
			downstream.WithLogger(logger),
			downstream.WithCircuitBreaker(breakerConfig(cfg.CircuitBreaker)),
			downstream.WithHTTPClient(&http.Client{
				Timeout:   cfg.Backend.Timeout.Duration(),
				Transport: observability.InstrumentTransport(http.DefaultTransport, "backend"),
			}),
		)
		tlsEnabled := cfg.Server.TLS != nil && cfg.Server.TLS.Enabled
		relay.NewHandler(relay.New(backendClient, logger), tlsEnabled).RegisterRoutes(engine)
		logger.Info("middleware relay configured",
			observability.String("backend", backendClient.Endpoint()),
		)

	case config.RoleEdge:
		tlsClient, err := tlspkg.BuildClient(clientTLSConfig(cfg.Middleware),
			tlspkg.WithLogger(logger), tlspkg.WithMetrics(app.metrics))
		if err != nil {
			return fmt.Errorf("failed to build mTLS client: %w", err)
		}
		app.tlsClient = tlsClient
		app.healthChecker.RegisterCheck("client-certificate",
			health.CertificateExpiryCheck(certificateExpiry(tlsClient.Material), certificateWarnWindow))
		if cfg.Middleware.MTLS.Watch {
			app.watched = append(app.watched, tlsClient.Material)
		}

		caller := edge.NewMiddlewareClient(cfg.Middleware.URL, logger, app.metrics,
			downstream.WithHTTPClient(tlsClient.HTTP),
			downstream.WithCircuitBreaker(breakerConfig(cfg.CircuitBreaker)),
		)
		rest.NewHandler(caller, logger).RegisterRoutes(engine)
		graphql.NewHandler(graphql.NewExecutor(caller, logger)).RegisterRoutes(engine)
		soap.NewHandler(caller, logger).RegisterRoutes(engine)
		logger.Info("edge facades configured",
			observability.String("middleware", caller.Endpoint()),
		)

	default:
		return fmt.Errorf("unknown role %q", cfg.Service.Role)
	}
	return nil
}

// watchMaterial starts file watches on rotated TLS stores.
func (app *application) watchMaterial(ctx context.Context, logger observability.Logger) {
	for _, m := range app.watched {
		if err := m.Watch(ctx); err != nil {
			logger.Warn("failed to watch TLS material", observability.Error(err))
		}
	}
}

func serverConfig(c config.ServerConfig) *server.Config {
	cfg := server.DefaultConfig()
	cfg.Address = c.Address
	cfg.Port = c.Port
	cfg.ReadTimeout = c.ReadTimeout.Duration()
	cfg.WriteTimeout = c.WriteTimeout.Duration()
	cfg.IdleTimeout = c.IdleTimeout.Duration()
	return cfg
}

func storeConfig(s config.StoreConfig) tlspkg.StoreConfig {
	return tlspkg.StoreConfig{
		Path:        s.Path,
		Password:    s.Password,
		Type:        s.Type,
		KeyPassword: s.KeyPassword,
	}
}

func serverTLSConfig(name string, t *config.ServerTLSConfig) tlspkg.ServerConfig {
	out := tlspkg.ServerConfig{
		Name:       name,
		KeyStore:   storeConfig(t.KeyStore),
		ClientAuth: t.ClientAuth,
		MinVersion: t.MinVersion,
	}
	if t.TrustStore != nil {
		ts := storeConfig(*t.TrustStore)
		out.TrustStore = &ts
	}
	return out
}

func clientTLSConfig(m config.MiddlewareConfig) tlspkg.ClientConfig {
	return tlspkg.ClientConfig{
		Name:             "middleware",
		TrustStore:       storeConfig(m.MTLS.TrustStore),
		KeyStore:         storeConfig(m.MTLS.KeyStore),
		MinVersion:       m.MTLS.MinVersion,
		ConnectTimeout:   m.ConnectTimeout.Duration(),
		HandshakeTimeout: m.HandshakeTimeout.Duration(),
		ReadTimeout:      m.ReadTimeout.Duration(),
		MaxConnsPerHost:  m.MaxConnsPerHost,
		MaxIdleConns:     m.MaxIdleConns,
		IdleConnTimeout:  m.IdleConnTimeout.Duration(),
	}
}

func breakerConfig(c config.CircuitBreakerConfig) downstream.BreakerConfig {
	return downstream.BreakerConfig{
		Enabled:   c.Enabled,
		Threshold: c.Threshold,
		Timeout:   c.Timeout.Duration(),
	}
}

// certificateExpiry reports the expiry of the current key store certificate.
func certificateExpiry(m *tlspkg.Material) func() (time.Time, bool) {
	return func() (time.Time, bool) {
		cert := m.Certificate()
		if cert == nil || cert.Leaf == nil {
			return time.Time{}, false
		}
		return cert.Leaf.NotAfter, true
	}
}
