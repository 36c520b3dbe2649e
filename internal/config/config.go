package config

import (
	"fmt"
	"time"
)

// Role selects which hop of the relay chain a process runs.
type Role string

// Roles.
const (
	RoleBackend    Role = "backend"
	RoleMiddleware Role = "middleware"
	RoleEdge       Role = "edge"
)

// ParseRole parses a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleBackend, RoleMiddleware, RoleEdge:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q (want backend, middleware or edge)", s)
	}
}

// Default ports per role.
const (
	DefaultEdgePort       = 8080
	DefaultBackendPort    = 8081
	DefaultMiddlewarePort = 8443
	DefaultMetricsPort    = 9090
)

// Config is the root configuration of a relay process.
type Config struct {
	Service        ServiceConfig        `yaml:"service" json:"service"`
	Server         ServerConfig         `yaml:"server" json:"server"`
	Backend        BackendConfig        `yaml:"backend,omitempty" json:"backend,omitempty"`
	Middleware     MiddlewareConfig     `yaml:"middleware,omitempty" json:"middleware,omitempty"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker,omitempty" json:"circuitBreaker,omitempty"`
	Observability  ObservabilityConfig  `yaml:"observability,omitempty" json:"observability,omitempty"`
	Vault          VaultConfig          `yaml:"vault,omitempty" json:"vault,omitempty"`
}

// ServiceConfig names the process.
type ServiceConfig struct {
	Role    Role   `yaml:"role" json:"role"`
	Name    string `yaml:"name,omitempty" json:"name,omitempty"`
	Version string `yaml:"version,omitempty" json:"version,omitempty"`
}

// ServerConfig configures the inbound listener.
type ServerConfig struct {
	Address         string           `yaml:"address,omitempty" json:"address,omitempty"`
	Port            int              `yaml:"port" json:"port"`
	ReadTimeout     Duration         `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	WriteTimeout    Duration         `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`
	IdleTimeout     Duration         `yaml:"idleTimeout,omitempty" json:"idleTimeout,omitempty"`
	ShutdownTimeout Duration         `yaml:"shutdownTimeout,omitempty" json:"shutdownTimeout,omitempty"`
	TLS             *ServerTLSConfig `yaml:"tls,omitempty" json:"tls,omitempty"`
}

// ListenAddress returns host:port for the listener.
func (s ServerConfig) ListenAddress() string {
	return fmt.Sprintf("%s:%d", s.Address, s.Port)
}

// ServerTLSConfig enables TLS on the inbound listener.
type ServerTLSConfig struct {
	Enabled    bool         `yaml:"enabled" json:"enabled"`
	KeyStore   StoreConfig  `yaml:"keyStore" json:"keyStore"`
	TrustStore *StoreConfig `yaml:"trustStore,omitempty" json:"trustStore,omitempty"`
	// ClientAuth is none, optional or require.
	ClientAuth string `yaml:"clientAuth,omitempty" json:"clientAuth,omitempty"`
	MinVersion string `yaml:"minVersion,omitempty" json:"minVersion,omitempty"`
	Watch      bool   `yaml:"watch,omitempty" json:"watch,omitempty"`
}

// StoreConfig points at a key or trust store.
type StoreConfig struct {
	Path     string `yaml:"path" json:"path"`
	Password string `yaml:"password,omitempty" json:"-"`
	// Type is pem or pkcs12; detected from the extension when empty.
	Type        string `yaml:"type,omitempty" json:"type,omitempty"`
	KeyPassword string `yaml:"keyPassword,omitempty" json:"-"`
}

// BackendConfig is read by the middleware role.
type BackendConfig struct {
	URL     string   `yaml:"url" json:"url"`
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// MiddlewareConfig is read by the edge role.
type MiddlewareConfig struct {
	URL              string     `yaml:"url" json:"url"`
	MTLS             MTLSConfig `yaml:"mtls" json:"mtls"`
	ConnectTimeout   Duration   `yaml:"connectTimeout,omitempty" json:"connectTimeout,omitempty"`
	HandshakeTimeout Duration   `yaml:"handshakeTimeout,omitempty" json:"handshakeTimeout,omitempty"`
	ReadTimeout      Duration   `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	MaxConnsPerHost  int        `yaml:"maxConnsPerHost,omitempty" json:"maxConnsPerHost,omitempty"`
	MaxIdleConns     int        `yaml:"maxIdleConns,omitempty" json:"maxIdleConns,omitempty"`
	IdleConnTimeout  Duration   `yaml:"idleConnTimeout,omitempty" json:"idleConnTimeout,omitempty"`
}

// MTLSConfig holds the client key and trust stores used toward the middleware.
type MTLSConfig struct {
	TrustStore StoreConfig `yaml:"trustStore" json:"trustStore"`
	KeyStore   StoreConfig `yaml:"keyStore" json:"keyStore"`
	MinVersion string      `yaml:"minVersion,omitempty" json:"minVersion,omitempty"`
	Watch      bool        `yaml:"watch,omitempty" json:"watch,omitempty"`
}

// CircuitBreakerConfig configures the optional breaker on downstream calls.
type CircuitBreakerConfig struct {
	Enabled   bool     `yaml:"enabled" json:"enabled"`
	Threshold int      `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	Timeout   Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// ObservabilityConfig groups logging, metrics and tracing.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty"`
	Tracing TracingConfig `yaml:"tracing,omitempty" json:"tracing,omitempty"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// MetricsConfig configures the side listener for /metrics and probes.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Port      int    `yaml:"port,omitempty" json:"port,omitempty"`
	Path      string `yaml:"path,omitempty" json:"path,omitempty"`
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	ServiceName  string  `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
	OTLPEndpoint string  `yaml:"otlpEndpoint,omitempty" json:"otlpEndpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate,omitempty" json:"samplingRate,omitempty"`
}

// VaultConfig configures the Vault client used for vault: secret references.
// Empty fields fall back to the standard VAULT_* environment variables.
type VaultConfig struct {
	Address   string   `yaml:"address,omitempty" json:"address,omitempty"`
	Token     string   `yaml:"token,omitempty" json:"-"`
	Namespace string   `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Timeout   Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// DefaultConfig returns the configuration for role with every default applied.
func DefaultConfig(role Role) *Config {
	cfg := &Config{Service: ServiceConfig{Role: role}}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values with role defaults.
func (c *Config) ApplyDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = defaultServiceName(c.Service.Role)
	}
	if c.Service.Version == "" {
		c.Service.Version = "1.0.0"
	}

	if c.Server.Port == 0 {
		c.Server.Port = defaultPort(c.Service.Role)
	}
	setDuration(&c.Server.ReadTimeout, 30*time.Second)
	setDuration(&c.Server.WriteTimeout, 30*time.Second)
	setDuration(&c.Server.IdleTimeout, 120*time.Second)
	setDuration(&c.Server.ShutdownTimeout, 30*time.Second)
	if t := c.Server.TLS; t != nil && t.ClientAuth == "" {
		t.ClientAuth = "optional"
	}

	setDuration(&c.Backend.Timeout, 30*time.Second)

	setDuration(&c.Middleware.ConnectTimeout, 10*time.Second)
	setDuration(&c.Middleware.HandshakeTimeout, 10*time.Second)
	setDuration(&c.Middleware.ReadTimeout, 30*time.Second)
	setDuration(&c.Middleware.IdleConnTimeout, 90*time.Second)
	if c.Middleware.MaxConnsPerHost == 0 {
		c.Middleware.MaxConnsPerHost = 20
	}
	if c.Middleware.MaxIdleConns == 0 {
		c.Middleware.MaxIdleConns = 100
	}

	if c.CircuitBreaker.Threshold == 0 {
		c.CircuitBreaker.Threshold = 5
	}
	setDuration(&c.CircuitBreaker.Timeout, 30*time.Second)

	obs := &c.Observability
	if obs.Logging.Level == "" {
		obs.Logging.Level = "info"
	}
	if obs.Logging.Format == "" {
		obs.Logging.Format = "json"
	}
	if obs.Metrics.Port == 0 {
		obs.Metrics.Port = DefaultMetricsPort
	}
	if obs.Metrics.Path == "" {
		obs.Metrics.Path = "/metrics"
	}
	if obs.Metrics.Namespace == "" {
		obs.Metrics.Namespace = "avarelay"
	}
	if obs.Tracing.ServiceName == "" {
		obs.Tracing.ServiceName = c.Service.Name
	}
	if obs.Tracing.SamplingRate == 0 {
		obs.Tracing.SamplingRate = 1.0
	}
}

func setDuration(d *Duration, def time.Duration) {
	if *d == 0 {
		*d = Duration(def)
	}
}

func defaultServiceName(role Role) string {
	switch role {
	case RoleEdge:
		return "user-bff"
	case RoleMiddleware:
		return "middleware"
	case RoleBackend:
		return "backend"
	default:
		return "avarelay"
	}
}

func defaultPort(role Role) int {
	switch role {
	case RoleBackend:
		return DefaultBackendPort
	case RoleMiddleware:
		return DefaultMiddlewarePort
	default:
		return DefaultEdgePort
	}
}
