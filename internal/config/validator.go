package config

import (
	"errors"
	"fmt"
	"net/url"
)

// ValidationError is a single invalid field.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Validate checks the configuration for the selected role. All problems are
// reported together, joined with errors.Join.
func (c *Config) Validate() error {
	v := &validator{}
	v.validate(c)
	return errors.Join(v.errs...)
}

type validator struct {
	errs []error
}

func (v *validator) addError(path, format string, args ...any) {
	v.errs = append(v.errs, &ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) validate(c *Config) {
	if _, err := ParseRole(string(c.Service.Role)); err != nil {
		v.addError("service.role", "%v", err)
	}

	v.validatePort("server.port", c.Server.Port)
	if t := c.Server.TLS; t != nil && t.Enabled {
		v.validateStore("server.tls.keyStore", &t.KeyStore)
		switch t.ClientAuth {
		case "none":
		case "optional", "require":
			if t.TrustStore == nil {
				v.addError("server.tls.trustStore", "required when clientAuth is %s", t.ClientAuth)
			} else {
				v.validateStore("server.tls.trustStore", t.TrustStore)
			}
		default:
			v.addError("server.tls.clientAuth", "must be none, optional or require, got %q", t.ClientAuth)
		}
	}

	switch c.Service.Role {
	case RoleMiddleware:
		v.validateURL("backend.url", c.Backend.URL)
	case RoleEdge:
		v.validateURL("middleware.url", c.Middleware.URL)
		v.validateStore("middleware.mtls.trustStore", &c.Middleware.MTLS.TrustStore)
		v.validateStore("middleware.mtls.keyStore", &c.Middleware.MTLS.KeyStore)
		if c.Middleware.MaxConnsPerHost < 0 {
			v.addError("middleware.maxConnsPerHost", "must not be negative")
		}
	}

	if c.CircuitBreaker.Enabled && c.CircuitBreaker.Threshold < 1 {
		v.addError("circuitBreaker.threshold", "must be at least 1")
	}

	if m := c.Observability.Metrics; m.Enabled {
		v.validatePort("observability.metrics.port", m.Port)
		if m.Port == c.Server.Port {
			v.addError("observability.metrics.port", "must differ from server.port")
		}
	}
	if r := c.Observability.Tracing.SamplingRate; r < 0 || r > 1 {
		v.addError("observability.tracing.samplingRate", "must be between 0 and 1")
	}
}

func (v *validator) validatePort(path string, port int) {
	if port < 1 || port > 65535 {
		v.addError(path, "must be between 1 and 65535, got %d", port)
	}
}

func (v *validator) validateURL(path, raw string) {
	if raw == "" {
		v.addError(path, "is required")
		return
	}
	u, err := url.Parse(raw)
	if err != nil {
		v.addError(path, "invalid URL: %v", err)
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		v.addError(path, "scheme must be http or https")
	}
	if u.Host == "" {
		v.addError(path, "host is required")
	}
}

func (v *validator) validateStore(path string, s *StoreConfig) {
	if s.Path == "" {
		v.addError(path+".path", "is required")
	}
	switch s.Type {
	case "", "pem", "pkcs12":
	default:
		v.addError(path+".type", "must be pem or pkcs12, got %q", s.Type)
	}
}
