package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avarelay/internal/config"
	"github.com/vyrodovalexey/avarelay/internal/observability"
	"github.com/vyrodovalexey/avarelay/internal/pki"
)

func TestParseFlags(t *testing.T) {
	t.Setenv("RELAY_LOG_LEVEL", "debug")
	t.Setenv("RELAY_ROLE", "backend")

	flags := parseFlags([]string{"-role", "edge", "-config", "configs/edge.yaml", "-version"})

	assert.Equal(t, "edge", flags.role)
	assert.Equal(t, "configs/edge.yaml", flags.configPath)
	assert.Equal(t, "debug", flags.logLevel)
	assert.Empty(t, flags.logFormat)
	assert.True(t, flags.showVersion)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("RELAY_TEST_FROM_FILE=loaded\nRELAY_TEST_PRESET=file\n"), 0o600))
	t.Setenv("RELAY_TEST_PRESET", "env")
	t.Cleanup(func() { _ = os.Unsetenv("RELAY_TEST_FROM_FILE") })

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "loaded", os.Getenv("RELAY_TEST_FROM_FILE"))
	assert.Equal(t, "env", os.Getenv("RELAY_TEST_PRESET"))

	assert.NoError(t, loadEnvFile(filepath.Join(dir, "missing.env")))
	assert.NoError(t, loadEnvFile(""))
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("RELAY_TEST_BOOL", "Yes")
	t.Setenv("RELAY_TEST_LIST", " a, ,b ,")

	assert.True(t, getEnvBool("RELAY_TEST_BOOL", false))
	assert.True(t, getEnvBool("RELAY_TEST_UNSET", true))
	assert.Equal(t, []string{"a", "b"}, getEnvList("RELAY_TEST_LIST"))
	assert.Equal(t, "fallback", getEnvOrDefault("RELAY_TEST_UNSET", "fallback"))
}

func TestLoadConfig_RoleAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "middleware.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
service:
  role: middleware
backend:
  url: http://backend:8081
`), 0o600))

	t.Setenv("RELAY_BACKEND_URL", "http://10.0.0.5:8081")
	t.Setenv("RELAY_PORT", "9443")

	cfg, err := loadConfig(cliFlags{configPath: path})
	require.NoError(t, err)

	assert.Equal(t, config.RoleMiddleware, cfg.Service.Role)
	assert.Equal(t, "middleware", cfg.Service.Name)
	assert.Equal(t, "http://10.0.0.5:8081", cfg.Backend.URL)
	assert.Equal(t, 9443, cfg.Server.Port)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_RoleRequired(t *testing.T) {
	_, err := loadConfig(cliFlags{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no role given")

	_, err = loadConfig(cliFlags{role: "gateway"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")

	cfg, err := loadConfig(cliFlags{role: "backend"})
	require.NoError(t, err)
	assert.Equal(t, config.DefaultBackendPort, cfg.Server.Port)
}

func TestLoadConfig_Logging(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backend.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
service:
  role: backend
observability:
  logging:
    level: debug
    format: console
`), 0o600))

	cfg, err := loadConfig(cliFlags{configPath: path})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)
	assert.Equal(t, "console", cfg.Observability.Logging.Format)

	cfg, err = loadConfig(cliFlags{configPath: path, logLevel: "warn"})
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Observability.Logging.Level)
	assert.Equal(t, "console", cfg.Observability.Logging.Format)

	cfg, err = loadConfig(cliFlags{role: "edge"})
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Observability.Logging.Level)
	assert.Equal(t, "json", cfg.Observability.Logging.Format)
}

func TestNewConfiguredLogger(t *testing.T) {
	logger, err := newConfiguredLogger(config.LoggingConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = newConfiguredLogger(config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestNewApplication_TracingEnabled(t *testing.T) {
	cfg := config.DefaultConfig(config.RoleBackend)
	cfg.Observability.Tracing.Enabled = true
	cfg.Observability.Tracing.SamplingRate = 1

	app, err := newApplication(cfg, observability.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.tracer.Shutdown(context.Background()) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/backend/process", strings.NewReader(`{"name":"Bob"}`))
	req.Header.Set("Content-Type", "application/json")
	app.server.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewApplication_Backend(t *testing.T) {
	cfg := config.DefaultConfig(config.RoleBackend)

	app, err := newApplication(cfg, observability.NopLogger())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/backend/process", strings.NewReader(`{"name":"Bob"}`))
	req.Header.Set("Content-Type", "application/json")
	app.server.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"greeting":"Hello from Backend, Bob!"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestNewApplication_Middleware(t *testing.T) {
	bundle, err := pki.GenerateDevPKI(t.TempDir(), pki.DevOptions{StorePassword: "changeit"})
	require.NoError(t, err)

	cfg := config.DefaultConfig(config.RoleMiddleware)
	cfg.Backend.URL = "http://127.0.0.1:1"
	cfg.Server.TLS = &config.ServerTLSConfig{
		Enabled:    true,
		KeyStore:   config.StoreConfig{Path: bundle.ServerKeyStore.PKCS12, Password: "changeit"},
		TrustStore: &config.StoreConfig{Path: bundle.TrustStore, Password: "changeit"},
		ClientAuth: "optional",
	}

	app, err := newApplication(cfg, observability.NopLogger())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	app.server.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/mw/health", nil))
	assert.JSONEq(t, `{"status":"UP","service":"middleware","ssl":"enabled"}`, w.Body.String())

	ready := app.healthChecker.Readiness()
	assert.Contains(t, ready.Checks, "server-certificate")
	assert.Equal(t, "healthy", string(ready.Status))
}

func TestNewApplication_Edge(t *testing.T) {
	bundle, err := pki.GenerateDevPKI(t.TempDir(), pki.DevOptions{StorePassword: "changeit"})
	require.NoError(t, err)

	cfg := config.DefaultConfig(config.RoleEdge)
	cfg.Middleware.URL = "https://127.0.0.1:1"
	cfg.Middleware.MTLS = config.MTLSConfig{
		TrustStore: config.StoreConfig{Path: bundle.TrustStore, Password: "changeit"},
		KeyStore:   config.StoreConfig{Path: bundle.ClientKeyStore.PKCS12, Password: "changeit"},
	}

	app, err := newApplication(cfg, observability.NopLogger())
	require.NoError(t, err)
	require.NotNil(t, app.tlsClient)

	engine := app.server.Engine()
	for _, path := range []string{"/api/rest/health", "/ws/user.wsdl", "/graphql?query=%7B__typename%7D"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/rest/hello?name=Bob", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"servedBy":"error"`)
	assert.Contains(t, w.Body.String(), `"greeting":"Hello, Bob!"`)
}

func TestNewApplication_EdgeFailsOnBadMaterial(t *testing.T) {
	cfg := config.DefaultConfig(config.RoleEdge)
	cfg.Middleware.URL = "https://127.0.0.1:1"
	cfg.Middleware.MTLS.TrustStore.Path = filepath.Join(t.TempDir(), "missing.p12")
	cfg.Middleware.MTLS.KeyStore.Path = filepath.Join(t.TempDir(), "missing.p12")

	_, err := newApplication(cfg, observability.NopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to build mTLS client")
}

func TestGenerateCerts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateCerts(dir))

	for _, name := range []string{"ca.pem", "truststore.p12", "middleware-keystore.p12", "edge-bff-keystore.p12"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}
