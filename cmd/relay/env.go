package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/avarelay/internal/config"
)

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns the environment variable as a boolean or a default.
func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// applyEnvOverrides lets deployments point a hop at its peer and move its
// listener without editing the file.
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("RELAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	cfg.Backend.URL = getEnvOrDefault("RELAY_BACKEND_URL", cfg.Backend.URL)
	cfg.Middleware.URL = getEnvOrDefault("RELAY_MIDDLEWARE_URL", cfg.Middleware.URL)
	cfg.Observability.Metrics.Enabled = getEnvBool("RELAY_METRICS_ENABLED", cfg.Observability.Metrics.Enabled)
	cfg.Observability.Tracing.Enabled = getEnvBool("RELAY_TRACING_ENABLED", cfg.Observability.Tracing.Enabled)
	cfg.Observability.Tracing.OTLPEndpoint = getEnvOrDefault("RELAY_OTLP_ENDPOINT", cfg.Observability.Tracing.OTLPEndpoint)
}
