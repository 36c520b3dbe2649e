// Package observability provides logging, metrics, and tracing for the
// relay services.
//
// Logging goes through the Logger interface backed by zap:
//
//	logger, err := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json"})
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	logger.Info("payload forwarded",
//	    observability.String("hop", "backend"),
//	    observability.Int("status", 200),
//	)
//
// Metrics are registered on a private Prometheus registry exposed by
// Metrics.Handler. Tracing uses OpenTelemetry with an optional OTLP gRPC
// exporter; the W3C trace context is propagated on every outbound hop.
package observability
