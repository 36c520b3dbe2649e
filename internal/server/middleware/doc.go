// Package middleware provides the gin middleware shared by every relay role:
// request IDs, access logging, panic recovery, tracing and request metrics.
//
// Recommended order:
//
//	engine.Use(
//	    middleware.Recovery(logger),
//	    middleware.RequestID(),
//	    middleware.Tracing(serviceName),
//	    middleware.Metrics(metrics),
//	    middleware.Logging(logger),
//	)
package middleware
