package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vyrodovalexey/avarelay/internal/observability"
)

// run serves until a shutdown signal arrives or the listener fails.
func run(app *application, logger observability.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.server.Listen(); err != nil {
		fatalWithSync(logger, "failed to start server", observability.Error(err))
		return
	}

	app.watchMaterial(ctx, logger)
	startMetricsServerIfEnabled(app, logger)

	serveErr := make(chan error, 1)
	go func() { serveErr <- app.server.Start(ctx) }()

	logger.Info("relay started",
		observability.String("role", string(app.config.Service.Role)),
		observability.String("address", app.server.Addr().String()),
	)

	waitForShutdown(app, serveErr, logger)
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown.
func waitForShutdown(app *application, serveErr <-chan error, logger observability.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", observability.String("signal", sig.String()))
	case err := <-serveErr:
		if err != nil {
			logger.Error("server stopped unexpectedly", observability.Error(err))
		}
	}

	shutdown(app, logger)
}

// shutdown drains the listener and releases every component.
func shutdown(app *application, logger observability.Logger) {
	app.healthChecker.SetDraining(true)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := app.server.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop server gracefully", observability.Error(err))
	}

	if app.metricsServer != nil {
		logger.Info("stopping metrics server")
		if err := app.metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to stop metrics server gracefully", observability.Error(err))
		}
	}

	if app.tlsClient != nil {
		app.tlsClient.CloseIdleConnections()
	}

	if err := app.tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	logger.Info("relay stopped")
}
