package main

import (
	"context"
	"fmt"
	"time"

	"github.com/vyrodovalexey/avarelay/internal/config"
	"github.com/vyrodovalexey/avarelay/internal/observability"
	"github.com/vyrodovalexey/avarelay/internal/vault"
)

// resolveSecrets replaces vault: references in store passwords. It runs
// once at startup; rotated secrets need a restart.
func resolveSecrets(cfg *config.Config, logger observability.Logger) error {
	client, err := vault.New(vault.Config{
		Address:   cfg.Vault.Address,
		Token:     cfg.Vault.Token,
		Namespace: cfg.Vault.Namespace,
		Timeout:   cfg.Vault.Timeout.Duration(),
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create vault client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), secretResolveTimeout(cfg))
	defer cancel()

	if err := cfg.ResolveSecrets(ctx, client); err != nil {
		return fmt.Errorf("failed to resolve secrets: %w", err)
	}
	logger.Info("secrets resolved from vault")
	return nil
}

// secretResolveTimeout covers every secret field at the per-request timeout.
func secretResolveTimeout(cfg *config.Config) time.Duration {
	d := cfg.Vault.Timeout.Duration()
	if d <= 0 {
		d = vault.DefaultTimeout
	}
	return 4 * d
}
