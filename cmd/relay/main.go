// Package main is the entry point for the relay services.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/vyrodovalexey/avarelay/internal/config"
	"github.com/vyrodovalexey/avarelay/internal/observability"
	"github.com/vyrodovalexey/avarelay/internal/pki"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	role        string
	configPath  string
	logLevel    string
	logFormat   string
	genCerts    string
	showVersion bool
}

func main() {
	if err := loadEnvFile(getEnvOrDefault("RELAY_ENV_FILE", ".env")); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load env file: %v\n", err)
		os.Exit(1)
	}

	flags := parseFlags(os.Args[1:])

	if flags.showVersion {
		printVersion()
		return
	}

	if flags.genCerts != "" {
		if err := generateCerts(flags.genCerts); err != nil {
			fmt.Fprintf(os.Stderr, "failed to generate certificates: %v\n", err)
			os.Exit(1)
		}
		return
	}

	bootstrap := initLogger(flags)
	cfg := loadAndValidateConfig(flags, bootstrap)

	logger, err := newConfiguredLogger(cfg.Observability.Logging)
	if err != nil {
		fatalWithSync(bootstrap, "failed to initialize logger", observability.Error(err))
		return
	}
	_ = bootstrap.Sync()
	defer func() { _ = logger.Sync() }()

	app, err := newApplication(cfg, logger)
	if err != nil {
		fatalWithSync(logger, "failed to initialize application", observability.Error(err))
		return
	}

	run(app, logger)
}

// parseFlags parses command line flags. Defaults come from RELAY_* variables.
func parseFlags(args []string) cliFlags {
	flagSet := flag.NewFlagSet("relay", flag.ExitOnError)
	role := flagSet.String("role", getEnvOrDefault("RELAY_ROLE", ""),
		"Service role (backend, middleware, edge); overrides service.role")
	configPath := flagSet.String("config", getEnvOrDefault("RELAY_CONFIG_PATH", ""),
		"Path to configuration file")
	logLevel := flagSet.String("log-level", getEnvOrDefault("RELAY_LOG_LEVEL", ""),
		"Log level (debug, info, warn, error); overrides observability.logging.level")
	logFormat := flagSet.String("log-format", getEnvOrDefault("RELAY_LOG_FORMAT", ""),
		"Log format (json, console); overrides observability.logging.format")
	genCerts := flagSet.String("gen-certs", "",
		"Write a development CA with middleware and edge-bff identities into this directory and exit")
	showVersion := flagSet.Bool("version", false, "Show version information")
	_ = flagSet.Parse(args)

	return cliFlags{
		role:        *role,
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		genCerts:    *genCerts,
		showVersion: *showVersion,
	}
}

// loadEnvFile loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is ignored.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// printVersion prints version information and exits.
func printVersion() {
	fmt.Printf("avarelay version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger builds the startup logger from flags alone. It is replaced
// once the configuration file has been read.
func initLogger(flags cliFlags) observability.Logger {
	logCfg := observability.DefaultLogConfig()
	if flags.logLevel != "" {
		logCfg.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		logCfg.Format = flags.logFormat
	}
	logger, err := observability.NewLogger(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// newConfiguredLogger builds the service logger from observability.logging,
// which already carries any flag or RELAY_LOG_* override.
func newConfiguredLogger(cfg config.LoggingConfig) (observability.Logger, error) {
	return observability.NewLogger(observability.LogConfig{
		Level:  cfg.Level,
		Format: cfg.Format,
	})
}

// generateCerts writes the development PKI.
func generateCerts(dir string) error {
	bundle, err := pki.GenerateDevPKI(dir, pki.DevOptions{
		StorePassword: getEnvOrDefault("RELAY_STORE_PASSWORD", "changeit"),
		KeyPassword:   os.Getenv("RELAY_KEY_PASSWORD"),
		ServerHosts:   getEnvList("RELAY_SERVER_HOSTS"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("CA certificate:         %s\n", bundle.CAPEM)
	fmt.Printf("Trust store:            %s\n", bundle.TrustStore)
	fmt.Printf("Middleware key store:   %s (%s)\n", bundle.ServerKeyStore.PKCS12, bundle.ServerKeyStore.PEM)
	fmt.Printf("Edge-bff key store:     %s (%s)\n", bundle.ClientKeyStore.PKCS12, bundle.ClientKeyStore.PEM)
	return nil
}

// loadAndValidateConfig loads the configuration file, applies flag and
// environment overrides and defaults, and validates the result.
func loadAndValidateConfig(flags cliFlags, logger observability.Logger) *config.Config {
	logger.Info("starting avarelay",
		observability.String("version", version),
		observability.String("config", flags.configPath),
	)

	cfg, err := loadConfig(flags)
	if err != nil {
		fatalWithSync(logger, "failed to load configuration", observability.Error(err))
		return nil
	}

	if err := cfg.Validate(); err != nil {
		fatalWithSync(logger, "invalid configuration", observability.Error(err))
		return nil
	}

	logger.Info("configuration loaded",
		observability.String("role", string(cfg.Service.Role)),
		observability.String("service", cfg.Service.Name),
		observability.String("listen", cfg.Server.ListenAddress()),
		observability.Bool("tls", cfg.Server.TLS != nil && cfg.Server.TLS.Enabled),
	)

	return cfg
}

func loadConfig(flags cliFlags) (*config.Config, error) {
	cfg := &config.Config{}
	if flags.configPath != "" {
		loaded, err := config.LoadConfig(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if flags.role != "" {
		role, err := config.ParseRole(flags.role)
		if err != nil {
			return nil, err
		}
		cfg.Service.Role = role
	}
	if cfg.Service.Role == "" {
		return nil, errors.New("no role given: set service.role or pass -role")
	}

	if flags.logLevel != "" {
		cfg.Observability.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Observability.Logging.Format = flags.logFormat
	}

	applyEnvOverrides(cfg)
	cfg.ApplyDefaults()
	return cfg, nil
}

// fatalWithSync logs at fatal level after flushing buffered entries.
func fatalWithSync(logger observability.Logger, msg string, fields ...observability.Field) {
	_ = logger.Sync()
	logger.Fatal(msg, fields...)
}
