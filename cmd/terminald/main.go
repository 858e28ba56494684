package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/disco/terminald/internal/config"
	"github.com/disco/terminald/internal/logger"
	"github.com/disco/terminald/pkg/kvstore"
	"github.com/disco/terminald/pkg/terminal"
)

// Version is the terminald release version
const Version = "0.3.0"

var (
	// CLI flags
	cfgFile   string
	logLevel  string
	logFormat string
	logOutput string
	redisAddr string

	// Global state wired by runDaemon
	rootLog *logger.Logger
	manager *terminal.Manager
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "terminald",
	Short: "Terminald - persistent terminal session manager for sandbox containers",
	Long: `Terminald manages persistent, reconnectable terminal sessions riding on
top of sandbox container identifiers: bounded command history, session
recording and replay, and expiry-based garbage collection, with best-effort
write-through persistence to Redis so sessions survive process restarts.

Transports (REST, JSON-RPC) and process execution live in external callers;
terminald is purely the session-state bookkeeper.`,
	Version: Version,
	RunE:    runDaemon,
}

// runDaemon wires configuration, logging, the persistence adapter, and the
// session manager, then idles until signalled.
func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Flags override file and environment.
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if logOutput != "" {
		cfg.Logging.Output = logOutput
	}
	if redisAddr != "" {
		cfg.Redis.Addr = redisAddr
		cfg.Redis.Enabled = true
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	rootLog, err = logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer rootLog.Close()
	logger.SetGlobal(rootLog)

	rootLog.Info("Starting terminald", "version", Version)

	var store kvstore.Store
	if cfg.Redis.Enabled {
		redisStore := kvstore.NewRedisStore(cfg.Redis, rootLog)
		pingCtx, cancel := context.WithTimeout(context.Background(), cfg.Redis.DialTimeout)
		if !redisStore.IsConnected(pingCtx) {
			rootLog.Warn("Redis unreachable at startup, sessions persist once it recovers",
				"addr", cfg.Redis.Addr)
		}
		cancel()
		store = redisStore
	} else {
		rootLog.Info("Redis disabled, running with in-process persistence only")
		store = kvstore.NewMemoryStore()
	}

	manager, err = terminal.New(cfg.Session, store, rootLog)
	if err != nil {
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}

	rootLog.Info("Terminald is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	rootLog.Info("Shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := manager.Shutdown(shutdownCtx); err != nil {
		rootLog.Error("Session manager shutdown failed", "error", err)
	}
	if err := store.Close(); err != nil {
		rootLog.Warn("Failed to close persistence adapter", "error", err)
	}

	rootLog.Info("Terminald stopped")
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, text)")
	rootCmd.PersistentFlags().StringVar(&logOutput, "log-output", "", "log output (stdout, stderr, or file path)")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis-addr", "", "redis address (enables redis persistence)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
