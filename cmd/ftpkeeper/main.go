package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/ftpkeeper/internal/logger"
	"github.com/marmos91/ftpkeeper/pkg/config"
	"github.com/marmos91/ftpkeeper/pkg/engine"
	"github.com/marmos91/ftpkeeper/pkg/metrics"
	"github.com/marmos91/ftpkeeper/pkg/supervisor"
	"github.com/marmos91/ftpkeeper/pkg/users"
)

// Exit codes. Bind failures get their own code so wrapper scripts can
// tell "port taken" apart from a broken configuration.
const (
	exitConfigError = 1
	exitBindError   = 2
)

var (
	configPath  string
	sharedDir   string
	port        int
	language    string
	logLevel    string
	metricsPort int
)

var rootCmd = &cobra.Command{
	Use:   "ftpkeeper",
	Short: "Managed FTP server",
	Long: `ftpkeeper runs an FTP server from a TOML configuration file.

On first run, when no configuration file exists, a default one is
created at the configured path with a single account (user/123456)
rooted in the shared directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigName, "Path to the configuration file")
	rootCmd.Flags().StringVar(&sharedDir, "shared-dir", "", "Shared directory served to users without a home (overrides config)")
	rootCmd.Flags().IntVarP(&port, "port", "p", 0, "Control-connection port (overrides config)")
	rootCmd.Flags().StringVar(&language, "language", "", "Server language, zh_CN or en_US (overrides config)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.Flags().IntVar(&metricsPort, "metrics-port", 0, "Port for the Prometheus metrics endpoint (0 = disabled)")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func runServe(cmd *cobra.Command, args []string) error {
	logger.SetLevel(logLevel)

	settings, err := config.Load(configPath, config.Overrides{
		Port:      port,
		SharedDir: sharedDir,
		Language:  language,
	})
	if err != nil {
		return err
	}

	if settings.NeedsPersist {
		if err := config.WriteDefault(configPath); err != nil {
			// The resolved settings are still usable; the file just won't
			// be there next run.
			logger.Warn("Could not write default configuration to %s: %v", configPath, err)
		} else {
			logger.Info("Created default configuration at %s", configPath)
		}
	}

	if err := os.MkdirAll(settings.SharedDir, 0o755); err != nil {
		return err
	}

	registry, err := users.Build(settings.Users)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if metricsPort > 0 {
		metrics.InitRegistry()
		metricsServer := metrics.NewServer(metrics.ServerConfig{Port: metricsPort})
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	sup := supervisor.New(engine.NewListenerEngine())

	if err := sup.Start(ctx, settings, registry); err != nil {
		return err
	}

	logger.Info("Configuration:")
	logger.Info("  Listen: %s:%d", settings.ListenAddress, settings.Port)
	logger.Info("  Max connections: %d (%d per IP)", settings.MaxConnections, settings.MaxConnectionsPerIP)
	if settings.PassivePorts != nil {
		logger.Info("  Passive ports: %d-%d", settings.PassivePorts.Start, settings.PassivePorts.End)
	}
	logger.Info("  Language: %s", settings.Language)
	logger.Info("  Shared directory: %s", settings.SharedDir)
	for _, u := range registry.Users() {
		logger.Info("  Account %q (perm %s) -> %s", u.Username, u.Permissions, registry.ResolveHome(u, settings.SharedDir))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running on port %d. Press Ctrl+C to stop.", settings.Port)

	// The supervisor flips to Failed on asynchronous engine faults; poll
	// it alongside the signal wait.
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigChan:
			logger.Info("Shutdown signal received, initiating graceful shutdown...")

			stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer stopCancel()
			if err := sup.Stop(stopCtx); err != nil {
				logger.Error("Server shutdown error: %v", err)
				return err
			}
			logger.Info("Server stopped gracefully")
			return nil

		case <-ticker.C:
			if sup.State() == supervisor.StateFailed {
				return sup.LastError()
			}
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("%v", err)

		var bindErr *supervisor.BindError
		if errors.As(err, &bindErr) {
			os.Exit(exitBindError)
		}
		os.Exit(exitConfigError)
	}
}
