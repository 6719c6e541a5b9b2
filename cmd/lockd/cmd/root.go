package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/smartlock/internal/config"
	"github.com/oshokin/smartlock/internal/logger"
	"github.com/oshokin/smartlock/internal/service/lockd"
	"github.com/oshokin/smartlock/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// metricsAddress overrides the metrics listen address.
	metricsAddress string
	// natsURL overrides the NATS server URL.
	natsURL string
	// logLevel overrides the log level from config.
	logLevel string

	// rootCmd represents the base command for running the lock daemon.
	rootCmd = &cobra.Command{
		Use:   version.Daemon + " [listen-address]",
		Short: "Run the smart lock daemon.",
		Long: `Starts the lock daemon: the access-control state machine, the lock
confirmation supervisor and the LockLink gRPC endpoint peers talk to.

Only the port from server_addr in the configuration is used for listening
(e.g., :7447). A listen address argument overrides it.
Frames can also arrive over NATS when nats.url is set, and Prometheus
metrics are served when metrics.address is set.`,
		Args: cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("log-level") {
				return nil
			}

			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			defer logger.Sync()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &lockd.Options{
				ConfigPath:     configPath,
				ListenAddress:  listenAddress,
				MetricsAddress: metricsAddress,
				NATSURL:        natsURL,
				KeepLogLevel:   cmd.Flags().Changed("log-level"),
			}

			return lockd.Run(ctx, options)
		},
	}
)

// Execute runs the lockd CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVar(&metricsAddress, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.Flags().StringVar(&natsURL, "nats-url", "", "bridge frames through this NATS server")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
