package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/smartlock/internal/config"
	"github.com/oshokin/smartlock/internal/logger"
	"github.com/oshokin/smartlock/internal/protocol"
	"github.com/oshokin/smartlock/internal/service/client"
	"github.com/oshokin/smartlock/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// serverAddress overrides the daemon address from config.
	serverAddress string
	// wait bounds how long to wait for a result.
	wait time.Duration
	// logLevel overrides the default log level.
	logLevel string

	// rootCmd is the base command; every action is a subcommand.
	rootCmd = &cobra.Command{
		Use:   version.CLI,
		Short: "Talk to a smart lock the way the phone app does.",
		Long: `Sends command frames to a lock daemon over LockLink and prints the
result code the lock answers with.

Every command waits for the first result its command can produce; other
codes on the shared result stream, such as supervisor reports, are skipped.
A lock command may legitimately get none when the bolt does not seat; the
supervisor then reports on its own schedule, which "watch" shows. Results
are not tagged with their sender, so a concurrent peer sending the same
command can still answer in your place.`,
		SilenceUsage: true,
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
	}
)

// options builds client options from the persistent flags.
func options(cmd *cobra.Command) *client.Options {
	return &client.Options{
		ConfigPath:    configPath,
		ServerAddress: serverAddress,
		Wait:          wait,
		Out:           cmd.OutOrStdout(),
	}
}

// Execute runs the lockctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)

	logger.Sync()

	if err != nil {
		stop()
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVarP(&serverAddress, "server", "s", "", "lock daemon address, overrides config")
	flags.DurationVarP(&wait, "wait", "w", 0, "how long to wait for a result (default: config timeout)")
	flags.StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newUnlockCmd(),
		newLockCmd(),
		newUpdateCmd(),
		newHeaderCmd("ready", "Send the app-ready handshake.", protocol.CommandAppReady),
		newHeaderCmd("reset", "Reset the lock record.", protocol.CommandReset),
		newStatusCmd(),
		newWatchCmd(),
	)
}
