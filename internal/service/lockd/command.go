package lockd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/oshokin/smartlock/internal/api/grpc/locklink"
	"github.com/oshokin/smartlock/internal/config"
	"github.com/oshokin/smartlock/internal/logger"
	"github.com/oshokin/smartlock/internal/transport/natsbridge"
	"github.com/oshokin/smartlock/internal/version"
)

// Options controls the lockd process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// MetricsAddress overrides the metrics listen address from config.
	MetricsAddress string
	// NATSURL overrides the NATS server URL from config.
	NATSURL string
	// KeepLogLevel skips the log level from config, set when the CLI flag was given.
	KeepLogLevel bool
}

// shutdownGrace bounds how long open result streams may delay shutdown.
const shutdownGrace = 2 * time.Second

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the daemon and blocks until context is canceled or a component fails.
func Run(ctx context.Context, opts *Options) error {
	// Load configuration first to get server and logging settings.
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	applyOverrides(ctx, settings, opts)

	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, version.Daemon)

	// Determine listen address: CLI argument overrides config port extraction.
	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	d, err := newDaemon(ctx, settings)
	if err != nil {
		return fmt.Errorf("initialise lock: %w", err)
	}

	var bridge *natsbridge.Bridge

	if settings.NATS.URL != "" {
		conn, err := natsbridge.Connect(settings.NATS.URL, version.Daemon, settings.Timeout)
		if err != nil {
			return err
		}

		defer conn.Close()

		bridge, err = natsbridge.New(conn, settings.NATS.Subject, d.intake, d.results)
		if err != nil {
			return err
		}
	}

	// Setup TCP listener for gRPC server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer()
	locklink.Register(grpcServer, locklink.NewServer(d.intake, d.results, d.core))

	logger.InfoKV(ctx, "Lock daemon listening",
		"listen_address", listenAddress,
		"driver", settings.Hardware.Driver,
		"poll_interval", settings.Lock.PollInterval)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		stopGRPC(grpcServer)

		return nil
	})

	g.Go(func() error {
		d.supervise(gctx)

		return nil
	})

	if settings.Metrics.Address != "" {
		g.Go(func() error {
			return d.metrics.Serve(gctx, settings.Metrics.Address)
		})
	}

	if bridge != nil {
		g.Go(func() error {
			return bridge.Run(gctx)
		})
	}

	err = g.Wait()

	logger.Info(ctx, "Lock daemon stopped")

	return err
}

// applyOverrides folds CLI options into the loaded settings and applies the
// logging settings.
func applyOverrides(ctx context.Context, settings *config.Config, opts *Options) {
	if opts.MetricsAddress != "" {
		settings.Metrics.Address = opts.MetricsAddress
	}

	if opts.NATSURL != "" {
		settings.NATS.URL = opts.NATSURL
	}

	if settings.LogFormat != "" {
		if format, ok := logger.ParseFormat(settings.LogFormat); ok {
			logger.SetFormat(format)
		}
	}

	if opts.KeepLogLevel || settings.LogLevel == "" {
		return
	}

	level, ok := logger.ParseLogLevel(settings.LogLevel)
	if !ok {
		logger.WarnKV(ctx, "Ignoring unknown log level", "log_level", settings.LogLevel)

		return
	}

	logger.SetLevel(level)
}

// stopGRPC stops gracefully, then forcibly once shutdownGrace has passed.
// Result streams only end when their clients go away.
func stopGRPC(s *grpc.Server) {
	stopped := make(chan struct{})

	go func() {
		s.GracefulStop()
		close(stopped)
	}()

	timer := time.NewTimer(shutdownGrace)
	defer timer.Stop()

	select {
	case <-stopped:
	case <-timer.C:
		s.Stop()
		<-stopped
	}
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	// Use override address if provided (e.g., ":9090", "0.0.0.0:8080").
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Return port-only listen address to bind on all interfaces.
	return ":" + port, nil
}
