package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/oshokin/smartlock/internal/config"
	"github.com/oshokin/smartlock/internal/logger"
	"github.com/oshokin/smartlock/internal/protocol"
	"github.com/oshokin/smartlock/internal/service/common"
	"github.com/oshokin/smartlock/internal/version"
)

// Options configures lockctl commands.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides server address from config when specified.
	ServerAddress string
	// Wait bounds how long to wait for a result; zero uses the config timeout.
	Wait time.Duration
	// Out receives command output; nil means stdout.
	Out io.Writer
}

// session is an open connection plus resolved settings.
type session struct {
	// client talks to the daemon.
	client *common.Client
	// wait bounds result waits.
	wait time.Duration
	// out receives output.
	out io.Writer
}

// open loads settings and dials the daemon.
func open(ctx context.Context, opts *Options) (context.Context, *session, error) {
	ctx = logger.WithName(ctx, version.CLI)

	cfg, err := loadSettings(opts)
	if err != nil {
		return ctx, nil, err
	}

	clientOpts := []common.Option{common.WithCallTimeout(cfg.Timeout)}

	if actor, err := common.DetectActor(); err == nil {
		clientOpts = append(clientOpts, common.WithActor(actor))
	} else {
		logger.DebugKV(ctx, "Sending frames without actor", "error", err)
	}

	c, err := common.Dial(ctx, cfg.ServerAddress, clientOpts...)
	if err != nil {
		return ctx, nil, err
	}

	s := &session{
		client: c,
		wait:   cfg.Timeout,
		out:    opts.Out,
	}

	if opts.Wait > 0 {
		s.wait = opts.Wait
	}

	if s.out == nil {
		s.out = os.Stdout
	}

	logger.DebugKV(ctx, "Connected to lock daemon", "server_address", cfg.ServerAddress)

	return ctx, s, nil
}

// loadSettings reads the config file, falling back to defaults when only an
// address override is given.
func loadSettings(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)

	switch {
	case err == nil:
	case opts.ServerAddress != "" && errors.Is(err, os.ErrNotExist):
		cfg = config.Default()
	default:
		return nil, err
	}

	if opts.ServerAddress != "" {
		cfg.ServerAddress = opts.ServerAddress
	}

	return cfg, nil
}

// Send delivers frame and prints the first result code.
func Send(ctx context.Context, opts *Options, frame []byte) error {
	ctx, s, err := open(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		_ = s.client.Close()
	}()

	result, ok, err := s.client.Exchange(ctx, frame, s.wait)
	if err != nil {
		if status.Code(err) == codes.ResourceExhausted {
			return fmt.Errorf("lock is throttling frames: %w", err)
		}

		return err
	}

	if !ok {
		logger.WarnKV(ctx, "No result from lock", "wait", s.wait)
		_, _ = fmt.Fprintf(s.out, "no result within %s\n", s.wait)

		return nil
	}

	_, _ = fmt.Fprintln(s.out, FormatResult(result))

	if !result.Success() && !result.IsStatusReport() && result != protocol.ResultDeviceNeedsUpdate {
		logger.WarnKV(ctx, "Lock refused command", "result", result)
	}

	return nil
}

// Status prints the lock record as JSON.
func Status(ctx context.Context, opts *Options) error {
	ctx, s, err := open(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		_ = s.client.Close()
	}()

	record, err := s.client.Status(ctx)
	if err != nil {
		return err
	}

	data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}

	_, _ = fmt.Fprintln(s.out, string(data))

	return nil
}

// Watch prints every result code until ctx is canceled.
func Watch(ctx context.Context, opts *Options) error {
	ctx, s, err := open(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		_ = s.client.Close()
	}()

	stream, err := s.client.Results(ctx)
	if err != nil {
		return err
	}

	logger.Info(ctx, "Watching lock results")

	for {
		result, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("watch results: %w", err)
		}

		_, _ = fmt.Fprintf(s.out, "%s %s\n", time.Now().Format(time.RFC3339), FormatResult(result))
	}
}
