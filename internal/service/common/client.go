//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/smartlock/internal/api/grpc/locklink"
	"github.com/oshokin/smartlock/internal/config"
	"github.com/oshokin/smartlock/internal/protocol"
)

// Client wraps a LockLink connection with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the lock daemon.
	conn *grpc.ClientConn

	// callTimeout is the default timeout for unary calls.
	callTimeout time.Duration

	// actor is attached to every sent frame when set.
	actor string
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for unary calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor tags every sent frame with actor.
func WithActor(actor Actor) Option {
	return func(c *Client) {
		c.actor = actor.String()
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errFrameRequired is returned when an empty frame is sent.
	errFrameRequired = errors.New("frame must be provided")
)

// Dial creates a LockLink client.
// Note: this uses insecure transport credentials; the link is expected to run
// on a trusted local network or behind a TLS-terminating proxy.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial lock daemon: %w", err)
	}

	return NewClient(conn, opts...), nil
}

// NewClient wraps an existing connection. Close closes conn.
func NewClient(conn *grpc.ClientConn, opts ...Option) *Client {
	client := &Client{
		conn:        conn,
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Send delivers one frame and waits until the lock has processed it.
func (c *Client) Send(ctx context.Context, frame []byte) error {
	if len(frame) == 0 {
		return errFrameRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if c.actor != "" {
		callCtx = metadata.AppendToOutgoingContext(callCtx, locklink.ActorHeader, c.actor)
	}

	if err := c.conn.Invoke(callCtx, locklink.SendFullMethodName, wrapperspb.Bytes(frame), new(emptypb.Empty)); err != nil {
		return fmt.Errorf("send frame: %w", err)
	}

	return nil
}

// Status fetches the current lock record.
func (c *Client) Status(ctx context.Context) (*structpb.Struct, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	out := new(structpb.Struct)
	if err := c.conn.Invoke(callCtx, locklink.StatusFullMethodName, new(emptypb.Empty), out); err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	return out, nil
}

// ResultStream yields result codes from the lock.
type ResultStream struct {
	// stream is the underlying server stream.
	stream grpc.ServerStreamingClient[wrapperspb.UInt32Value]
}

// Recv blocks until the next result code arrives.
func (s *ResultStream) Recv() (protocol.Result, error) {
	msg, err := s.stream.Recv()
	if err != nil {
		return 0, err
	}

	return protocol.Result(msg.GetValue()), nil
}

// Results opens a result stream and returns once the subscription is live.
// The stream ends when ctx is canceled.
func (c *Client) Results(ctx context.Context) (*ResultStream, error) {
	stream, err := c.conn.NewStream(ctx, &locklink.ServiceDesc.Streams[0], locklink.ResultsFullMethodName)
	if err != nil {
		return nil, fmt.Errorf("open result stream: %w", err)
	}

	typed := &grpc.GenericClientStream[emptypb.Empty, wrapperspb.UInt32Value]{ClientStream: stream}

	if err := typed.SendMsg(new(emptypb.Empty)); err != nil {
		return nil, fmt.Errorf("open result stream: %w", err)
	}

	if err := typed.CloseSend(); err != nil {
		return nil, fmt.Errorf("open result stream: %w", err)
	}

	// The server sends headers only after it has subscribed.
	if _, err := typed.Header(); err != nil {
		return nil, fmt.Errorf("wait for subscription: %w", err)
	}

	return &ResultStream{stream: typed}, nil
}

// Exchange sends frame and waits up to wait for the first result code the
// frame's command can produce. Codes it cannot produce, such as supervisor
// reports, are skipped. It reports false when no code arrived in time, which
// is normal for a lock command the sensor has not confirmed yet.
func (c *Client) Exchange(ctx context.Context, frame []byte, wait time.Duration) (protocol.Result, bool, error) {
	cmd, err := protocol.CommandOf(frame)
	if err != nil {
		return 0, false, err
	}

	streamCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	stream, err := c.Results(streamCtx)
	if err != nil {
		return 0, false, err
	}

	if err := c.Send(ctx, frame); err != nil {
		return 0, false, err
	}

	for {
		result, err := stream.Recv()
		if err != nil {
			if streamCtx.Err() != nil && ctx.Err() == nil {
				return 0, false, nil
			}

			return 0, false, fmt.Errorf("receive result: %w", err)
		}

		if cmd.Expects(result) {
			return result, true, nil
		}
	}
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
