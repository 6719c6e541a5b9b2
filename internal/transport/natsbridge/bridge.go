// Package natsbridge carries lock frames and result codes over NATS subjects.
//
// Frames published on "<prefix>.frames" are handed to the lock, and every
// result code is published as a one-byte message on "<prefix>.results".
package natsbridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/oshokin/smartlock/internal/logger"
	"github.com/oshokin/smartlock/internal/protocol"
)

// DefaultSubject is the subject prefix used when none is configured.
const DefaultSubject = "smartlock"

var (
	// errSubjectRequired is returned for an empty subject prefix.
	errSubjectRequired = errors.New("subject prefix must be provided")
	// errURLRequired is returned when no server URL is configured.
	errURLRequired = errors.New("nats url must be provided")
)

// Conn is the part of *nats.Conn the bridge needs.
type Conn interface {
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
	Publish(subject string, data []byte) error
}

// FrameSink accepts inbound frames.
type FrameSink interface {
	Deliver(ctx context.Context, frame []byte) error
}

// ResultSource hands out result subscriptions.
type ResultSource interface {
	Subscribe(buffer int) (<-chan protocol.Result, func())
}

// Bridge relays between NATS and the lock.
type Bridge struct {
	// conn is the NATS connection.
	conn Conn
	// prefix is the subject prefix.
	prefix string
	// sink receives inbound frames.
	sink FrameSink
	// results is the source of outbound codes.
	results ResultSource
}

// FramesSubject returns the subject frames are read from.
func FramesSubject(prefix string) string {
	return prefix + ".frames"
}

// ResultsSubject returns the subject results are published on.
func ResultsSubject(prefix string) string {
	return prefix + ".results"
}

// Connect opens a NATS connection with reconnects enabled.
func Connect(url, name string, timeout time.Duration) (*nats.Conn, error) {
	if url == "" {
		return nil, errURLRequired
	}

	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(timeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	return conn, nil
}

// New creates a bridge. The caller owns conn.
func New(conn Conn, prefix string, sink FrameSink, results ResultSource) (*Bridge, error) {
	if prefix == "" {
		return nil, errSubjectRequired
	}

	return &Bridge{
		conn:    conn,
		prefix:  prefix,
		sink:    sink,
		results: results,
	}, nil
}

// Run relays until ctx is canceled.
func (b *Bridge) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "nats")

	codes, cancel := b.results.Subscribe(0)
	defer cancel()

	frames := FramesSubject(b.prefix)

	sub, err := b.conn.Subscribe(frames, func(msg *nats.Msg) {
		if err := b.sink.Deliver(ctx, msg.Data); err != nil {
			logger.WarnKV(ctx, "Frame from NATS refused", "subject", msg.Subject, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", frames, err)
	}

	defer func() {
		if sub == nil {
			return
		}

		if err := sub.Unsubscribe(); err != nil {
			logger.DebugKV(ctx, "Failed to unsubscribe", "subject", frames, "error", err)
		}
	}()

	logger.InfoKV(ctx, "NATS bridge started", "frames", frames, "results", ResultsSubject(b.prefix))

	out := ResultsSubject(b.prefix)

	for {
		select {
		case <-ctx.Done():
			return nil
		case result, ok := <-codes:
			if !ok {
				return nil
			}

			if err := b.conn.Publish(out, []byte{byte(result)}); err != nil {
				logger.WarnKV(ctx, "Failed to publish result", "result", result, "error", err)
			}
		}
	}
}
