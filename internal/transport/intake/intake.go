// Package intake is the single door through which transports hand frames to
// the lock core. It bounds frame size and rate before the core sees them.
package intake

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/oshokin/smartlock/internal/logger"
	"github.com/oshokin/smartlock/internal/protocol"
)

// MaxFrameLen is the largest frame accepted from any transport.
const MaxFrameLen = 64

// Drop reasons reported to the drop hook.
const (
	ReasonOversized = "oversized"
	ReasonThrottled = "throttled"
)

var (
	// ErrFrameTooLarge is returned for frames over MaxFrameLen.
	ErrFrameTooLarge = errors.New("frame too large")
	// ErrThrottled is returned when frames arrive faster than the configured rate.
	ErrThrottled = errors.New("frame rate limit exceeded")
)

// Handler is the lock core's command entry point.
type Handler interface {
	HandleCommand(ctx context.Context, frame []byte)
}

// Intake validates and rate-limits frames on their way to the core.
type Intake struct {
	// core receives accepted frames.
	core Handler
	// limiter bounds the frame rate across all transports; nil disables it.
	limiter *rate.Limiter
	// onFrame is called for every accepted frame.
	onFrame func(protocol.Command)
	// onDrop is called with a reason for every rejected frame.
	onDrop func(reason string)
}

// Option configures an Intake.
type Option func(*Intake)

// WithRateLimit allows perSecond frames on average with the given burst.
// A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(i *Intake) {
		if perSecond <= 0 {
			i.limiter = nil

			return
		}

		i.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// WithFrameHook registers a callback for accepted frames.
func WithFrameHook(fn func(protocol.Command)) Option {
	return func(i *Intake) {
		i.onFrame = fn
	}
}

// WithDropHook registers a callback for rejected frames.
func WithDropHook(fn func(reason string)) Option {
	return func(i *Intake) {
		i.onDrop = fn
	}
}

// New creates an intake in front of core.
func New(core Handler, opts ...Option) *Intake {
	i := &Intake{
		core: core,
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// Deliver passes one frame to the core, or returns why it was refused.
func (i *Intake) Deliver(ctx context.Context, frame []byte) error {
	if len(frame) > MaxFrameLen {
		i.drop(ctx, ReasonOversized, len(frame))

		return fmt.Errorf("%d bytes, limit %d: %w", len(frame), MaxFrameLen, ErrFrameTooLarge)
	}

	if i.limiter != nil && !i.limiter.Allow() {
		i.drop(ctx, ReasonThrottled, len(frame))

		return ErrThrottled
	}

	if i.onFrame != nil {
		if cmd, err := protocol.CommandOf(frame); err == nil {
			i.onFrame(cmd)
		}
	}

	i.core.HandleCommand(ctx, frame)

	return nil
}

// drop logs and reports a rejected frame.
func (i *Intake) drop(ctx context.Context, reason string, size int) {
	logger.WarnKV(ctx, "Frame rejected", "reason", reason, "frame_len", size)

	if i.onDrop != nil {
		i.onDrop(reason)
	}
}
