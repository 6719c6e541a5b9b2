package locklink

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/smartlock/internal/domain/lock"
	"github.com/oshokin/smartlock/internal/logger"
	"github.com/oshokin/smartlock/internal/protocol"
	"github.com/oshokin/smartlock/internal/transport/intake"
)

const (
	// SubscribedHeader is sent on the Results stream once the subscription is
	// live, so a client can wait for it before sending a frame.
	SubscribedHeader = "x-smartlock-subscribed"
	// ActorHeader carries the user@host of the peer that sent a frame.
	ActorHeader = "x-smartlock-actor"
)

// ActorFromContext returns the actor a peer attached to the call, or "".
func ActorFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	if values := md.Get(ActorHeader); len(values) > 0 {
		return values[0]
	}

	return ""
}

// FrameSink accepts inbound frames.
type FrameSink interface {
	Deliver(ctx context.Context, frame []byte) error
}

// ResultSource hands out result subscriptions.
type ResultSource interface {
	Subscribe(buffer int) (<-chan protocol.Result, func())
}

// StatusSource exposes the current lock record.
type StatusSource interface {
	Snapshot() *domain.Record
}

// Server implements LinkServer.
type Server struct {
	// sink receives frames from Send.
	sink FrameSink
	// results feeds the Results streams.
	results ResultSource
	// status answers Status calls.
	status StatusSource
}

// NewServer wires the transport to the lock.
func NewServer(sink FrameSink, results ResultSource, status StatusSource) *Server {
	return &Server{
		sink:    sink,
		results: results,
		status:  status,
	}
}

// Send delivers one frame to the lock and returns once it was processed.
func (s *Server) Send(ctx context.Context, req *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	if req == nil || len(req.GetValue()) == 0 {
		return nil, status.Error(codes.InvalidArgument, "frame is required")
	}

	if actor := ActorFromContext(ctx); actor != "" {
		ctx = logger.WithFields(ctx, "actor", actor, "frame_len", len(req.GetValue()))
	}

	err := s.sink.Deliver(ctx, req.GetValue())

	switch {
	case err == nil:
		return new(emptypb.Empty), nil
	case errors.Is(err, intake.ErrThrottled):
		return nil, status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, intake.ErrFrameTooLarge):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	default:
		return nil, status.Error(codes.Internal, "unable to deliver frame")
	}
}

// Results streams result codes until the client goes away.
func (s *Server) Results(_ *emptypb.Empty, stream grpc.ServerStreamingServer[wrapperspb.UInt32Value]) error {
	ctx := stream.Context()

	ch, cancel := s.results.Subscribe(0)
	defer cancel()

	if err := stream.SendHeader(metadata.Pairs(SubscribedHeader, "1")); err != nil {
		return err
	}

	logger.Debug(ctx, "Result stream attached")

	for {
		select {
		case <-ctx.Done():
			return nil
		case result, ok := <-ch:
			if !ok {
				return nil
			}

			if err := stream.Send(wrapperspb.UInt32(uint32(result))); err != nil {
				return err
			}
		}
	}
}

// Status returns the current lock record.
func (s *Server) Status(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	out, err := RecordToStruct(s.status.Snapshot())
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode status")
	}

	return out, nil
}

// RecordToStruct converts the lock record into a protobuf Struct.
// Codes are rendered in their wire form, with 0xFF in empty slots.
func RecordToStruct(r *domain.Record) (*structpb.Struct, error) {
	if r == nil {
		return new(structpb.Struct), nil
	}

	slots := make([]any, 0, len(r.Codes))
	for _, c := range r.WireCodes() {
		slots = append(slots, int(c))
	}

	bound := ""
	if r.DeviceBound && !r.BoundDevice.IsZero() {
		bound = r.BoundDevice.String()
	}

	return structpb.NewStruct(map[string]any{
		"status":       r.Status.String(),
		"alarm_count":  r.AlarmCount,
		"valid_codes":  r.ValidCodeCount,
		"codes":        slots,
		"expiry":       r.Expiry.String(),
		"device_bound": r.DeviceBound,
		"bound_device": bound,
		"beep_on":      r.BeepOn,
		"busy":         r.Busy,
		"provisioned":  r.Provisioned,
	})
}
