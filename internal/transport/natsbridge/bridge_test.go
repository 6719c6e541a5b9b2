package natsbridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/smartlock/internal/protocol"
	"github.com/oshokin/smartlock/internal/transport/hub"
)

// fakeConn captures the frame handler and published messages.
type fakeConn struct {
	// mu protects the fields below.
	mu sync.Mutex
	// subject is the subscribed subject.
	subject string
	// handler is the registered callback.
	handler nats.MsgHandler
	// published maps subjects to payloads in order.
	published map[string][][]byte
}

func (f *fakeConn) Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.subject = subject
	f.handler = cb

	return nil, nil
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.published == nil {
		f.published = make(map[string][][]byte)
	}

	f.published[subject] = append(f.published[subject], append([]byte(nil), data...))

	return nil
}

func (f *fakeConn) registered() (string, nats.MsgHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.subject, f.handler
}

func (f *fakeConn) sent(subject string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([][]byte(nil), f.published[subject]...)
}

// recordingSink keeps delivered frames.
type recordingSink struct {
	// mu protects frames.
	mu sync.Mutex
	// frames lists delivered frames.
	frames [][]byte
}

func (s *recordingSink) Deliver(_ context.Context, frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames = append(s.frames, frame)

	return nil
}

func (s *recordingSink) all() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([][]byte(nil), s.frames...)
}

// TestSubjects checks subject naming.
func TestSubjects(t *testing.T) {
	t.Parallel()

	require.Equal(t, "door.frames", FramesSubject("door"))
	require.Equal(t, "door.results", ResultsSubject("door"))

	_, err := New(new(fakeConn), "", new(recordingSink), hub.New())
	require.Error(t, err)

	_, err = Connect("", "lockd", time.Second)
	require.Error(t, err)
}

// TestBridge_Relays verifies frames flow in and results flow out.
func TestBridge_Relays(t *testing.T) {
	t.Parallel()

	conn := new(fakeConn)
	sink := new(recordingSink)
	results := hub.New()

	b, err := New(conn, DefaultSubject, sink, results)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- b.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		_, h := conn.registered()

		return h != nil
	}, time.Second, 5*time.Millisecond)

	subject, handler := conn.registered()
	require.Equal(t, "smartlock.frames", subject)

	frame := protocol.EncodeHeader(protocol.CommandAppReady)
	handler(&nats.Msg{Subject: subject, Data: frame})
	require.Equal(t, [][]byte{frame}, sink.all())

	require.NoError(t, results.SendResult(context.Background(), protocol.ResultLockFail))
	require.Eventually(t, func() bool {
		return len(conn.sent("smartlock.results")) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, []byte{byte(protocol.ResultLockFail)}, conn.sent("smartlock.results")[0])

	cancel()
	require.NoError(t, <-done)
	require.Zero(t, results.Len())
}
