package locklink_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/smartlock/internal/api/grpc/locklink"
	domain "github.com/oshokin/smartlock/internal/domain/lock"
	"github.com/oshokin/smartlock/internal/hal"
	"github.com/oshokin/smartlock/internal/lock"
	"github.com/oshokin/smartlock/internal/protocol"
	"github.com/oshokin/smartlock/internal/service/common"
	"github.com/oshokin/smartlock/internal/transport/hub"
	"github.com/oshokin/smartlock/internal/transport/intake"
)

const (
	bufSize  = 1 << 20
	waitTime = 2 * time.Second
)

// startLink serves LockLink over an in-memory listener backed by a simulated
// lock and returns a connected client.
func startLink(t *testing.T, opts ...intake.Option) (*common.Client, *grpc.ClientConn, *hal.Simulator) {
	t.Helper()

	sim := hal.NewSimulator()
	results := hub.New()

	core := lock.New(sim, results, lock.WithSettleDelay(0), lock.WithBeepDuration(0))
	core.Initialize(context.Background())

	conn := serve(t, locklink.NewServer(intake.New(core, opts...), results, core))
	client := common.NewClient(conn, common.WithCallTimeout(waitTime))

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client, conn, sim
}

// serve runs link over an in-memory listener and returns a connection to it.
func serve(t *testing.T, link *locklink.Server) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(bufSize)
	srv := grpc.NewServer()
	locklink.Register(srv, link)

	go func() {
		_ = srv.Serve(lis) //nolint:errcheck // Serve returns after Stop.
	}()

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(srv.Stop)

	return conn
}

func phone(t *testing.T) protocol.DeviceID {
	t.Helper()

	id, err := protocol.ParseDeviceID("android-phone-aa")
	require.NoError(t, err)

	return id
}

func exchange(t *testing.T, c *common.Client, frame []byte) protocol.Result {
	t.Helper()

	result, ok, err := c.Exchange(context.Background(), frame, waitTime)
	require.NoError(t, err)
	require.True(t, ok, "no result for frame % x", frame)

	return result
}

// TestLockLink_Session walks a phone through handshake, provisioning,
// unlock and lock over the gRPC link.
func TestLockLink_Session(t *testing.T) {
	t.Parallel()

	client, _, sim := startLink(t)
	device := phone(t)

	require.Equal(t, protocol.ResultDeviceNeedsUpdate,
		exchange(t, client, protocol.EncodeHeader(protocol.CommandAppReady)))

	update, err := protocol.EncodeUpdate([]byte{11, 22, 33}, device,
		protocol.Stamp{Years: 99, Months: 12, Days: 31, Hours: 23, Minutes: 59})
	require.NoError(t, err)
	require.Equal(t, protocol.ResultUpdateSuccess, exchange(t, client, update))

	require.Equal(t, protocol.ResultStatusLocked,
		exchange(t, client, protocol.EncodeHeader(protocol.CommandAppReady)))

	unlock := protocol.EncodeUnlock(22, device,
		protocol.Stamp{Years: 26, Months: 10, Days: 18, Hours: 9, Minutes: 5})
	require.Equal(t, protocol.ResultUnlockSuccess, exchange(t, client, unlock))
	require.False(t, sim.State().BoltLocked)

	st, err := client.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.StatusUnlocked.String(), st.GetFields()["status"].GetStringValue())
	require.InDelta(t, 2, st.GetFields()["valid_codes"].GetNumberValue(), 0)
	require.True(t, st.GetFields()["device_bound"].GetBoolValue())

	require.Equal(t, protocol.ResultLockSuccess,
		exchange(t, client, protocol.EncodeHeader(protocol.CommandLock)))
	require.True(t, sim.State().BoltLocked)

	require.Equal(t, protocol.ResultResetSuccess,
		exchange(t, client, protocol.EncodeHeader(protocol.CommandReset)))
}

// TestLockLink_LockUnconfirmed checks that a jammed bolt yields no reply.
func TestLockLink_LockUnconfirmed(t *testing.T) {
	t.Parallel()

	client, _, sim := startLink(t)

	// Open the bolt through the relay, then jam the sensor.
	require.NoError(t, sim.PulseRelay(context.Background()))
	require.Equal(t, protocol.ResultResetSuccess,
		exchange(t, client, protocol.EncodeHeader(protocol.CommandReset)))

	sim.Jam(true)

	_, ok, err := client.Exchange(context.Background(), protocol.EncodeHeader(protocol.CommandLock), 200*time.Millisecond)
	require.NoError(t, err)
	require.False(t, ok)

	st, err := client.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.StatusUnusable.String(), st.GetFields()["status"].GetStringValue())
}

// TestLockLink_SendValidation covers frames refused before the lock sees them.
func TestLockLink_SendValidation(t *testing.T) {
	t.Parallel()

	_, conn, _ := startLink(t, intake.WithRateLimit(0.001, 1))
	ctx := context.Background()

	err := conn.Invoke(ctx, locklink.SendFullMethodName, wrapperspb.Bytes(nil), new(emptypb.Empty))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	big := make([]byte, intake.MaxFrameLen+1)
	err = conn.Invoke(ctx, locklink.SendFullMethodName, wrapperspb.Bytes(big), new(emptypb.Empty))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	ready := protocol.EncodeHeader(protocol.CommandAppReady)

	err = conn.Invoke(ctx, locklink.SendFullMethodName, wrapperspb.Bytes(ready), new(emptypb.Empty))
	require.NoError(t, err)

	err = conn.Invoke(ctx, locklink.SendFullMethodName, wrapperspb.Bytes(ready), new(emptypb.Empty))
	require.Equal(t, codes.ResourceExhausted, status.Code(err))
}

// TestRecordToStruct checks wire rendering of the code table.
func TestRecordToStruct(t *testing.T) {
	t.Parallel()

	r := domain.NewRecord(domain.StatusLocked)
	r.ReplaceCodes([]byte{7}, protocol.DeviceID{}, protocol.Stamp{})

	st, err := locklink.RecordToStruct(r)
	require.NoError(t, err)

	slots := st.GetFields()["codes"].GetListValue().GetValues()
	require.Len(t, slots, protocol.MaxCodes)
	require.InDelta(t, 7, slots[0].GetNumberValue(), 0)
	require.InDelta(t, float64(protocol.SentinelCode), slots[1].GetNumberValue(), 0)
	require.Empty(t, st.GetFields()["bound_device"].GetStringValue())

	empty, err := locklink.RecordToStruct(nil)
	require.NoError(t, err)
	require.Empty(t, empty.GetFields())
}

// chattySink answers every frame with a supervisor report before the real
// reply, and records the actor each frame arrived with.
type chattySink struct {
	// results receives the published codes.
	results *hub.Hub
	// reply is published after the supervisor report.
	reply protocol.Result
	// actors collects ActorFromContext per delivered frame.
	actors chan string
}

func (s *chattySink) Deliver(ctx context.Context, _ []byte) error {
	s.actors <- locklink.ActorFromContext(ctx)

	if err := s.results.SendResult(ctx, protocol.ResultLockFail); err != nil {
		return err
	}

	return s.results.SendResult(ctx, s.reply)
}

// TestLockLink_ExchangeSkipsForeignResults checks that a supervisor report
// racing ahead of the reply is not taken as the answer.
func TestLockLink_ExchangeSkipsForeignResults(t *testing.T) {
	t.Parallel()

	results := hub.New()
	sink := &chattySink{results: results, reply: protocol.ResultUnlockSuccess, actors: make(chan string, 4)}
	core := lock.New(hal.NewSimulator(), results)

	conn := serve(t, locklink.NewServer(sink, results, core))
	client := common.NewClient(conn, common.WithCallTimeout(waitTime),
		common.WithActor(common.Actor{Hostname: "porch", Username: "alice"}))

	unlock := protocol.EncodeUnlock(22, phone(t), protocol.Stamp{Years: 26, Months: 1, Days: 1})
	require.Equal(t, protocol.ResultUnlockSuccess, exchange(t, client, unlock))
	require.Equal(t, "alice@porch", <-sink.actors)

	// A lock frame never accepts lock_fail, so only the deadline ends the wait.
	_, ok, err := client.Exchange(context.Background(), protocol.EncodeHeader(protocol.CommandLock), 200*time.Millisecond)
	require.NoError(t, err)
	require.False(t, ok)
}

// TestActorFromContext covers calls with and without actor metadata.
func TestActorFromContext(t *testing.T) {
	t.Parallel()

	require.Empty(t, locklink.ActorFromContext(context.Background()))

	ctx := metadata.NewIncomingContext(context.Background(),
		metadata.Pairs(locklink.ActorHeader, "bob@garage"))
	require.Equal(t, "bob@garage", locklink.ActorFromContext(ctx))
}
