package integration

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/smartlock/internal/config"
	"github.com/oshokin/smartlock/internal/protocol"
	"github.com/oshokin/smartlock/internal/service/client"
	"github.com/oshokin/smartlock/internal/service/common"
	"github.com/oshokin/smartlock/internal/service/lockd"
)

// startDaemon starts lockd with a temporary config and returns its path and
// a stop function that waits for Run to return.
func startDaemon(t *testing.T, addr string) (cfgPath string, stop func()) {
	t.Helper()

	// Create cancellable context for daemon lifecycle.
	ctx, cancel := context.WithCancel(context.Background())
	cfgPath = filepath.Join(t.TempDir(), "settings.yaml")

	// Create temporary configuration file.
	require.NoError(
		t,
		config.Save(cfgPath, &config.Config{
			ServerAddress: addr,
			Timeout:       3 * time.Second,
			Lock: config.LockSettings{
				PollInterval: 50 * time.Millisecond,
				SettleDelay:  time.Millisecond,
				BeepDuration: time.Millisecond,
			},
			Intake: config.IntakeSettings{RateLimit: -1},
		}),
	)

	done := make(chan error, 1)

	// Start daemon in background goroutine.
	go func() {
		done <- lockd.Run(ctx, &lockd.Options{
			ConfigPath:    cfgPath,
			ListenAddress: addr,
			KeepLogLevel:  true,
		})
	}()

	// Wait until the daemon accepts connections.
	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err != nil {
			return false
		}

		_ = conn.Close()

		return true
	}, 3*time.Second, 20*time.Millisecond)

	return cfgPath, func() {
		cancel()
		require.NoError(t, <-done)
	}
}

func freeAddress(t *testing.T) string {
	t.Helper()

	// Reserve a free port for the test daemon.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// TestGRPC_Roundtrip starts the real daemon and walks a phone session through it.
func TestGRPC_Roundtrip(t *testing.T) {
	t.Parallel()

	addr := freeAddress(t)

	_, stop := startDaemon(t, addr)
	defer stop()

	ctx := context.Background()

	// Connect to the test daemon with timeout.
	c, err := common.Dial(ctx, addr, common.WithCallTimeout(3*time.Second))
	require.NoError(t, err)

	defer func() {
		_ = c.Close()
	}()

	device, err := protocol.ParseDeviceID("android-phone-aa")
	require.NoError(t, err)

	update, err := protocol.EncodeUpdate([]byte{5, 6}, device,
		protocol.Stamp{Years: 99, Months: 12, Days: 31, Hours: 23, Minutes: 59})
	require.NoError(t, err)

	result, ok, err := c.Exchange(ctx, update, 2*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, protocol.ResultUpdateSuccess, result)

	unlock := protocol.EncodeUnlock(6, device,
		protocol.Stamp{Years: 26, Months: 10, Days: 18, Hours: 9, Minutes: 5})

	result, ok, err = c.Exchange(ctx, unlock, 2*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, protocol.ResultUnlockSuccess, result)

	// Only one code is left, which counts as exhausted.
	result, ok, err = c.Exchange(ctx, unlock, 2*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, protocol.ResultCodeExhausted, result)

	st, err := c.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, "unlocked", st.GetFields()["status"].GetStringValue())
}

// TestCLI_Send drives the lockctl helpers against the real daemon.
func TestCLI_Send(t *testing.T) {
	t.Parallel()

	addr := freeAddress(t)

	cfgPath, stop := startDaemon(t, addr)
	defer stop()

	var out bytes.Buffer

	opts := &client.Options{
		ConfigPath: cfgPath,
		Wait:       2 * time.Second,
		Out:        &out,
	}

	require.NoError(t, client.Send(context.Background(), opts, protocol.EncodeHeader(protocol.CommandAppReady)))
	require.Equal(t, client.FormatResult(protocol.ResultDeviceNeedsUpdate), strings.TrimSpace(out.String()))

	out.Reset()

	require.NoError(t, client.Status(context.Background(), opts))
	require.Contains(t, out.String(), `"status"`)
	require.Contains(t, out.String(), `"locked"`)
}
