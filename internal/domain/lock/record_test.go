package lock

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/smartlock/internal/protocol"
)

// TestRecordClone verifies Clone copies values and handles nil safely.
func TestRecordClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*Record)(nil).Clone())

	r := NewRecord(StatusLocked)
	r.ReplaceCodes([]byte{1, 2}, protocol.DeviceID{1}, protocol.Stamp{Years: 26})

	c := r.Clone()
	require.Equal(t, r, c)
	require.NotSame(t, r, c)

	// Mutating the clone leaves the source alone.
	c.ConsumeSlot(0)
	require.True(t, r.Codes[0].Valid)
	require.Equal(t, 2, r.ValidCodeCount)
}

// TestRecordConsume checks that redemption clears exactly one slot once.
func TestRecordConsume(t *testing.T) {
	t.Parallel()

	r := NewRecord(StatusLocked)
	r.ReplaceCodes([]byte{5, 7, 5}, protocol.DeviceID{}, protocol.Stamp{})
	require.True(t, r.Provisioned)
	require.Equal(t, 3, r.ValidCodeCount)

	i := r.FindCode(5)
	require.Equal(t, 0, i)
	require.True(t, r.ConsumeSlot(i))
	require.Equal(t, 2, r.ValidCodeCount)

	// Duplicate code is still redeemable from its second slot.
	require.Equal(t, 2, r.FindCode(5))

	// Consuming an empty slot is a no-op.
	require.False(t, r.ConsumeSlot(0))
	require.False(t, r.ConsumeSlot(protocol.MaxCodes))
	require.Equal(t, 2, r.ValidCodeCount)

	require.Equal(t, -1, r.FindCode(protocol.SentinelCode))
	require.Equal(t,
		[]byte{0xFF, 7, 5, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		r.WireCodes())
}

// TestStatusHelpers covers commanded position and status reports.
func TestStatusHelpers(t *testing.T) {
	t.Parallel()

	require.Equal(t, StatusLocked, StatusUnusable.Commanded())
	require.Equal(t, StatusUnlocked, StatusUnlocked.Commanded())
	require.Equal(t, protocol.ResultStatusUnusable, StatusUnusable.Report())
	require.Equal(t, protocol.ResultStatusLocked, StatusLocked.Report())
	require.Equal(t, "unlocked", StatusUnlocked.String())
}
