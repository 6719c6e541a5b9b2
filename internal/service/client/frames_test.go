package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/smartlock/internal/protocol"
)

// TestParseCodes covers list parsing and range checks.
func TestParseCodes(t *testing.T) {
	t.Parallel()

	got, err := ParseCodes("11, 22,33")
	require.NoError(t, err)
	require.Equal(t, []byte{11, 22, 33}, got)

	got, err = ParseCodes("")
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = ParseCodes("0,254")
	require.NoError(t, err)
	require.Equal(t, []byte{0, 254}, got)

	_, err = ParseCodes("-1")
	require.ErrorIs(t, err, errCodeRange)

	_, err = ParseCodes("1,255")
	require.ErrorIs(t, err, errCodeRange)

	_, err = ParseCodes("1,x")
	require.Error(t, err)
}

// TestUnlockFrame builds frames the lock can decode.
func TestUnlockFrame(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.October, 18, 9, 5, 0, 0, time.UTC)

	frame, err := UnlockFrame("42", "android-phone-aa", "", now)
	require.NoError(t, err)

	req, err := protocol.DecodeUnlock(frame)
	require.NoError(t, err)
	require.Equal(t, byte(42), req.Code)
	require.Equal(t, "android-phone-aa", req.Device.String())
	require.Equal(t, "2610180905", req.Stamp.String())

	frame, err = UnlockFrame("42", "android-phone-aa", "2701010000", now)
	require.NoError(t, err)

	req, err = protocol.DecodeUnlock(frame)
	require.NoError(t, err)
	require.Equal(t, "2701010000", req.Stamp.String())

	_, err = UnlockFrame("42", "short", "", now)
	require.Error(t, err)

	_, err = UnlockFrame("42", "android-phone-aa", "2701", now)
	require.Error(t, err)
}

// TestUpdateFrame builds update frames and rejects bad input.
func TestUpdateFrame(t *testing.T) {
	t.Parallel()

	frame, err := UpdateFrame("1,2,3", "6f1c1e0c-4b7e-4f53-9a51-2d8c3f1a0b77", "2612312359")
	require.NoError(t, err)

	req, err := protocol.DecodeUpdate(frame)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, req.Codes)
	require.Equal(t, "2612312359", req.Expiry.String())

	_, err = UpdateFrame("1,2,3,4,5,6,7,8,9,10,11", "android-phone-aa", "2612312359")
	require.Error(t, err)

	_, err = UpdateFrame("1", "android-phone-aa", "later")
	require.Error(t, err)
}

// TestFormatResult renders name and hex.
func TestFormatResult(t *testing.T) {
	t.Parallel()

	require.Equal(t, "unlock_success (0x11)", FormatResult(protocol.ResultUnlockSuccess))
}
