package protocol

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// DeviceIDLen is the size of a device identifier on the wire.
const DeviceIDLen = 16

// ErrBadDeviceID is returned when a textual device id cannot be parsed.
var ErrBadDeviceID = errors.New("device id must be a UUID or exactly 16 characters")

// DeviceID identifies the phone (or other peer) presenting a code.
type DeviceID [DeviceIDLen]byte

// ParseDeviceID accepts either a canonical UUID or a raw 16-character string
// such as an Android ANDROID_ID.
func ParseDeviceID(s string) (DeviceID, error) {
	var id DeviceID

	if len(s) == DeviceIDLen {
		copy(id[:], s)

		return id, nil
	}

	parsed, err := uuid.Parse(s)
	if err != nil {
		return id, fmt.Errorf("parse %q: %w", s, ErrBadDeviceID)
	}

	copy(id[:], parsed[:])

	return id, nil
}

// DeviceIDFromBytes copies the first DeviceIDLen bytes of b.
func DeviceIDFromBytes(b []byte) (DeviceID, error) {
	var id DeviceID

	if len(b) < DeviceIDLen {
		return id, fmt.Errorf("device id needs %d bytes, got %d: %w", DeviceIDLen, len(b), ErrFrameTooShort)
	}

	copy(id[:], b[:DeviceIDLen])

	return id, nil
}

// Equal compares two ids byte for byte.
func (d DeviceID) Equal(other DeviceID) bool {
	return bytes.Equal(d[:], other[:])
}

// IsZero reports whether no id has been recorded.
func (d DeviceID) IsZero() bool {
	return d == DeviceID{}
}

// String renders printable ids verbatim and anything else as hex.
func (d DeviceID) String() string {
	for _, b := range d {
		if b < 0x20 || b > 0x7E {
			return hex.EncodeToString(d[:])
		}
	}

	return string(d[:])
}
