package lock

import "github.com/oshokin/smartlock/internal/protocol"

// Status is the logical bolt state.
type Status int

const (
	// StatusLocked means the bolt is closed and confirmed by the sensor.
	StatusLocked Status = iota
	// StatusUnlocked means the bolt was released.
	StatusUnlocked
	// StatusUnusable means a lock was commanded but not yet confirmed.
	StatusUnusable
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusLocked:
		return "locked"
	case StatusUnlocked:
		return "unlocked"
	case StatusUnusable:
		return "unusable"
	default:
		return "unknown"
	}
}

// Commanded returns the bolt position last driven by the relay.
// An unconfirmed lock was still commanded closed.
func (s Status) Commanded() Status {
	if s == StatusUnusable {
		return StatusLocked
	}

	return s
}

// Report returns the status byte sent in answer to the handshake.
func (s Status) Report() protocol.Result {
	switch s {
	case StatusUnlocked:
		return protocol.ResultStatusUnlocked
	case StatusUnusable:
		return protocol.ResultStatusUnusable
	default:
		return protocol.ResultStatusLocked
	}
}
