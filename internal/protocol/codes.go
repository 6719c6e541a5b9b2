package protocol

import "fmt"

// Command is the first byte of every inbound frame.
type Command byte

// Commands understood by the lock.
const (
	// CommandUnlock redeems an access code.
	CommandUnlock Command = 0x00
	// CommandLock drives the bolt closed and waits for sensor confirmation.
	CommandLock Command = 0x01
	// CommandUpdateCodes replaces the access code set and expiry.
	CommandUpdateCodes Command = 0x02
	// CommandAppReady is the peer handshake.
	CommandAppReady Command = 0x03
	// CommandReset reinitializes the lock record.
	CommandReset Command = 0x04
)

// String implements fmt.Stringer.
func (c Command) String() string {
	switch c {
	case CommandUnlock:
		return "unlock"
	case CommandLock:
		return "lock"
	case CommandUpdateCodes:
		return "update_codes"
	case CommandAppReady:
		return "app_ready"
	case CommandReset:
		return "reset"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(c))
	}
}

// Known reports whether c is one of the defined commands.
func (c Command) Known() bool {
	return c <= CommandReset
}

// Expects reports whether r is a reply the lock can give to c. Supervisor
// reports (lock_fail, a late lock_success) are not replies to a command.
func (c Command) Expects(r Result) bool {
	switch c {
	case CommandUnlock:
		switch r {
		case ResultUnlockSuccess, ResultCodeInvalid, ResultCodeExhausted,
			ResultDeviceMismatch, ResultCodeExpired, ResultUnlockMismatch:
			return true
		default:
			return false
		}
	case CommandLock:
		return r == ResultLockSuccess
	case CommandUpdateCodes:
		return r == ResultUpdateSuccess || r == ResultCodeInvalid
	case CommandAppReady:
		return r == ResultDeviceNeedsUpdate || r.IsStatusReport()
	case CommandReset:
		return r == ResultResetSuccess
	default:
		return false
	}
}

// Result is the single byte sent back to the peer.
type Result byte

// Result codes. Status reports (0xD0..0xD2) answer the AppReady handshake.
const (
	ResultLockSuccess       Result = 0x10
	ResultUnlockSuccess     Result = 0x11
	ResultUpdateSuccess     Result = 0x12
	ResultResetSuccess      Result = 0x13
	ResultDeviceNeedsUpdate Result = 0x14
	ResultCodeExhausted     Result = 0x15
	ResultUnlockMismatch    Result = 0x16
	ResultLockFail          Result = 0x17
	ResultCodeExpired       Result = 0x18
	ResultCodeInvalid       Result = 0x19
	ResultDeviceMismatch    Result = 0x1A

	ResultStatusLocked   Result = 0xD0
	ResultStatusUnlocked Result = 0xD1
	ResultStatusUnusable Result = 0xD2
)

// resultNames maps result codes to their log and CLI names.
//
//nolint:gochecknoglobals // Read-only lookup table.
var resultNames = map[Result]string{
	ResultLockSuccess:       "lock_success",
	ResultUnlockSuccess:     "unlock_success",
	ResultUpdateSuccess:     "update_success",
	ResultResetSuccess:      "reset_success",
	ResultDeviceNeedsUpdate: "device_needs_update",
	ResultCodeExhausted:     "code_exhausted",
	ResultUnlockMismatch:    "unlock_mismatch",
	ResultLockFail:          "lock_fail",
	ResultCodeExpired:       "code_expired",
	ResultCodeInvalid:       "code_invalid",
	ResultDeviceMismatch:    "device_mismatch",
	ResultStatusLocked:      "status_locked",
	ResultStatusUnlocked:    "status_unlocked",
	ResultStatusUnusable:    "status_unusable",
}

// String implements fmt.Stringer.
func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}

	return fmt.Sprintf("unknown(0x%02x)", byte(r))
}

// Success reports whether r acknowledges a completed operation.
func (r Result) Success() bool {
	switch r {
	case ResultLockSuccess, ResultUnlockSuccess, ResultUpdateSuccess, ResultResetSuccess:
		return true
	default:
		return false
	}
}

// IsStatusReport reports whether r is one of the AppReady status bytes.
func (r Result) IsStatusReport() bool {
	return r >= ResultStatusLocked && r <= ResultStatusUnusable
}

// AllResults lists every defined result code in wire order.
func AllResults() []Result {
	return []Result{
		ResultLockSuccess,
		ResultUnlockSuccess,
		ResultUpdateSuccess,
		ResultResetSuccess,
		ResultDeviceNeedsUpdate,
		ResultCodeExhausted,
		ResultUnlockMismatch,
		ResultLockFail,
		ResultCodeExpired,
		ResultCodeInvalid,
		ResultDeviceMismatch,
		ResultStatusLocked,
		ResultStatusUnlocked,
		ResultStatusUnusable,
	}
}

// ParseHeaderByte normalizes a header byte (command or count).
// The Android peer sends these as ASCII digits, so '0'..':' map to 0..10;
// any other value is returned unchanged. Use CountOf for the count byte.
func ParseHeaderByte(b byte) byte {
	if b >= '0' && b <= '0'+MaxCodes {
		return b - '0'
	}

	return b
}

// CountOf decodes the count byte of a frame. It is read as an ASCII digit
// only when the command byte was ASCII too; a raw frame keeps the raw count,
// so 0x30 there means 48 codes.
func CountOf(frame []byte) int {
	if frame[0] >= '0' {
		return int(ParseHeaderByte(frame[1]))
	}

	return int(frame[1])
}
