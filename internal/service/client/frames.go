package client

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oshokin/smartlock/internal/protocol"
)

// errCodeRange is returned for codes outside 0..254.
var errCodeRange = errors.New("code must be between 0 and 254")

// ParseCode parses one access code.
func ParseCode(s string) (byte, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse code %q: %w", s, err)
	}

	if n < 0 || n >= int(protocol.SentinelCode) {
		return 0, fmt.Errorf("code %d: %w", n, errCodeRange)
	}

	return byte(n), nil
}

// ParseCodes parses a comma separated list of access codes.
func ParseCodes(s string) ([]byte, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	out := make([]byte, 0, len(parts))

	for _, p := range parts {
		code, err := ParseCode(p)
		if err != nil {
			return nil, err
		}

		out = append(out, code)
	}

	return out, nil
}

// UnlockFrame builds an unlock frame. An empty at uses now.
func UnlockFrame(code, deviceID, at string, now time.Time) ([]byte, error) {
	c, err := ParseCode(code)
	if err != nil {
		return nil, err
	}

	device, err := protocol.ParseDeviceID(deviceID)
	if err != nil {
		return nil, err
	}

	stamp := protocol.StampFromTime(now)

	if at != "" {
		stamp, err = protocol.ParseStamp(at)
		if err != nil {
			return nil, fmt.Errorf("parse --at: %w", err)
		}
	}

	return protocol.EncodeUnlock(c, device, stamp), nil
}

// UpdateFrame builds a code update frame.
func UpdateFrame(codes, deviceID, expiry string) ([]byte, error) {
	parsed, err := ParseCodes(codes)
	if err != nil {
		return nil, err
	}

	device, err := protocol.ParseDeviceID(deviceID)
	if err != nil {
		return nil, err
	}

	stamp, err := protocol.ParseStamp(expiry)
	if err != nil {
		return nil, fmt.Errorf("parse --expiry: %w", err)
	}

	return protocol.EncodeUpdate(parsed, device, stamp)
}

// FormatResult renders a result code for humans.
func FormatResult(r protocol.Result) string {
	return fmt.Sprintf("%s (0x%02X)", r, byte(r))
}
