package protocol

import (
	"errors"
	"fmt"
)

const (
	// MaxCodes is the capacity of the lock's access code table.
	MaxCodes = 10
	// SentinelCode marks an empty slot on the wire and is never a valid code.
	SentinelCode byte = 0xFF
	// HeaderLen is the command byte plus the length/count byte.
	HeaderLen = 2
	// UnlockFrameLen is the minimum size of an unlock frame.
	UnlockFrameLen = unlockStampOffset + StampLen

	unlockCodeOffset   = 2
	unlockDeviceOffset = 3
	unlockStampOffset  = unlockDeviceOffset + DeviceIDLen
	updateCodesOffset  = 2
)

var (
	// ErrEmptyFrame is returned for a zero-length frame.
	ErrEmptyFrame = errors.New("empty frame")
	// ErrFrameTooShort is returned when a frame ends before a required field.
	ErrFrameTooShort = errors.New("frame too short")
	// ErrTooManyCodes is returned when an update declares more codes than the table holds.
	ErrTooManyCodes = errors.New("too many access codes")
	// ErrReservedCode is returned when an update carries the sentinel byte as a code.
	ErrReservedCode = errors.New("access code uses the reserved sentinel value")
)

// UnlockFrame is a decoded unlock request.
type UnlockFrame struct {
	// Code is the presented access code.
	Code byte
	// Device is the presenting device.
	Device DeviceID
	// Stamp is the peer's current time.
	Stamp Stamp
}

// UpdateFrame is a decoded code update.
type UpdateFrame struct {
	// Codes are the new access codes in slot order.
	Codes []byte
	// Device is the device id carried by the update.
	Device DeviceID
	// Expiry is the new validity ceiling.
	Expiry Stamp
}

// CommandOf returns the normalized command byte of a frame.
func CommandOf(frame []byte) (Command, error) {
	if len(frame) == 0 {
		return 0, ErrEmptyFrame
	}

	return Command(ParseHeaderByte(frame[0])), nil
}

// DecodeUnlock parses an unlock frame:
// [0]=cmd [1]=len [2]=code [3:19]=device [19:29]=stamp.
func DecodeUnlock(frame []byte) (UnlockFrame, error) {
	if len(frame) < UnlockFrameLen {
		return UnlockFrame{}, fmt.Errorf("unlock frame needs %d bytes, got %d: %w",
			UnlockFrameLen, len(frame), ErrFrameTooShort)
	}

	device, err := DeviceIDFromBytes(frame[unlockDeviceOffset:unlockStampOffset])
	if err != nil {
		return UnlockFrame{}, err
	}

	stamp, err := DecodeStamp(frame[unlockStampOffset:UnlockFrameLen])
	if err != nil {
		return UnlockFrame{}, fmt.Errorf("unlock stamp: %w", err)
	}

	return UnlockFrame{
		Code:   frame[unlockCodeOffset],
		Device: device,
		Stamp:  stamp,
	}, nil
}

// UpdateFrameLen returns the minimum frame size for an update carrying n codes.
func UpdateFrameLen(n int) int {
	return updateCodesOffset + n + DeviceIDLen + StampLen
}

// DecodeUpdate parses an update frame:
// [0]=cmd [1]=n [2:2+n]=codes [2+n:18+n]=device [18+n:28+n]=stamp.
// For the usual three-code frame the device id lands at offset 5 and the
// stamp at offset 21.
func DecodeUpdate(frame []byte) (UpdateFrame, error) {
	if len(frame) < HeaderLen {
		return UpdateFrame{}, fmt.Errorf("update header: %w", ErrFrameTooShort)
	}

	n := CountOf(frame)
	if n > MaxCodes {
		return UpdateFrame{}, fmt.Errorf("declared %d codes, capacity %d: %w", n, MaxCodes, ErrTooManyCodes)
	}

	if need := UpdateFrameLen(n); len(frame) < need {
		return UpdateFrame{}, fmt.Errorf("update frame with %d codes needs %d bytes, got %d: %w",
			n, need, len(frame), ErrFrameTooShort)
	}

	codes := make([]byte, n)
	copy(codes, frame[updateCodesOffset:updateCodesOffset+n])

	for i, code := range codes {
		if code == SentinelCode {
			return UpdateFrame{}, fmt.Errorf("code #%d: %w", i, ErrReservedCode)
		}
	}

	deviceOffset := updateCodesOffset + n
	stampOffset := deviceOffset + DeviceIDLen

	device, err := DeviceIDFromBytes(frame[deviceOffset:stampOffset])
	if err != nil {
		return UpdateFrame{}, err
	}

	expiry, err := DecodeStamp(frame[stampOffset : stampOffset+StampLen])
	if err != nil {
		return UpdateFrame{}, fmt.Errorf("update expiry: %w", err)
	}

	return UpdateFrame{
		Codes:  codes,
		Device: device,
		Expiry: expiry,
	}, nil
}

// EncodeUnlock builds an unlock frame.
func EncodeUnlock(code byte, device DeviceID, stamp Stamp) []byte {
	frame := make([]byte, 0, UnlockFrameLen)
	frame = append(frame, byte(CommandUnlock), 1, code)
	frame = append(frame, device[:]...)

	return append(frame, stamp.Encode()...)
}

// EncodeUpdate builds an update frame.
func EncodeUpdate(codes []byte, device DeviceID, expiry Stamp) ([]byte, error) {
	if len(codes) > MaxCodes {
		return nil, fmt.Errorf("encode %d codes: %w", len(codes), ErrTooManyCodes)
	}

	frame := make([]byte, 0, UpdateFrameLen(len(codes)))
	frame = append(frame, byte(CommandUpdateCodes), byte(len(codes)))
	frame = append(frame, codes...)
	frame = append(frame, device[:]...)

	return append(frame, expiry.Encode()...), nil
}

// EncodeHeader builds a header-only frame (lock, app ready, reset).
func EncodeHeader(cmd Command) []byte {
	return []byte{byte(cmd), 0}
}
