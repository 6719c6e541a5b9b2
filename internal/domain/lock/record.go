package lock

import "github.com/oshokin/smartlock/internal/protocol"

// Slot is one entry of the access code table. An empty slot has Valid unset.
type Slot struct {
	// Code is the access code byte; meaningless when Valid is false.
	Code byte
	// Valid reports whether the slot still holds a redeemable code.
	Valid bool
}

// Record is the whole mutable state of one lock.
type Record struct {
	// Status is the logical bolt state.
	Status Status
	// AlarmCount counts consecutive unconfirmed lock polls.
	AlarmCount int
	// ValidCodeCount is the number of redeemable codes.
	ValidCodeCount int
	// Codes is the fixed-capacity access code table.
	Codes [protocol.MaxCodes]Slot
	// Expiry is the validity ceiling set by the last update.
	Expiry protocol.Stamp
	// BoundDevice is the device allowed to unlock once DeviceBound is set.
	BoundDevice protocol.DeviceID
	// DeviceBound is set by the first successful unlock and cleared only by a reset.
	DeviceBound bool
	// BeepOn mirrors the last commanded beeper level.
	BeepOn bool
	// Busy is set while a command is being processed.
	Busy bool
	// Provisioned is set once an update has been accepted since the last reset.
	Provisioned bool
}

// NewRecord returns a cleared record with every slot empty.
func NewRecord(status Status) *Record {
	return &Record{Status: status}
}

// Clone returns a copy of the record. All fields are values, so a shallow
// copy never aliases the original.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	cloned := *r

	return &cloned
}

// ClearCodes empties every slot and zeroes the valid count.
func (r *Record) ClearCodes() {
	r.ValidCodeCount = 0

	for i := range r.Codes {
		r.Codes[i] = Slot{}
	}
}

// ReplaceCodes installs a new code set. The caller validates len(codes)
// against the capacity; extra codes are ignored.
func (r *Record) ReplaceCodes(codes []byte, device protocol.DeviceID, expiry protocol.Stamp) {
	r.ClearCodes()

	n := min(len(codes), len(r.Codes))
	for i := range n {
		r.Codes[i] = Slot{Code: codes[i], Valid: true}
	}

	r.ValidCodeCount = n
	r.BoundDevice = device
	r.Expiry = expiry
	r.Provisioned = true
}

// FindCode returns the index of the first valid slot holding code, or -1.
func (r *Record) FindCode(code byte) int {
	for i, slot := range r.Codes {
		if slot.Valid && slot.Code == code {
			return i
		}
	}

	return -1
}

// ConsumeSlot empties slot i and decrements the valid count exactly once.
// It reports false if the slot was already empty.
func (r *Record) ConsumeSlot(i int) bool {
	if i < 0 || i >= len(r.Codes) || !r.Codes[i].Valid {
		return false
	}

	r.Codes[i] = Slot{}
	r.ValidCodeCount--

	return true
}

// WireCodes renders the table with the 0xFF sentinel in empty slots.
func (r *Record) WireCodes() []byte {
	out := make([]byte, len(r.Codes))

	for i, slot := range r.Codes {
		if slot.Valid {
			out[i] = slot.Code
		} else {
			out[i] = protocol.SentinelCode
		}
	}

	return out
}
