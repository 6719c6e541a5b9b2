package protocol

import (
	"errors"
	"fmt"
	"time"
)

// StampLen is the number of digit bytes in an encoded stamp (yymmddhhmm).
const StampLen = 10

// minuteSlack is the tolerance applied to the minutes field.
const minuteSlack = 1

// ErrBadDigit is returned when a stamp byte is not a decimal digit.
var ErrBadDigit = errors.New("stamp byte is not a decimal digit")

// Stamp is a yymmddhhmm timestamp as exchanged with the peer.
type Stamp struct {
	// Years is the two-digit year.
	Years int
	// Months is the month of the year.
	Months int
	// Days is the day of the month.
	Days int
	// Hours is the hour of the day.
	Hours int
	// Minutes is the minute of the hour.
	Minutes int
}

// DecodeStamp parses StampLen digit bytes. Each digit may be sent raw (0..9)
// or as ASCII ('0'..'9').
func DecodeStamp(b []byte) (Stamp, error) {
	if len(b) < StampLen {
		return Stamp{}, fmt.Errorf("stamp needs %d bytes, got %d: %w", StampLen, len(b), ErrFrameTooShort)
	}

	var fields [StampLen / 2]int

	for i := range fields {
		hi, err := digit(b[2*i])
		if err != nil {
			return Stamp{}, err
		}

		lo, err := digit(b[2*i+1])
		if err != nil {
			return Stamp{}, err
		}

		fields[i] = hi*10 + lo
	}

	return Stamp{
		Years:   fields[0],
		Months:  fields[1],
		Days:    fields[2],
		Hours:   fields[3],
		Minutes: fields[4],
	}, nil
}

// Encode renders the stamp as ASCII digits, the form the Android peer sends.
func (s Stamp) Encode() []byte {
	return []byte(s.String())
}

// String implements fmt.Stringer.
func (s Stamp) String() string {
	return fmt.Sprintf("%02d%02d%02d%02d%02d", s.Years%100, s.Months%100, s.Days%100, s.Hours%100, s.Minutes%100)
}

// StampFromTime converts t the way the peer formats "yyMMddHHmm".
func StampFromTime(t time.Time) Stamp {
	return Stamp{
		Years:   t.Year() % 100,
		Months:  int(t.Month()),
		Days:    t.Day(),
		Hours:   t.Hour(),
		Minutes: t.Minute(),
	}
}

// ParseStamp parses the textual yymmddhhmm form.
func ParseStamp(s string) (Stamp, error) {
	if len(s) != StampLen {
		return Stamp{}, fmt.Errorf("stamp %q must have %d digits: %w", s, StampLen, ErrBadDigit)
	}

	return DecodeStamp([]byte(s))
}

// Within reports whether s passes the expiry check against the stored ceiling.
//
// The fields are compared independently, with no carry between them: years
// and months are each checked on their own, then days, then hours, then
// minutes with one minute of slack. A presented stamp fails as soon as any
// single field is greater than its stored counterpart, so this is not a
// chronological comparison.
func (s Stamp) Within(expiry Stamp) bool {
	if s.Years > expiry.Years || s.Months > expiry.Months {
		return false
	}

	if s.Days > expiry.Days {
		return false
	}

	if s.Hours > expiry.Hours {
		return false
	}

	return s.Minutes <= expiry.Minutes+minuteSlack
}

// digit decodes a single raw or ASCII decimal digit.
func digit(b byte) (int, error) {
	switch {
	case b <= 9:
		return int(b), nil
	case b >= '0' && b <= '9':
		return int(b - '0'), nil
	default:
		return 0, fmt.Errorf("byte 0x%02x: %w", b, ErrBadDigit)
	}
}
