// Package lock contains the lock record: bolt status, access code slots,
// expiry ceiling and device binding.
//
// Record methods implement the record-level invariants (exactly one slot is
// consumed per redemption, the valid count never exceeds capacity). Clone
// helpers hand out copies so callers never alias the live record.
package lock
