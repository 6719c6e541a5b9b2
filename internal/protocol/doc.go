// Package protocol defines the smart lock wire vocabulary shared by the lock
// daemon and its peers.
//
// It holds command and result bytes, the yymmddhhmm expiry stamp with its
// per-field comparison, device identifiers, and encoders/decoders for the
// command frames carried over any transport.
package protocol
