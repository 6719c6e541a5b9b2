// Package lock is the access-control core of the smart lock.
//
// A Controller owns the lock record and exposes two entry points: HandleCommand
// for inbound frames and Poll for the fixed-period lock confirmation tick.
// Pins and the result channel sit behind the Hardware and Sender interfaces.
package lock
