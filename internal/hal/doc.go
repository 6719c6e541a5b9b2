// Package hal provides lock.Hardware implementations.
//
// Simulator models a toggle relay driving a bolt with a seat sensor and a
// beeper. It backs the daemon and the transport tests.
package hal
