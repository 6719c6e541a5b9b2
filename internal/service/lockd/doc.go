// Package lockd runs the lock daemon.
//
// It builds the lock core on top of the configured hardware driver, serves
// LockLink over gRPC, optionally bridges frames through NATS and exposes
// Prometheus metrics, and drives the lock confirmation supervisor from a
// fixed-period ticker.
package lockd
