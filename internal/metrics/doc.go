// Package metrics exposes lock counters and state gauges to Prometheus.
//
// Every metric lives on a private registry so that several daemons, or
// tests, can run in one process.
package metrics
