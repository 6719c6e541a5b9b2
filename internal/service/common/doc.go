// Package common holds helpers shared by the lock daemon and its CLI.
//
// It provides a LockLink gRPC client with call timeouts, result streaming
// and a send-and-wait Exchange helper.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
