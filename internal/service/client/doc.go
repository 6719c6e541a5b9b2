// Package client implements the lockctl commands.
//
// Each command dials the lock daemon, subscribes to result codes, sends one
// frame and prints the first code that comes back. Frame builders turn
// command-line values into wire frames.
package client
