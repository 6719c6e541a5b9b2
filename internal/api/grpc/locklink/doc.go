// Package locklink implements the gRPC transport between the lock and its peers.
//
// The service carries raw command frames in, streams one-byte result codes
// out, and exposes the current lock record for diagnostics. It is declared
// over protobuf well-known types, so no generated stubs are needed.
package locklink
