// Package logger wraps zap with a global sugared logger and context helpers.
//
// The lock core, transports and CLIs take a context and extract the logger
// from it (ToContext, FromContext, WithName, WithKV, WithFields), so every
// command and poll tick logs with its own scope. Output is either console
// lines or JSON objects, and the level can be changed at runtime.
package logger
