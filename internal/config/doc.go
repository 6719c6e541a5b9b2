// Package config defines settings used by the lock binaries and provides
// helpers to load, validate and save them in YAML format.
//
// Validate fills zero values with defaults, so a file only needs the
// LockLink server address.
package config
