// Package common holds helpers shared by the daemon and the command-line
// client.
//
// It provides a gRPC client wrapper for the settings service with per-call
// timeouts, and the single-instance guard used by the daemon.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
