// Package settings implements the timer settings store: typed, validated
// accessors for the delay, elapsed-time, forced and action keys on top of a
// backend.Backend, and subscriptions to their changes.
//
// Every setter checks the value range, then the key writability, then writes
// and flushes. Failures are reported with the sentinel errors of the domain
// package and never retried.
package settings
