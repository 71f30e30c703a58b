// Package settings contains the domain types of the shutdown timer settings:
// the fixed set of keys, the typed Value delivered to change subscribers and
// the error taxonomy shared by the store and its transports.
package settings
