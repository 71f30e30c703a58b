// Package config defines the settings shared by the timer binaries and
// provides helpers to load, validate and save them in YAML format.
//
// The Config type locates the schema directory and the store document for
// the daemon, and the daemon address for the command-line client.
package config
