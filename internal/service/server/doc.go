// Package server runs the settings daemon: it opens the settings store,
// follows edits of the store document made by other processes and serves
// the settings over gRPC until the context is canceled.
package server
