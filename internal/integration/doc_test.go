// Package integration runs the daemon and the client against each other
// over real sockets and on-disk documents.
package integration
