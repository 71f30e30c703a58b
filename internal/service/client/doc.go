// Package client implements the command-line operations of timer-settings:
// reading, writing, resetting and watching settings through the daemon.
package client
