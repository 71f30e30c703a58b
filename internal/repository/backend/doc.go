// Package backend implements the key/value store behind the timer settings.
//
// A Backend exposes typed reads and writes, a per-key writability query, a
// change channel delivering tagged values and an explicit Sync. File is the
// on-disk implementation: a JSON document encoded with protojson, written
// atomically and watched with fsnotify so that edits made by other processes
// reach subscribers too.
package backend
