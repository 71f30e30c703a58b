package backend

import "google.golang.org/protobuf/types/known/structpb"

// Handler receives the new value of a changed key.
type Handler func(key string, value *structpb.Value)

// Backend defines the storage operations the settings store depends on.
type Backend interface {
	// Int returns the integer stored for key, or its default.
	Int(key string) int
	// Bool returns the boolean stored for key, or its default.
	Bool(key string) bool
	// Default returns the schema default of key, nil for unknown keys.
	Default(key string) *structpb.Value
	// SetInt stores value for key and reports whether the write was accepted.
	SetInt(key string, value int) bool
	// SetBool stores value for key and reports whether the write was accepted.
	SetBool(key string, value bool) bool
	// IsWritable reports whether a write to key would be permitted right now.
	IsWritable(key string) bool
	// Connect registers handler for changes of key. Handlers are never removed.
	Connect(key string, handler Handler)
	// Sync makes pending writes durable before returning.
	Sync() error
}
