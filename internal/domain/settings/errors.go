package settings

import "errors"

var (
	// ErrInvalidArgument is returned when a value is outside of the key's
	// range or a subscription is malformed. Nothing is changed.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotWritable is returned when the backend refuses writes to a key,
	// for example because an administrator locked it.
	ErrNotWritable = errors.New("key is not writable")
	// ErrWriteFailed is returned when the backend accepted the write
	// request but could not store or flush it.
	ErrWriteFailed = errors.New("write failed")
)
