// Package settings implements the gRPC transport for the timer settings.
//
// The service is described by hand with protobuf well-known types, so no
// generated code is needed: settings travel as google.protobuf.Struct maps
// from key name to value. The package provides the service descriptor, a
// typed client, the server adapter over the settings store and the codec
// between wire structs and domain values.
package settings
