// Package schema loads settings schemas: the declaration of which keys exist,
// their storage types, defaults and whether they are locked.
//
// Schemas are YAML files named "<id>.schema.yaml" inside a schema directory
// shipped next to the binaries.
package schema
