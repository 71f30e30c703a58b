package schema

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"
)

const (
	// FileSuffix is appended to a schema identifier to get its file name.
	FileSuffix = ".schema.yaml"

	// TypeInt marks an integer key.
	TypeInt = "int"
	// TypeBool marks a boolean key.
	TypeBool = "bool"
)

var (
	// ErrNotFound is returned when no schema file exists for an identifier.
	ErrNotFound = errors.New("schema not found")
	// ErrInvalid is returned when a schema file is malformed.
	ErrInvalid = errors.New("invalid schema")
)

// Key declares one settings slot.
type Key struct {
	// Name is the key identifier used by readers and writers.
	Name string `yaml:"name"`
	// Type is either TypeInt or TypeBool.
	Type string `yaml:"type"`
	// Default is the value reported while the key has never been written.
	Default any `yaml:"default"`
	// Summary is a one-line description for humans.
	Summary string `yaml:"summary,omitempty"`
	// Locked keys are never writable.
	Locked bool `yaml:"locked,omitempty"`

	defaultValue *structpb.Value
}

// DefaultValue returns the decoded default as a tagged value.
func (k *Key) DefaultValue() *structpb.Value {
	return k.defaultValue
}

// Schema is a validated set of keys.
type Schema struct {
	// ID is the schema identifier.
	ID string `yaml:"id"`
	// Keys lists the declared keys in file order.
	Keys []*Key `yaml:"keys"`

	byName map[string]*Key
}

// Key returns the declaration of the named key.
func (s *Schema) Key(name string) (*Key, bool) {
	k, ok := s.byName[name]

	return k, ok
}

// Source looks schemas up in a directory.
type Source struct {
	// dir is the directory holding schema files.
	dir string
}

// NewSource creates a Source rooted at dir.
func NewSource(dir string) *Source {
	return &Source{
		dir: filepath.Clean(dir),
	}
}

// Lookup reads and validates the schema with the given identifier.
func (s *Source) Lookup(id string) (*Schema, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("schema id %q: %w", id, ErrInvalid)
	}

	path := filepath.Join(s.dir, id+FileSuffix)

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s in %s: %w", id, s.dir, ErrNotFound)
		}

		return nil, fmt.Errorf("read schema: %w", err)
	}

	return Parse(id, contents)
}

// Parse decodes YAML schema contents and validates them against the expected id.
func Parse(id string, contents []byte) (*Schema, error) {
	var sch Schema
	if err := yaml.Unmarshal(contents, &sch); err != nil {
		return nil, fmt.Errorf("decode schema %s: %w", id, errors.Join(ErrInvalid, err))
	}

	if sch.ID != id {
		return nil, fmt.Errorf("schema declares id %q, expected %q: %w", sch.ID, id, ErrInvalid)
	}

	if err := sch.validate(); err != nil {
		return nil, err
	}

	return &sch, nil
}

// validate checks key declarations and indexes them by name.
func (s *Schema) validate() error {
	if len(s.Keys) == 0 {
		return fmt.Errorf("schema %s declares no keys: %w", s.ID, ErrInvalid)
	}

	s.byName = make(map[string]*Key, len(s.Keys))

	for _, k := range s.Keys {
		if k == nil || k.Name == "" {
			return fmt.Errorf("schema %s has a key without a name: %w", s.ID, ErrInvalid)
		}

		if _, dup := s.byName[k.Name]; dup {
			return fmt.Errorf("schema %s declares %q twice: %w", s.ID, k.Name, ErrInvalid)
		}

		value, err := decodeDefault(k)
		if err != nil {
			return fmt.Errorf("schema %s key %q: %w", s.ID, k.Name, err)
		}

		k.defaultValue = value
		s.byName[k.Name] = k
	}

	return nil
}

// decodeDefault converts the YAML default into a tagged value of the key type.
func decodeDefault(k *Key) (*structpb.Value, error) {
	switch k.Type {
	case TypeInt:
		switch v := k.Default.(type) {
		case nil:
			return structpb.NewNumberValue(0), nil
		case int:
			return structpb.NewNumberValue(float64(v)), nil
		default:
			return nil, fmt.Errorf("default %v is not an integer: %w", k.Default, ErrInvalid)
		}
	case TypeBool:
		switch v := k.Default.(type) {
		case nil:
			return structpb.NewBoolValue(false), nil
		case bool:
			return structpb.NewBoolValue(v), nil
		default:
			return nil, fmt.Errorf("default %v is not a boolean: %w", k.Default, ErrInvalid)
		}
	default:
		return nil, fmt.Errorf("unsupported type %q: %w", k.Type, ErrInvalid)
	}
}
