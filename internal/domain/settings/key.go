package settings

import "fmt"

// Key identifies one of the timer settings.
type Key int

// Known keys. Their string identifiers are fixed by the schema.
const (
	Delay Key = iota + 1
	ElapsedTime
	Forced
	Action
)

// Kind is the storage type of a key.
type Kind int

// Storage types supported by the schema.
const (
	KindInt Kind = iota + 1
	KindBool
)

// Keys lists every known key in declaration order.
func Keys() []Key {
	return []Key{Delay, ElapsedTime, Forced, Action}
}

// String returns the schema identifier of the key.
func (k Key) String() string {
	switch k {
	case Delay:
		return "delay"
	case ElapsedTime:
		return "elapsed-time"
	case Forced:
		return "forced"
	case Action:
		return "action"
	default:
		return fmt.Sprintf("Key(%d)", int(k))
	}
}

// Kind returns the storage type of the key.
func (k Key) Kind() Kind {
	if k == Forced {
		return KindBool
	}

	return KindInt
}

// Valid reports whether k is one of the known keys.
func (k Key) Valid() bool {
	return k >= Delay && k <= Action
}

// ParseKey maps a schema identifier back to its Key.
func ParseKey(name string) (Key, error) {
	for _, k := range Keys() {
		if k.String() == name {
			return k, nil
		}
	}

	return 0, fmt.Errorf("unknown key %q: %w", name, ErrInvalidArgument)
}

// String returns the schema type name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}
