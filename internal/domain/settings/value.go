package settings

import (
	"fmt"
	"strconv"
)

// Value is a decoded setting value tagged with its key and kind.
// Exactly one of the int and bool payloads is meaningful, depending on Kind.
type Value struct {
	// Name is the schema identifier the value belongs to.
	Name string
	// Kind tells which payload is set.
	Kind Kind

	i int
	b bool
}

// IntValue builds an integer value for the named key.
func IntValue(name string, v int) Value {
	return Value{Name: name, Kind: KindInt, i: v}
}

// BoolValue builds a boolean value for the named key.
func BoolValue(name string, v bool) Value {
	return Value{Name: name, Kind: KindBool, b: v}
}

// Int returns the integer payload and whether the value holds one.
func (v Value) Int() (int, bool) {
	return v.i, v.Kind == KindInt
}

// Bool returns the boolean payload and whether the value holds one.
func (v Value) Bool() (bool, bool) {
	return v.b, v.Kind == KindBool
}

// Key returns the known key the value belongs to.
func (v Value) Key() (Key, error) {
	return ParseKey(v.Name)
}

// String renders the payload only.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.Itoa(v.i)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return "<invalid>"
	}
}

// ParseValue converts command-line text into a value of the key's kind.
func ParseValue(key Key, text string) (Value, error) {
	switch key.Kind() {
	case KindBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return Value{}, fmt.Errorf("%s expects a boolean, got %q: %w", key, text, ErrInvalidArgument)
		}

		return BoolValue(key.String(), b), nil
	default:
		i, err := strconv.Atoi(text)
		if err != nil {
			return Value{}, fmt.Errorf("%s expects an integer, got %q: %w", key, text, ErrInvalidArgument)
		}

		return IntValue(key.String(), i), nil
	}
}

// Snapshot holds every setting read at one moment.
type Snapshot struct {
	// Delay is the timer delay in minutes.
	Delay int
	// ElapsedTime is the elapsed-time counter.
	ElapsedTime int
	// Forced tells whether the action is forced.
	Forced bool
	// Action selects what happens when the timer elapses.
	Action int
}

// Values returns the snapshot as tagged values in key order.
func (s Snapshot) Values() []Value {
	return []Value{
		IntValue(Delay.String(), s.Delay),
		IntValue(ElapsedTime.String(), s.ElapsedTime),
		BoolValue(Forced.String(), s.Forced),
		IntValue(Action.String(), s.Action),
	}
}
