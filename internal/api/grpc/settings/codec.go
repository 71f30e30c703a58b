package settings

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/shutdown-timer/internal/domain/settings"
)

const (
	// KeyField names the key inside a change or write message.
	KeyField = "key"
	// ValueField names the value inside a change or write message.
	ValueField = "value"
)

// errNullValue marks a write message carrying a null value, i.e. a reset.
var errNullValue = errors.New("value is null")

// SnapshotToProto renders every setting as a struct keyed by name.
func SnapshotToProto(snapshot domain.Snapshot) *structpb.Struct {
	values := snapshot.Values()
	fields := make(map[string]*structpb.Value, len(values))

	for _, v := range values {
		fields[v.Name] = valueToProto(v)
	}

	return &structpb.Struct{Fields: fields}
}

// SnapshotFromProto decodes a struct produced by SnapshotToProto.
func SnapshotFromProto(msg *structpb.Struct) (domain.Snapshot, error) {
	var snapshot domain.Snapshot

	for _, key := range domain.Keys() {
		value, err := decodeValue(key, msg.GetFields()[key.String()])
		if err != nil {
			return domain.Snapshot{}, err
		}

		switch key {
		case domain.Delay:
			snapshot.Delay, _ = value.Int()
		case domain.ElapsedTime:
			snapshot.ElapsedTime, _ = value.Int()
		case domain.Forced:
			snapshot.Forced, _ = value.Bool()
		case domain.Action:
			snapshot.Action, _ = value.Int()
		}
	}

	return snapshot, nil
}

// ChangeToProto renders one value as {"key": ..., "value": ...}.
func ChangeToProto(value domain.Value) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			KeyField:   structpb.NewStringValue(value.Name),
			ValueField: valueToProto(value),
		},
	}
}

// ResetToProto renders a write message resetting key to its default.
func ResetToProto(key domain.Key) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			KeyField:   structpb.NewStringValue(key.String()),
			ValueField: structpb.NewNullValue(),
		},
	}
}

// ChangeFromProto decodes a {"key": ..., "value": ...} message. Wire values
// are dynamically typed, so non-numbers, fractions and non-booleans are
// rejected here as invalid arguments.
func ChangeFromProto(msg *structpb.Struct) (domain.Value, error) {
	name := msg.GetFields()[KeyField].GetStringValue()
	if name == "" {
		return domain.Value{}, fmt.Errorf("%s is required: %w", KeyField, domain.ErrInvalidArgument)
	}

	key, err := domain.ParseKey(name)
	if err != nil {
		return domain.Value{}, err
	}

	return decodeValue(key, msg.GetFields()[ValueField])
}

// decodeValue converts a wire value into a domain value of the key's kind.
func decodeValue(key domain.Key, value *structpb.Value) (domain.Value, error) {
	switch kind := value.GetKind().(type) {
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if key.Kind() != domain.KindInt {
			return domain.Value{}, fmt.Errorf("%s expects a boolean, got %v: %w", key, n, domain.ErrInvalidArgument)
		}

		if n != math.Trunc(n) || n < math.MinInt32 || n > math.MaxInt32 {
			return domain.Value{}, fmt.Errorf("%s expects an integer, got %v: %w", key, n, domain.ErrInvalidArgument)
		}

		return domain.IntValue(key.String(), int(n)), nil
	case *structpb.Value_BoolValue:
		if key.Kind() != domain.KindBool {
			return domain.Value{}, fmt.Errorf("%s expects an integer, got %v: %w",
				key, kind.BoolValue, domain.ErrInvalidArgument)
		}

		return domain.BoolValue(key.String(), kind.BoolValue), nil
	case nil:
		return domain.Value{}, fmt.Errorf("%s value is required: %w", key, domain.ErrInvalidArgument)
	case *structpb.Value_NullValue:
		return domain.Value{}, fmt.Errorf("%s: %w", key, errors.Join(domain.ErrInvalidArgument, errNullValue))
	default:
		return domain.Value{}, fmt.Errorf("%s has an unsupported value type: %w", key, domain.ErrInvalidArgument)
	}
}

// valueToProto converts a domain value to its wire form.
func valueToProto(value domain.Value) *structpb.Value {
	if b, ok := value.Bool(); ok {
		return structpb.NewBoolValue(b)
	}

	if i, ok := value.Int(); ok {
		return structpb.NewNumberValue(float64(i))
	}

	return structpb.NewNullValue()
}
