package settings

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/shutdown-timer/internal/domain/settings"
	"github.com/oshokin/shutdown-timer/internal/logger"
	"github.com/oshokin/shutdown-timer/internal/repository/backend"
	"github.com/oshokin/shutdown-timer/internal/schema"
)

// SchemaID identifies the schema declaring the timer keys.
const SchemaID = "io.github.oshokin.shutdown-timer"

// Options locates the schema and the store document.
type Options struct {
	// SchemaDir is the directory holding schema files.
	SchemaDir string
	// SchemaID overrides the default schema identifier.
	SchemaID string
	// StoreFile is the path of the JSON document holding the values.
	StoreFile string
}

// Store gives typed access to the timer settings.
type Store struct {
	// backend holds the values, it is bound once and never replaced.
	backend backend.Backend
}

// watcher is implemented by backends that can follow external writers.
type watcher interface {
	Watch(ctx context.Context) error
}

// closer is implemented by backends holding resources.
type closer interface {
	Close() error
}

// Open looks the schema up and binds a file backend to it. A missing or
// incomplete schema is an error: without it no key has a type or a slot.
func Open(opts *Options) (*Store, error) {
	id := opts.SchemaID
	if id == "" {
		id = SchemaID
	}

	sch, err := schema.NewSource(opts.SchemaDir).Lookup(id)
	if err != nil {
		return nil, fmt.Errorf("lookup schema: %w", err)
	}

	if err = checkSchema(sch); err != nil {
		return nil, err
	}

	file, err := backend.Open(opts.StoreFile, sch)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return New(file), nil
}

// New wraps an already bound backend.
func New(b backend.Backend) *Store {
	return &Store{
		backend: b,
	}
}

// checkSchema ensures every timer key is declared with its expected type.
func checkSchema(sch *schema.Schema) error {
	for _, key := range domain.Keys() {
		declared, ok := sch.Key(key.String())
		if !ok {
			return fmt.Errorf("schema %s does not declare %q: %w", sch.ID, key, schema.ErrInvalid)
		}

		if declared.Type != key.Kind().String() {
			return fmt.Errorf("schema %s declares %q as %s, expected %s: %w",
				sch.ID, key, declared.Type, key.Kind(), schema.ErrInvalid)
		}
	}

	return nil
}

// Delay returns the delay in minutes.
func (s *Store) Delay() int {
	return s.backend.Int(domain.Delay.String())
}

// ElapsedTime returns the elapsed-time counter.
func (s *Store) ElapsedTime() int {
	return s.backend.Int(domain.ElapsedTime.String())
}

// Forced reports whether the action is forced.
func (s *Store) Forced() bool {
	return s.backend.Bool(domain.Forced.String())
}

// Action returns the action selector.
func (s *Store) Action() int {
	return s.backend.Int(domain.Action.String())
}

// Snapshot reads all settings.
func (s *Store) Snapshot() domain.Snapshot {
	return domain.Snapshot{
		Delay:       s.Delay(),
		ElapsedTime: s.ElapsedTime(),
		Forced:      s.Forced(),
		Action:      s.Action(),
	}
}

// SetDelay stores the delay. It must be greater than one minute.
func (s *Store) SetDelay(ctx context.Context, minutes int) error {
	if minutes <= 1 {
		return fmt.Errorf("delay must be greater than 1 minute, got %d: %w", minutes, domain.ErrInvalidArgument)
	}

	return s.writeInt(ctx, domain.Delay, minutes)
}

// SetElapsedTime stores the elapsed-time counter. It must not be negative.
func (s *Store) SetElapsedTime(ctx context.Context, elapsed int) error {
	if elapsed < 0 {
		return fmt.Errorf("elapsed time must not be negative, got %d: %w", elapsed, domain.ErrInvalidArgument)
	}

	return s.writeInt(ctx, domain.ElapsedTime, elapsed)
}

// SetForced stores the forced flag.
func (s *Store) SetForced(ctx context.Context, forced bool) error {
	name := domain.Forced.String()

	if !s.backend.IsWritable(name) {
		return fmt.Errorf("%s: %w", name, domain.ErrNotWritable)
	}

	if !s.backend.SetBool(name, forced) {
		return fmt.Errorf("set %s: %w", name, domain.ErrWriteFailed)
	}

	return s.flush(ctx, domain.Forced, forced)
}

// SetAction stores the action selector. It must not be negative.
func (s *Store) SetAction(ctx context.Context, action int) error {
	if action < 0 {
		return fmt.Errorf("action must not be negative, got %d: %w", action, domain.ErrInvalidArgument)
	}

	return s.writeInt(ctx, domain.Action, action)
}

// SetValue routes a tagged value to the setter of its key.
func (s *Store) SetValue(ctx context.Context, value domain.Value) error {
	key, err := value.Key()
	if err != nil {
		return err
	}

	if key.Kind() == domain.KindBool {
		b, ok := value.Bool()
		if !ok {
			return fmt.Errorf("%s expects a boolean: %w", key, domain.ErrInvalidArgument)
		}

		return s.SetForced(ctx, b)
	}

	i, ok := value.Int()
	if !ok {
		return fmt.Errorf("%s expects an integer: %w", key, domain.ErrInvalidArgument)
	}

	switch key {
	case domain.Delay:
		return s.SetDelay(ctx, i)
	case domain.ElapsedTime:
		return s.SetElapsedTime(ctx, i)
	default:
		return s.SetAction(ctx, i)
	}
}

// Reset writes the schema default of key through its setter.
func (s *Store) Reset(ctx context.Context, key domain.Key) error {
	if !key.Valid() {
		return fmt.Errorf("reset %s: %w", key, domain.ErrInvalidArgument)
	}

	return s.SetValue(ctx, decode(key.String(), s.backend.Default(key.String())))
}

// BindKey calls callback with the decoded new value every time key changes,
// whoever the writer is. Callbacks of one key run in registration order.
// Bindings are never removed.
func (s *Store) BindKey(key string, callback func(domain.Value)) error {
	if key == "" {
		return fmt.Errorf("key must not be empty: %w", domain.ErrInvalidArgument)
	}

	if callback == nil {
		return fmt.Errorf("callback for %q must not be nil: %w", key, domain.ErrInvalidArgument)
	}

	s.backend.Connect(key, func(name string, value *structpb.Value) {
		callback(decode(name, value))
	})

	return nil
}

// OnDelayChanged calls fn with every new delay.
func (s *Store) OnDelayChanged(fn func(minutes int)) error {
	return s.bindInt(domain.Delay, fn)
}

// OnElapsedTimeChanged calls fn with every new elapsed-time value.
func (s *Store) OnElapsedTimeChanged(fn func(elapsed int)) error {
	return s.bindInt(domain.ElapsedTime, fn)
}

// OnActionChanged calls fn with every new action selector.
func (s *Store) OnActionChanged(fn func(action int)) error {
	return s.bindInt(domain.Action, fn)
}

// OnForcedChanged calls fn with every new forced flag.
func (s *Store) OnForcedChanged(fn func(forced bool)) error {
	if fn == nil {
		return fmt.Errorf("callback for %q must not be nil: %w", domain.Forced, domain.ErrInvalidArgument)
	}

	return s.BindKey(domain.Forced.String(), func(v domain.Value) {
		if b, ok := v.Bool(); ok {
			fn(b)
		}
	})
}

// Watch follows writes made by other processes when the backend supports it.
// It blocks until the context is canceled.
func (s *Store) Watch(ctx context.Context) error {
	w, ok := s.backend.(watcher)
	if !ok {
		<-ctx.Done()

		return nil
	}

	return w.Watch(ctx)
}

// Close releases the backend.
func (s *Store) Close() error {
	if c, ok := s.backend.(closer); ok {
		return c.Close()
	}

	return nil
}

// bindInt subscribes fn to an integer key.
func (s *Store) bindInt(key domain.Key, fn func(int)) error {
	if fn == nil {
		return fmt.Errorf("callback for %q must not be nil: %w", key, domain.ErrInvalidArgument)
	}

	return s.BindKey(key.String(), func(v domain.Value) {
		if i, ok := v.Int(); ok {
			fn(i)
		}
	})
}

// writeInt checks writability, writes and flushes an integer key.
func (s *Store) writeInt(ctx context.Context, key domain.Key, value int) error {
	name := key.String()

	if !s.backend.IsWritable(name) {
		return fmt.Errorf("%s: %w", name, domain.ErrNotWritable)
	}

	if !s.backend.SetInt(name, value) {
		return fmt.Errorf("set %s: %w", name, domain.ErrWriteFailed)
	}

	return s.flush(ctx, key, value)
}

// flush makes the write durable before the setter returns.
func (s *Store) flush(ctx context.Context, key domain.Key, value any) error {
	if err := s.backend.Sync(); err != nil {
		return fmt.Errorf("flush %s: %w", key, errors.Join(domain.ErrWriteFailed, err))
	}

	logger.DebugKV(ctx, "Setting stored", "key", key.String(), "value", value)

	return nil
}

// decode turns a backend tagged value into a domain value.
func decode(name string, value *structpb.Value) domain.Value {
	switch kind := value.GetKind().(type) {
	case *structpb.Value_BoolValue:
		return domain.BoolValue(name, kind.BoolValue)
	case *structpb.Value_NumberValue:
		return domain.IntValue(name, int(kind.NumberValue))
	default:
		return domain.Value{Name: name}
	}
}
