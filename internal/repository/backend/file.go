package backend

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/shutdown-timer/internal/schema"
)

const (
	// DefaultFilePermissions is used for the store document.
	DefaultFilePermissions = 0o600

	// Top-level fields of the store document.
	valuesField = "values"
	locksField  = "locks"
)

var (
	// ErrClosed is returned by Sync after Close.
	ErrClosed = errors.New("backend is closed")
	// ErrMalformed is returned when the store document cannot be decoded.
	ErrMalformed = errors.New("malformed store document")
)

// File keeps settings in memory and persists them to a JSON document:
//
//	{"values": {"delay": 15, "forced": true}, "locks": ["action"]}
//
// Keys absent from "values" report their schema default. Keys listed in
// "locks" are not writable. A missing document means every key is at its
// default and none is locked.
type File struct {
	// path is the filesystem location of the JSON document.
	path string
	// schema declares the keys and their types.
	schema *schema.Schema
	// events delivers change notifications.
	events *dispatcher

	// mu protects the fields below.
	mu sync.Mutex
	// values holds explicitly written values.
	values map[string]*structpb.Value
	// locks holds keys locked by administrative policy.
	locks map[string]struct{}
	// pending holds keys written since the last Sync.
	pending map[string]struct{}
	// locksChanged is set when locks differ from the last Sync.
	locksChanged bool
	// synced is the document as last read or written by this backend.
	synced []byte
	// closed rejects writes once set.
	closed bool
}

// Open binds a File to the document at path, loading it when it exists.
func Open(path string, sch *schema.Schema) (*File, error) {
	if sch == nil {
		return nil, errors.New("schema must be provided")
	}

	f := &File{
		path:    filepath.Clean(path),
		schema:  sch,
		events:  newDispatcher(),
		values:  make(map[string]*structpb.Value),
		locks:   make(map[string]struct{}),
		pending: make(map[string]struct{}),
	}

	contents, err := readDocument(f.path)
	if err != nil {
		return nil, err
	}

	if contents != nil {
		if f.values, f.locks, err = f.decode(contents); err != nil {
			return nil, err
		}

		f.synced = contents
	}

	return f, nil
}

// Int returns the integer value of key.
func (f *File) Int(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return int(f.lookup(key).GetNumberValue())
}

// Bool returns the boolean value of key.
func (f *File) Bool(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.lookup(key).GetBoolValue()
}

// Default returns a copy of the schema default of key.
func (f *File) Default(key string) *structpb.Value {
	k, ok := f.schema.Key(key)
	if !ok {
		return nil
	}

	value, _ := proto.Clone(k.DefaultValue()).(*structpb.Value)

	return value
}

// SetInt stores an integer for key. It fails for unknown or non-integer keys,
// for values outside the 32-bit range and after Close.
func (f *File) SetInt(key string, value int) bool {
	return f.set(key, schema.TypeInt, structpb.NewNumberValue(float64(value)))
}

// SetBool stores a boolean for key. It fails for unknown or non-boolean keys
// and after Close.
func (f *File) SetBool(key string, value bool) bool {
	return f.set(key, schema.TypeBool, structpb.NewBoolValue(value))
}

// IsWritable reports whether key exists and is neither locked by the schema
// nor by the document.
func (f *File) IsWritable(key string) bool {
	k, ok := f.schema.Key(key)
	if !ok || k.Locked {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}

	_, locked := f.locks[key]

	return !locked
}

// SetLocked adds key to or removes it from the document's lock list.
// The change is persisted by the next Sync.
func (f *File) SetLocked(key string, locked bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, current := f.locks[key]
	if current == locked {
		return
	}

	if locked {
		f.locks[key] = struct{}{}
	} else {
		delete(f.locks, key)
	}

	f.locksChanged = true
}

// Connect registers handler for changes of key.
func (f *File) Connect(key string, handler Handler) {
	f.events.connect(key, handler)
}

// Sync writes the document when it has pending changes.
func (f *File) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	if len(f.pending) == 0 && !f.locksChanged {
		return nil
	}

	data, err := f.encode()
	if err != nil {
		return err
	}

	if err = writeFileAtomic(f.path, data); err != nil {
		return err
	}

	f.synced = data
	f.pending = make(map[string]struct{})
	f.locksChanged = false

	return nil
}

// Close flushes pending changes and rejects later writes.
func (f *File) Close() error {
	err := f.Sync()
	if errors.Is(err, ErrClosed) {
		return nil
	}

	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	return err
}

// Reload re-reads the document and notifies subscribers of every key whose
// effective value differs from memory. A document identical to the one this
// backend last read or wrote is ignored, so the watcher never replays our own
// writes. Keys written since the last Sync keep their in-memory value, and so
// do the locks when they were changed. Deleting the document resets the other
// keys to their defaults without writing anything.
func (f *File) Reload() error {
	f.mu.Lock()

	contents, err := readDocument(f.path)
	if err != nil {
		f.mu.Unlock()

		return err
	}

	if bytes.Equal(contents, f.synced) {
		f.mu.Unlock()

		return nil
	}

	values, locks := make(map[string]*structpb.Value), make(map[string]struct{})
	if contents != nil {
		if values, locks, err = f.decode(contents); err != nil {
			f.mu.Unlock()

			return err
		}
	}

	for key := range f.pending {
		if v, ok := f.values[key]; ok {
			values[key] = v
		}
	}

	if f.locksChanged {
		locks = f.locks
	}

	for _, k := range f.schema.Keys {
		after, ok := values[k.Name]
		if !ok {
			after = k.DefaultValue()
		}

		if !proto.Equal(f.lookup(k.Name), after) {
			f.events.enqueue(k.Name, after)
		}
	}

	f.values, f.locks = values, locks
	f.synced = contents
	f.mu.Unlock()

	f.events.drain()

	return nil
}

// set validates the key type and stores value, emitting a change when the
// effective value differs.
func (f *File) set(key, typ string, value *structpb.Value) bool {
	k, ok := f.schema.Key(key)
	if !ok || k.Type != typ || !accepts(typ, value) {
		return false
	}

	f.mu.Lock()

	if f.closed {
		f.mu.Unlock()

		return false
	}

	if !proto.Equal(f.lookup(key), value) {
		f.events.enqueue(key, value)
	}

	f.values[key] = value
	f.pending[key] = struct{}{}
	f.mu.Unlock()

	f.events.drain()

	return true
}

// lookup returns the stored value of key or its default. Callers hold mu.
func (f *File) lookup(key string) *structpb.Value {
	if v, ok := f.values[key]; ok {
		return v
	}

	if k, ok := f.schema.Key(key); ok {
		return k.DefaultValue()
	}

	return nil
}

// readDocument returns the contents of the document at path, nil when it
// does not exist.
func readDocument(path string) ([]byte, error) {
	contents, err := os.ReadFile(path)
	switch {
	case err == nil:
		return contents, nil
	case errors.Is(err, os.ErrNotExist):
		return nil, nil
	default:
		return nil, fmt.Errorf("read store file: %w", err)
	}
}

// decode parses the document, dropping values the schema does not accept.
func (f *File) decode(contents []byte) (map[string]*structpb.Value, map[string]struct{}, error) {
	var doc structpb.Struct
	if err := protojson.Unmarshal(contents, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode store file: %w", errors.Join(ErrMalformed, err))
	}

	values := make(map[string]*structpb.Value)

	for name, value := range doc.GetFields()[valuesField].GetStructValue().GetFields() {
		if k, ok := f.schema.Key(name); ok && accepts(k.Type, value) {
			values[name] = value
		}
	}

	locks := make(map[string]struct{})

	for _, value := range doc.GetFields()[locksField].GetListValue().GetValues() {
		if name := value.GetStringValue(); name != "" {
			locks[name] = struct{}{}
		}
	}

	return values, locks, nil
}

// encode renders the document. Callers hold mu.
func (f *File) encode() ([]byte, error) {
	values := make(map[string]*structpb.Value, len(f.values))
	for name, value := range f.values {
		values[name] = value
	}

	locks := make([]string, 0, len(f.locks))
	for name := range f.locks {
		locks = append(locks, name)
	}

	slices.Sort(locks)

	lockValues := make([]*structpb.Value, 0, len(locks))
	for _, name := range locks {
		lockValues = append(lockValues, structpb.NewStringValue(name))
	}

	doc := &structpb.Struct{
		Fields: map[string]*structpb.Value{
			valuesField: structpb.NewStructValue(&structpb.Struct{Fields: values}),
			locksField:  structpb.NewListValue(&structpb.ListValue{Values: lockValues}),
		},
	}

	marshalOptions := protojson.MarshalOptions{
		Multiline: true,
		Indent:    "  ",
	}

	data, err := marshalOptions.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode store file: %w", err)
	}

	return data, nil
}

// accepts reports whether value matches the schema type.
func accepts(typ string, value *structpb.Value) bool {
	switch typ {
	case schema.TypeInt:
		n, ok := value.GetKind().(*structpb.Value_NumberValue)

		return ok && n.NumberValue == math.Trunc(n.NumberValue) &&
			n.NumberValue >= math.MinInt32 && n.NumberValue <= math.MaxInt32
	case schema.TypeBool:
		_, ok := value.GetKind().(*structpb.Value_BoolValue)

		return ok
	default:
		return false
	}
}

// writeFileAtomic replaces path with data through a temporary file in the
// same directory.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temporary store file: %w", err)
	}

	tmpName := tmp.Name()

	defer func() {
		// No-op once the rename succeeded.
		_ = os.Remove(tmpName)
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("write store file: %w", err)
	}

	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("sync store file: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close store file: %w", err)
	}

	if err = os.Chmod(tmpName, DefaultFilePermissions); err != nil {
		return fmt.Errorf("chmod store file: %w", err)
	}

	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}

	return nil
}
