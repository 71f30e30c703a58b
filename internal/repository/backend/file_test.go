package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/shutdown-timer/internal/schema"
)

const testSchema = `id: test
keys:
  - {name: delay, type: int, default: 10}
  - {name: forced, type: bool, default: false}
  - {name: frozen, type: int, default: 1, locked: true}
`

// recorder collects notifications delivered to a handler.
type recorder struct {
	mu     sync.Mutex
	values []*structpb.Value
}

// handle appends the received value.
func (r *recorder) handle(_ string, value *structpb.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.values = append(r.values, value)
}

// snapshot returns a copy of the recorded values.
func (r *recorder) snapshot() []*structpb.Value {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]*structpb.Value(nil), r.values...)
}

func openTestFile(t *testing.T, path string) *File {
	t.Helper()

	sch, err := schema.Parse("test", []byte(testSchema))
	require.NoError(t, err)

	f, err := Open(path, sch)
	require.NoError(t, err)

	return f
}

// TestFile_Defaults verifies unset keys report schema defaults.
func TestFile_Defaults(t *testing.T) {
	t.Parallel()

	f := openTestFile(t, filepath.Join(t.TempDir(), "store.json"))

	require.Equal(t, 10, f.Int("delay"))
	require.False(t, f.Bool("forced"))
	require.Equal(t, 0, f.Int("missing"))
	require.Nil(t, f.Default("missing"))
	require.InDelta(t, 10, f.Default("delay").GetNumberValue(), 0)
}

// TestFile_SetSyncReopen ensures written values survive a reopen.
func TestFile_SetSyncReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "store.json")
	f := openTestFile(t, path)

	require.True(t, f.SetInt("delay", 25))
	require.True(t, f.SetBool("forced", true))
	require.NoError(t, f.Sync())

	reopened := openTestFile(t, path)
	require.Equal(t, 25, reopened.Int("delay"))
	require.True(t, reopened.Bool("forced"))
}

// TestFile_SetRejectsSchemaViolations checks unknown keys, type mismatches and closed backends.
func TestFile_SetRejectsSchemaViolations(t *testing.T) {
	t.Parallel()

	f := openTestFile(t, filepath.Join(t.TempDir(), "store.json"))

	require.False(t, f.SetInt("missing", 1))
	require.False(t, f.SetBool("delay", true))
	require.False(t, f.SetInt("forced", 1))
	require.False(t, f.SetInt("delay", 1<<40))

	require.NoError(t, f.Close())
	require.False(t, f.SetInt("delay", 3))
	require.False(t, f.IsWritable("delay"))
	require.ErrorIs(t, f.Sync(), ErrClosed)
	require.NoError(t, f.Close())
}

// TestFile_IsWritable covers schema locks and document locks.
func TestFile_IsWritable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "store.json")
	f := openTestFile(t, path)

	require.True(t, f.IsWritable("delay"))
	require.False(t, f.IsWritable("frozen"))
	require.False(t, f.IsWritable("missing"))

	f.SetLocked("delay", true)
	require.False(t, f.IsWritable("delay"))
	require.NoError(t, f.Sync())

	// Locks are part of the document.
	reopened := openTestFile(t, path)
	require.False(t, reopened.IsWritable("delay"))

	reopened.SetLocked("delay", false)
	require.True(t, reopened.IsWritable("delay"))
}

// TestFile_Notifications checks notifications fire once per actual change, in registration order.
func TestFile_Notifications(t *testing.T) {
	t.Parallel()

	f := openTestFile(t, filepath.Join(t.TempDir(), "store.json"))

	var order []string

	f.Connect("delay", func(_ string, v *structpb.Value) {
		order = append(order, fmt.Sprintf("first:%v", v.GetNumberValue()))
	})
	f.Connect("delay", func(_ string, v *structpb.Value) {
		order = append(order, fmt.Sprintf("second:%v", v.GetNumberValue()))
	})

	forced := new(recorder)
	f.Connect("forced", forced.handle)

	require.True(t, f.SetInt("delay", 15))
	// Same value again, nothing changes.
	require.True(t, f.SetInt("delay", 15))

	require.Equal(t, []string{"first:15", "second:15"}, order)
	require.Empty(t, forced.snapshot())
}

// TestFile_NestedWriteFromHandler ensures a write issued by a handler is delivered after the current one.
func TestFile_NestedWriteFromHandler(t *testing.T) {
	t.Parallel()

	f := openTestFile(t, filepath.Join(t.TempDir(), "store.json"))

	var seen []float64

	f.Connect("delay", func(_ string, v *structpb.Value) {
		seen = append(seen, v.GetNumberValue())
		if v.GetNumberValue() == 20 {
			require.True(t, f.SetInt("delay", 30))
		}
	})

	require.True(t, f.SetInt("delay", 20))
	require.Equal(t, []float64{20, 30}, seen)
	require.Equal(t, 30, f.Int("delay"))
}

// TestFile_ReloadDispatchesExternalChanges simulates another process editing the document.
func TestFile_ReloadDispatchesExternalChanges(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "store.json")
	f := openTestFile(t, path)

	delay := new(recorder)
	f.Connect("delay", delay.handle)

	forced := new(recorder)
	f.Connect("forced", forced.handle)

	require.NoError(t, os.WriteFile(path, []byte(`{"values": {"delay": 42, "forced": false}, "locks": ["forced"]}`), 0o600))
	require.NoError(t, f.Reload())

	require.Equal(t, 42, f.Int("delay"))
	require.False(t, f.IsWritable("forced"))

	got := delay.snapshot()
	require.Len(t, got, 1)
	require.InDelta(t, 42, got[0].GetNumberValue(), 0)
	// forced kept its default value.
	require.Empty(t, forced.snapshot())

	// Values of the wrong type are ignored.
	require.NoError(t, os.WriteFile(path, []byte(`{"values": {"delay": "soon"}}`), 0o600))
	require.NoError(t, f.Reload())
	require.Equal(t, 10, f.Int("delay"))
	require.Len(t, delay.snapshot(), 2)

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
	require.ErrorIs(t, f.Reload(), ErrMalformed)
}

// TestFile_SyncFailure reports an error when the directory is gone.
func TestFile_SyncFailure(t *testing.T) {
	t.Parallel()

	f := openTestFile(t, filepath.Join(t.TempDir(), "missing-dir", "store.json"))

	require.True(t, f.SetInt("delay", 12))
	require.Error(t, f.Sync())
}

// TestFile_Watch delivers notifications for edits made behind the backend's back.
func TestFile_Watch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")

	f := openTestFile(t, path)

	delay := new(recorder)
	f.Connect("delay", delay.handle)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- f.Watch(ctx)
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	writer := openTestFile(t, path)
	require.True(t, writer.SetInt("delay", 77))
	require.NoError(t, writer.Sync())

	require.Eventually(t, func() bool {
		return f.Int("delay") == 77
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	got := delay.snapshot()
	require.NotEmpty(t, got)
	require.InDelta(t, 77, got[len(got)-1].GetNumberValue(), 0)
}

// TestFile_ReloadKeepsUnsyncedWrites ensures a reload never rolls back values written since the last Sync.
func TestFile_ReloadKeepsUnsyncedWrites(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "store.json")
	f := openTestFile(t, path)

	delay := new(recorder)
	f.Connect("delay", delay.handle)

	forced := new(recorder)
	f.Connect("forced", forced.handle)

	require.True(t, f.SetInt("delay", 20))
	require.NoError(t, f.Sync())
	require.True(t, f.SetInt("delay", 30))

	// The document on disk is the one we wrote, nothing to apply.
	require.NoError(t, f.Reload())
	require.Equal(t, 30, f.Int("delay"))
	require.Len(t, delay.snapshot(), 2)

	// Another writer changes both keys while delay is still unsynced.
	require.NoError(t, os.WriteFile(path, []byte(`{"values": {"delay": 5, "forced": true}}`), 0o600))
	require.NoError(t, f.Reload())
	require.Equal(t, 30, f.Int("delay"))
	require.True(t, f.Bool("forced"))
	require.Len(t, delay.snapshot(), 2)
	require.Len(t, forced.snapshot(), 1)

	require.NoError(t, f.Sync())

	reopened := openTestFile(t, path)
	require.Equal(t, 30, reopened.Int("delay"))
	require.True(t, reopened.Bool("forced"))
}

// TestFile_ReloadMissingDocument resets every synced key to its default when the document is deleted.
func TestFile_ReloadMissingDocument(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "store.json")
	f := openTestFile(t, path)

	delay := new(recorder)
	f.Connect("delay", delay.handle)

	require.True(t, f.SetInt("delay", 20))
	f.SetLocked("forced", true)
	require.NoError(t, f.Sync())

	require.NoError(t, os.Remove(path))
	require.NoError(t, f.Reload())

	require.Equal(t, 10, f.Int("delay"))
	require.True(t, f.IsWritable("forced"))

	got := delay.snapshot()
	require.Len(t, got, 2)
	require.InDelta(t, 10, got[1].GetNumberValue(), 0)

	// Nothing is written back until the next change.
	require.NoError(t, f.Sync())

	_, err := os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestFile_WatchKeepsOwnWrites writes quickly while the watcher sees the events of every Sync.
func TestFile_WatchKeepsOwnWrites(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "store.json")
	f := openTestFile(t, path)

	delay := new(recorder)
	f.Connect("delay", func(key string, value *structpb.Value) {
		// A slow subscriber widens the gap between a write and its Sync.
		time.Sleep(2 * time.Millisecond)
		delay.handle(key, value)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- f.Watch(ctx)
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	const last = 150

	for i := 11; i <= last; i++ {
		require.True(t, f.SetInt("delay", i))
		require.NoError(t, f.Sync())
		require.Equal(t, i, f.Int("delay"), "value after write %d", i)
	}

	// Let the watcher catch up with the remaining events.
	time.Sleep(200 * time.Millisecond)
	require.Equal(t, last, f.Int("delay"))

	cancel()
	require.NoError(t, <-done)

	got := delay.snapshot()
	require.Len(t, got, last-10)

	for i, v := range got {
		require.InDelta(t, float64(i+11), v.GetNumberValue(), 0)
	}

	reopened := openTestFile(t, path)
	require.Equal(t, last, reopened.Int("delay"))
}
