package backend

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/oshokin/shutdown-timer/internal/logger"
)

// Watch reloads the document whenever another writer replaces or edits it,
// which notifies subscribers of the keys that changed. The directory is
// watched rather than the file because atomic replacement swaps the inode.
// It blocks until the context is canceled.
func (f *File) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	defer func() {
		_ = watcher.Close()
	}()

	dir := filepath.Dir(f.path)
	if err = watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	logger.InfoKV(ctx, "Watching store file", "path", f.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			f.handleEvent(ctx, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.ErrorKV(ctx, "Store watcher error", "error", err)
		}
	}
}

// handleEvent reloads the document for events touching the store file.
func (f *File) handleEvent(ctx context.Context, event fsnotify.Event) {
	if filepath.Clean(event.Name) != f.path {
		return
	}

	// Remove and Rename mean the document is gone from path, which Reload
	// treats as all defaults.
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	logger.DebugKV(ctx, "Store file changed", "op", event.Op.String())

	if err := f.Reload(); err != nil {
		// Editors may leave a half-written file; the next write retries.
		logger.WarnKV(ctx, "Failed to reload store file", "error", err)
	}
}
