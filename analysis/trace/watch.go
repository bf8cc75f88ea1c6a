package trace

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watch re-reads the log at path each time it is written and passes the
// new table to onChange. It runs until ctx is cancelled.
//
// A read that fails (for example a half-written last line) is logged and
// skipped; onChange is not called for it.
func Watch(ctx context.Context, path string, onChange func(*Table)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}
	logrus.Infof("trace: watching %s for changes", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Atomic saves arrive as Create rather than Write.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			t, err := ReadFile(path)
			if err != nil {
				logrus.Warnf("trace: re-read of %s failed, waiting for next write: %v", path, err)
				continue
			}
			onChange(t)

			// Re-add in case an atomic save replaced the inode.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logrus.Errorf("trace: watcher error: %v", err)
		}
	}
}
