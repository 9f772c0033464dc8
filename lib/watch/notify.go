// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Notifier reports changes to a single file.
type Notifier interface {
	// Subscribe returns a channel that receives a value after path
	// changes. Bursts of changes may coalesce into one notification.
	// The channel closes when ctx is cancelled.
	Subscribe(ctx context.Context, path string) (<-chan struct{}, error)
}

// FSNotifier implements Notifier with fsnotify.
//
// It watches the file's parent directory rather than the file, because
// editors commonly save by writing a temporary file and renaming it
// over the original. A watch on the original inode would see the
// rename and then nothing.
type FSNotifier struct {
	Logger *slog.Logger
}

// Subscribe starts watching path's directory.
func (n *FSNotifier) Subscribe(ctx context.Context, path string) (<-chan struct{}, error) {
	absolutePath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	directory := filepath.Dir(absolutePath)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := watcher.Add(directory); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", directory, err)
	}

	notifications := make(chan struct{}, 1)
	go func() {
		defer close(notifications)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != absolutePath {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
					continue
				}
				select {
				case notifications <- struct{}{}:
				default:
					// A notification is already pending; the reader
					// will re-read the file and see this change too.
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if n.Logger != nil {
					n.Logger.Warn("file watcher error", "path", absolutePath, "error", err)
				}
			}
		}
	}()
	return notifications, nil
}
