// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// FileWatcher reports changes to a subgraph schema file.
type FileWatcher struct {
	Name       string
	RoutingURL string
	Path       string

	// InitialSDL is the content already reported to the consumer.
	InitialSDL string

	Notifier Notifier
	Logger   *slog.Logger
}

// Run watches until ctx is cancelled.
func (w *FileWatcher) Run(ctx context.Context, events chan<- Event) error {
	notifications, err := w.Notifier.Subscribe(ctx, w.Path)
	if err != nil {
		return fmt.Errorf("watching schema file for subgraph %s: %w", w.Name, err)
	}

	last := w.InitialSDL
	// Catch edits made between initial resolution and the subscription.
	if !w.check(ctx, events, &last) {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-notifications:
			if !ok {
				return nil
			}
			if !w.check(ctx, events, &last) {
				return nil
			}
		}
	}
}

// check re-reads the file and reports it if changed. Returns false when
// ctx was cancelled while sending.
func (w *FileWatcher) check(ctx context.Context, events chan<- Event, last *string) bool {
	data, err := os.ReadFile(w.Path)
	if err != nil {
		// Usually a save in progress: the file is briefly absent
		// between an editor's unlink and rename.
		w.Logger.Warn("could not read schema file, keeping the previous schema",
			"subgraph", w.Name,
			"path", w.Path,
			"error", err,
		)
		return true
	}
	sdl := string(data)
	if len(data) == 0 {
		// Truncated for an in-place rewrite; the write event follows.
		w.Logger.Debug("schema file is empty, waiting for the write", "subgraph", w.Name, "path", w.Path)
		return true
	}
	if sdl == *last {
		return true
	}
	*last = sdl
	w.Logger.Info("schema file changed", "subgraph", w.Name, "path", w.Path)
	return send(ctx, events, Event{
		Kind:       SubgraphUpdated,
		Name:       w.Name,
		RoutingURL: w.RoutingURL,
		SDL:        sdl,
	})
}
