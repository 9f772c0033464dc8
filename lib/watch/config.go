// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/graphwright/graphwright/lib/config"
)

// ConfigWatcher reloads the supergraph config file when it changes and
// reports the difference. A config that fails to load is logged and
// ignored; the previous config stays in effect until the file is fixed.
type ConfigWatcher struct {
	Path string

	// Initial is the config already in effect.
	Initial *config.SupergraphConfig

	Notifier Notifier
	Logger   *slog.Logger
}

// Run watches until ctx is cancelled.
func (w *ConfigWatcher) Run(ctx context.Context, events chan<- Event) error {
	notifications, err := w.Notifier.Subscribe(ctx, w.Path)
	if err != nil {
		return fmt.Errorf("watching supergraph config: %w", err)
	}

	current := w.Initial
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-notifications:
			if !ok {
				return nil
			}
		}

		next, err := config.Load(w.Path)
		if err != nil {
			w.Logger.Warn("supergraph config is invalid, keeping the previous config", "path", w.Path, "error", err)
			continue
		}
		diff := config.Compare(current, next)
		if diff.Empty() {
			continue
		}
		current = next
		w.Logger.Info("supergraph config changed",
			"path", w.Path,
			"added", diff.Added,
			"removed", diff.Removed,
			"changed", diff.Changed,
			"federation_version_changed", diff.FederationVersionChanged,
		)
		if !send(ctx, events, Event{Kind: ConfigChanged, Config: next, Diff: diff}) {
			return nil
		}
	}
}
