// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/graphwright/graphwright/lib/atomicfile"
	"github.com/graphwright/graphwright/lib/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// manualNotifier hands out one unbuffered channel the test drives. A
// completed send proves the watcher finished handling the previous
// notification and is waiting again.
type manualNotifier struct {
	notifications chan struct{}
}

func newManualNotifier() *manualNotifier {
	return &manualNotifier{notifications: make(chan struct{})}
}

func (n *manualNotifier) Subscribe(ctx context.Context, path string) (<-chan struct{}, error) {
	return n.notifications, nil
}

func (n *manualNotifier) notify(t *testing.T) {
	t.Helper()
	testutil.RequireSend(t, n.notifications, struct{}{}, 5*time.Second, "watcher did not accept notification")
}

func requireNoEvent(t *testing.T, events <-chan Event) {
	t.Helper()
	select {
	case event := <-events:
		t.Fatalf("unexpected event: %+v", event)
	default:
	}
}

func replace(t *testing.T, path, content string) {
	t.Helper()
	if err := atomicfile.Write(path, []byte(content), 0o644); err != nil {
		t.Fatalf("atomicfile.Write: %v", err)
	}
}

func TestFileWatcherEmitsOnlyOnChange(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "a.graphql", "type Query { a: Int }")

	notifier := newManualNotifier()
	events := make(chan Event, 4)
	watcher := &FileWatcher{
		Name:       "a",
		RoutingURL: "http://a",
		Path:       path,
		InitialSDL: "type Query { a: Int }",
		Notifier:   notifier,
		Logger:     testLogger(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := watcher.Run(ctx, events); err != nil {
			t.Errorf("Run: %v", err)
		}
	}()

	// Each step notifies twice: the second send is accepted only after
	// the first check finished. Writes are atomic because a check may
	// still be reading when the next step starts.

	// Touch without change: no event.
	notifier.notify(t)
	notifier.notify(t)
	requireNoEvent(t, events)

	// Real change: exactly one event.
	replace(t, path, "type Query { a: String }")
	notifier.notify(t)
	notifier.notify(t)
	event := testutil.RequireReceive(t, events, 5*time.Second, "waiting for update")
	if event.Kind != SubgraphUpdated || event.Name != "a" || event.RoutingURL != "http://a" || event.SDL != "type Query { a: String }" {
		t.Errorf("event = %+v", event)
	}
	notifier.notify(t)
	requireNoEvent(t, events)

	// Unreadable during a save: keep the previous SDL, no event.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	notifier.notify(t)
	notifier.notify(t)
	requireNoEvent(t, events)

	// The file comes back with the same content: still nothing new.
	replace(t, path, "type Query { a: String }")
	notifier.notify(t)
	notifier.notify(t)
	requireNoEvent(t, events)

	cancel()
	testutil.RequireClosed(t, done, 5*time.Second, "watcher did not stop")
}

func TestFileWatcherReportsEditBeforeSubscribe(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "a.graphql", "type Query { edited: Int }")

	events := make(chan Event, 1)
	watcher := &FileWatcher{
		Name:       "a",
		Path:       path,
		InitialSDL: "type Query { a: Int }",
		Notifier:   newManualNotifier(),
		Logger:     testLogger(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx, events)

	event := testutil.RequireReceive(t, events, 5*time.Second, "waiting for catch-up event")
	if event.SDL != "type Query { edited: Int }" {
		t.Errorf("SDL = %q", event.SDL)
	}
}

func TestFSNotifierSeesAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "schema.graphql", "type Query { a: Int }")

	ctx, cancel := context.WithCancel(context.Background())
	notifier := &FSNotifier{Logger: testLogger()}
	notifications, err := notifier.Subscribe(ctx, path)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := atomicfile.Write(path, []byte("type Query { b: Int }"), 0o644); err != nil {
		t.Fatalf("atomicfile.Write: %v", err)
	}
	testutil.RequireReceive(t, notifications, 5*time.Second, "no notification for atomic replace")

	cancel()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-notifications:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("notification channel not closed after cancel")
		}
	}
}

func TestFSNotifierMissingDirectory(t *testing.T) {
	notifier := &FSNotifier{}
	_, err := notifier.Subscribe(context.Background(), filepath.Join(t.TempDir(), "gone", "schema.graphql"))
	if err == nil {
		t.Fatal("Subscribe succeeded for a missing directory")
	}
}
