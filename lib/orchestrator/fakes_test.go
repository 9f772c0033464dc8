// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/graphwright/graphwright/lib/supergraph"
	"github.com/graphwright/graphwright/lib/testutil"
)

// fakeComposer renders the subgraphs it was given as the supergraph
// and fails with a build error for any SDL containing "broken".
type fakeComposer struct {
	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	mu      sync.Mutex
	delay   time.Duration
	entered chan<- struct{}
	calls   []map[string]string
}

// slowDown makes later compositions take delay, announcing each one on
// entered as it starts.
func (c *fakeComposer) slowDown(delay time.Duration, entered chan<- struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delay = delay
	c.entered = entered
}

func (c *fakeComposer) Compose(ctx context.Context, resolved *supergraph.ResolvedConfig) (supergraph.CompositionOutput, error) {
	current := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		seen := c.maxInFlight.Load()
		if current <= seen || c.maxInFlight.CompareAndSwap(seen, current) {
			break
		}
	}
	c.mu.Lock()
	delay, entered := c.delay, c.entered
	c.mu.Unlock()
	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	c.mu.Lock()
	c.calls = append(c.calls, resolved.SDLs())
	c.mu.Unlock()

	var builder strings.Builder
	for _, definition := range resolved.Subgraphs() {
		if strings.Contains(definition.SDL, "broken") {
			return supergraph.CompositionOutput{}, supergraph.BuildErrors{
				{Message: fmt.Sprintf("[%s] syntax error", definition.Name), Code: "INVALID_GRAPHQL"},
			}
		}
		fmt.Fprintf(&builder, "# %s\n%s\n", definition.Name, definition.SDL)
	}
	return supergraph.CompositionOutput{
		SupergraphSDL:     builder.String(),
		FederationVersion: resolved.FederationVersion,
	}, nil
}

func (c *fakeComposer) lastCall() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.calls) == 0 {
		return nil
	}
	return c.calls[len(c.calls)-1]
}

func (c *fakeComposer) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// fakeRouter tracks spawn and kill calls. crash simulates the router
// process dying on its own.
type fakeRouter struct {
	mu       sync.Mutex
	running  bool
	exited   chan struct{}
	spawns   int
	kills    int
	lastPath string
}

func (r *fakeRouter) Spawn(_ context.Context, supergraphPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("router already running")
	}
	r.running = true
	r.exited = make(chan struct{})
	r.spawns++
	r.lastPath = supergraphPath
	return nil
}

func (r *fakeRouter) WaitForStartup(context.Context) error { return nil }

func (r *fakeRouter) Kill(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		r.kills++
	}
	r.running = false
	r.exited = nil
	return nil
}

func (r *fakeRouter) Exited() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exited == nil {
		return nil
	}
	return r.exited
}

func (r *fakeRouter) MarkExited() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	r.exited = nil
	return 3
}

func (r *fakeRouter) Endpoint() string { return "http://127.0.0.1:4000/" }

func (r *fakeRouter) crash() {
	r.mu.Lock()
	defer r.mu.Unlock()
	close(r.exited)
}

func (r *fakeRouter) counts() (spawns, kills int, running bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.spawns, r.kills, r.running
}

// recordingReporter forwards every report to a channel.
type recordingReporter struct {
	composed chan supergraph.CompositionOutput
	failed   chan error
	ready    chan string
	warnings chan string
}

func newRecordingReporter() *recordingReporter {
	return &recordingReporter{
		composed: make(chan supergraph.CompositionOutput, 64),
		failed:   make(chan error, 64),
		ready:    make(chan string, 64),
		warnings: make(chan string, 64),
	}
}

func (r *recordingReporter) Composed(output supergraph.CompositionOutput) { r.composed <- output }
func (r *recordingReporter) CompositionFailed(err error)                  { r.failed <- err }
func (r *recordingReporter) RouterReady(endpoint string)                  { r.ready <- endpoint }
func (r *recordingReporter) Warn(message string)                          { r.warnings <- message }

// pokeNotifier reports a change to a path only when the test pokes it.
type pokeNotifier struct {
	mu       sync.Mutex
	channels map[string]chan struct{}
}

func (n *pokeNotifier) channel(path string) chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.channels == nil {
		n.channels = make(map[string]chan struct{})
	}
	notifications, ok := n.channels[path]
	if !ok {
		notifications = make(chan struct{})
		n.channels[path] = notifications
	}
	return notifications
}

func (n *pokeNotifier) Subscribe(_ context.Context, path string) (<-chan struct{}, error) {
	return n.channel(path), nil
}

// poke blocks until the watcher subscribed to path accepts the
// notification.
func (n *pokeNotifier) poke(t *testing.T, path string) {
	t.Helper()
	testutil.RequireSend(t, n.channel(path), struct{}{}, 5*time.Second, "nothing is watching %s", path)
}

// quietNotifier never reports a change.
type quietNotifier struct{}

func (quietNotifier) Subscribe(ctx context.Context, _ string) (<-chan struct{}, error) {
	notifications := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(notifications)
	}()
	return notifications, nil
}

// requireNone fails if ch delivers anything within wait.
func requireNone[T any](t *testing.T, ch <-chan T, wait time.Duration, what string) {
	t.Helper()
	select {
	case value := <-ch:
		t.Fatalf("unexpected %s: %v", what, value)
	case <-time.After(wait):
	}
}
