// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/graphwright/graphwright/lib/clock"
	"github.com/graphwright/graphwright/lib/config"
	"github.com/graphwright/graphwright/lib/supergraph"
)

// Set runs watchers keyed by name, all reporting to one channel.
type Set struct {
	events chan<- Event
	logger *slog.Logger

	mu      sync.Mutex
	running map[string]*runningWatcher
	wg      sync.WaitGroup
}

type runningWatcher struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSet returns an empty Set that sends to events.
func NewSet(events chan<- Event, logger *slog.Logger) *Set {
	return &Set{
		events:  events,
		logger:  logger,
		running: make(map[string]*runningWatcher),
	}
}

// Start runs runner under name, stopping any watcher already running
// under that name first. The watcher stops when ctx is cancelled or
// Stop is called.
func (s *Set) Start(ctx context.Context, name string, runner Runner) {
	s.Stop(name)

	watcherCtx, cancel := context.WithCancel(ctx)
	entry := &runningWatcher{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	s.running[name] = entry
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(entry.done)
		defer cancel()
		if err := runner.Run(watcherCtx, s.events); err != nil {
			s.logger.Error("watcher stopped", "subgraph", name, "error", err)
		}
	}()
}

// Stop cancels the watcher running under name and waits for it to
// exit. Stopping an unknown name is a no-op.
func (s *Set) Stop(name string) {
	s.mu.Lock()
	entry, ok := s.running[name]
	delete(s.running, name)
	s.mu.Unlock()
	if !ok {
		return
	}
	entry.cancel()
	<-entry.done
}

// Names returns the names of started watchers, sorted.
func (s *Set) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.running))
	for name := range s.running {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close stops every watcher and waits for all of them.
func (s *Set) Close() {
	s.mu.Lock()
	entries := s.running
	s.running = make(map[string]*runningWatcher)
	s.mu.Unlock()
	for _, entry := range entries {
		entry.cancel()
	}
	s.wg.Wait()
}

// Dependencies are the shared collaborators for watchers built by
// ForSubgraph.
type Dependencies struct {
	Notifier     Notifier
	Introspector Introspector
	Clock        clock.Clock
	Logger       *slog.Logger

	PollInterval time.Duration
	RetryBudget  int
}

// ForSubgraph returns the watcher for a resolved subgraph, or nil when
// its source cannot change on its own (inline SDL and registry
// sources change only through the config file).
func ForSubgraph(definition supergraph.SubgraphDefinition, subgraph config.SubgraphConfig, deps Dependencies) Runner {
	switch subgraph.Schema.Kind {
	case config.SourceFile:
		return &FileWatcher{
			Name:       definition.Name,
			RoutingURL: definition.RoutingURL,
			Path:       subgraph.Schema.Path,
			InitialSDL: definition.SDL,
			Notifier:   deps.Notifier,
			Logger:     deps.Logger,
		}
	case config.SourceIntrospect:
		return &IntrospectWatcher{
			Name:         definition.Name,
			RoutingURL:   definition.RoutingURL,
			URL:          subgraph.Schema.URL,
			Headers:      subgraph.Schema.Headers,
			InitialSDL:   definition.SDL,
			PollInterval: deps.PollInterval,
			RetryBudget:  deps.RetryBudget,
			Introspector: deps.Introspector,
			Clock:        deps.Clock,
			Logger:       deps.Logger,
		}
	}
	return nil
}
