// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"context"

	"github.com/graphwright/graphwright/lib/config"
)

// EventKind distinguishes watcher events.
type EventKind int

const (
	// SubgraphUpdated carries new SDL for Name.
	SubgraphUpdated EventKind = iota + 1

	// SubgraphFailed means Name's watcher gave up; Err says why.
	SubgraphFailed

	// ConfigChanged carries a reloaded supergraph config and its diff
	// against the previous one.
	ConfigChanged
)

func (k EventKind) String() string {
	switch k {
	case SubgraphUpdated:
		return "subgraph-updated"
	case SubgraphFailed:
		return "subgraph-failed"
	case ConfigChanged:
		return "config-changed"
	}
	return "unknown"
}

// Event is one change report. Which fields are set depends on Kind.
type Event struct {
	Kind EventKind

	Name       string
	RoutingURL string
	SDL        string
	Err        error

	Config *config.SupergraphConfig
	Diff   config.Diff
}

// Runner is a watcher. Run blocks until ctx is cancelled or the watcher
// fails, sending events to events. A nil return after cancellation is
// normal shutdown.
type Runner interface {
	Run(ctx context.Context, events chan<- Event) error
}

// send delivers event unless ctx is cancelled first.
func send(ctx context.Context, events chan<- Event, event Event) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
