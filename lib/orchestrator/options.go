// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/graphwright/graphwright/lib/clock"
	"github.com/graphwright/graphwright/lib/config"
	"github.com/graphwright/graphwright/lib/federation"
	"github.com/graphwright/graphwright/lib/introspect"
	"github.com/graphwright/graphwright/lib/schemasource"
	"github.com/graphwright/graphwright/lib/session"
	"github.com/graphwright/graphwright/lib/supergraph"
	"github.com/graphwright/graphwright/lib/version"
	"github.com/graphwright/graphwright/lib/watch"
)

// DefaultRetryBudget is how many consecutive introspection failures a
// watcher tolerates before giving up on its subgraph.
const DefaultRetryBudget = 30

// Resolver turns schema sources into SDL. Implemented by
// [*schemasource.Resolver].
type Resolver interface {
	Resolve(ctx context.Context, cfg *config.SupergraphConfig) ([]supergraph.SubgraphDefinition, error)
	ResolveOne(ctx context.Context, name string, subgraph config.SubgraphConfig) (supergraph.SubgraphDefinition, error)
}

// Composer composes a supergraph. Implemented by [*compose.Engine].
// Build failures are reported as [supergraph.BuildErrors].
type Composer interface {
	Compose(ctx context.Context, resolved *supergraph.ResolvedConfig) (supergraph.CompositionOutput, error)
}

// RouterManager supervises the router process. Implemented by
// [*router.Manager].
type RouterManager interface {
	Spawn(ctx context.Context, supergraphPath string) error
	WaitForStartup(ctx context.Context) error
	Kill(ctx context.Context) error
	Exited() <-chan struct{}
	MarkExited() (exitCode int)
	Endpoint() string
}

// Options configures an [Orchestrator].
type Options struct {
	// ConfigPath is the supergraph config file. Empty starts a session
	// with no subgraphs of its own, which is useful for a leader that
	// only serves followers.
	ConfigPath string

	// FederationVersion, when set, overrides the config file's
	// federation_version.
	FederationVersion federation.Version

	// WorkDir holds the supergraph file and other session state.
	WorkDir string

	// SupergraphPath is where successful compositions are written.
	// Defaults to WorkDir/supergraph.graphql.
	SupergraphPath string

	// SocketPath is the session socket. Empty runs a standalone leader
	// that accepts no followers.
	SocketPath string

	// Version is compared with the other side of the session during
	// the follower handshake.
	Version string

	// PollInterval and RetryBudget configure introspection watchers.
	// A RetryBudget of zero never gives up; DefaultOptions sets
	// DefaultRetryBudget.
	PollInterval time.Duration
	RetryBudget  int

	// MonitorInterval is how often a follower checks the leader.
	MonitorInterval time.Duration

	Resolver     Resolver
	Composer     Composer
	Router       RouterManager
	Notifier     watch.Notifier
	Introspector watch.Introspector
	Reporter     Reporter
	Clock        clock.Clock
	Logger       *slog.Logger
}

// DefaultOptions returns options with every tunable set. Composer and
// Router have no defaults; the caller provides them.
func DefaultOptions() Options {
	return Options{
		Version:         version.Short(),
		PollInterval:    watch.DefaultPollInterval,
		RetryBudget:     DefaultRetryBudget,
		MonitorInterval: session.DefaultMonitorInterval,
	}
}

func (o *Options) fillDefaults() {
	defaults := DefaultOptions()
	if o.Version == "" {
		o.Version = defaults.Version
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.MonitorInterval <= 0 {
		o.MonitorInterval = defaults.MonitorInterval
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Introspector == nil {
		o.Introspector = introspect.New(nil)
	}
	if o.Resolver == nil {
		o.Resolver = schemasource.New(schemasource.Options{
			Introspector: o.Introspector,
			Logger:       o.Logger,
		})
	}
	if o.Notifier == nil {
		o.Notifier = &watch.FSNotifier{Logger: o.Logger}
	}
	if o.Reporter == nil {
		o.Reporter = logReporter{logger: o.Logger}
	}
	if o.SupergraphPath == "" && o.WorkDir != "" {
		o.SupergraphPath = filepath.Join(o.WorkDir, "supergraph.graphql")
	}
}
