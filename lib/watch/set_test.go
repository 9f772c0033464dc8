// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/graphwright/graphwright/lib/config"
	"github.com/graphwright/graphwright/lib/supergraph"
	"github.com/graphwright/graphwright/lib/testutil"
)

type blockingRunner struct {
	started chan struct{}
	stopped chan struct{}
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{started: make(chan struct{}), stopped: make(chan struct{})}
}

func (r *blockingRunner) Run(ctx context.Context, events chan<- Event) error {
	close(r.started)
	<-ctx.Done()
	close(r.stopped)
	return nil
}

func TestSetStartStopReplace(t *testing.T) {
	events := make(chan Event)
	set := NewSet(events, testLogger())
	ctx := context.Background()

	first := newBlockingRunner()
	other := newBlockingRunner()
	set.Start(ctx, "a", first)
	set.Start(ctx, "b", other)
	testutil.RequireClosed(t, first.started, 5*time.Second, "a did not start")
	testutil.RequireClosed(t, other.started, 5*time.Second, "b did not start")
	if names := set.Names(); !slices.Equal(names, []string{"a", "b"}) {
		t.Errorf("Names() = %v", names)
	}

	replacement := newBlockingRunner()
	set.Start(ctx, "a", replacement)
	testutil.RequireClosed(t, first.stopped, 5*time.Second, "replaced watcher still running")
	testutil.RequireClosed(t, replacement.started, 5*time.Second, "replacement did not start")

	set.Stop("b")
	testutil.RequireClosed(t, other.stopped, 5*time.Second, "b still running after Stop")
	set.Stop("unknown")
	if names := set.Names(); !slices.Equal(names, []string{"a"}) {
		t.Errorf("Names() after Stop = %v", names)
	}

	set.Close()
	testutil.RequireClosed(t, replacement.stopped, 5*time.Second, "a still running after Close")
	if len(set.Names()) != 0 {
		t.Errorf("Names() after Close = %v", set.Names())
	}
}

func TestForSubgraph(t *testing.T) {
	definition := supergraph.SubgraphDefinition{
		SubgraphKey: supergraph.SubgraphKey{Name: "a", RoutingURL: "http://a"},
		SDL:         "type Query { a: Int }",
	}
	deps := Dependencies{Logger: testLogger(), RetryBudget: 3}

	file := ForSubgraph(definition, config.SubgraphConfig{Schema: config.SchemaSource{Kind: config.SourceFile, Path: "/s/a.graphql"}}, deps)
	if fileWatcher, ok := file.(*FileWatcher); !ok || fileWatcher.Path != "/s/a.graphql" || fileWatcher.InitialSDL != definition.SDL {
		t.Errorf("file source watcher = %#v", file)
	}

	polled := ForSubgraph(definition, config.SubgraphConfig{Schema: config.SchemaSource{Kind: config.SourceIntrospect, URL: "http://a/graphql"}}, deps)
	if introspectWatcher, ok := polled.(*IntrospectWatcher); !ok || introspectWatcher.URL != "http://a/graphql" || introspectWatcher.RetryBudget != 3 {
		t.Errorf("introspect source watcher = %#v", polled)
	}

	for _, kind := range []config.SourceKind{config.SourceInline, config.SourceRegistry} {
		if runner := ForSubgraph(definition, config.SubgraphConfig{Schema: config.SchemaSource{Kind: kind}}, deps); runner != nil {
			t.Errorf("%s source got watcher %#v", kind, runner)
		}
	}
}
