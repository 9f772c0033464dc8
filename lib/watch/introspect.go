// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/graphwright/graphwright/lib/clock"
	"github.com/graphwright/graphwright/lib/introspect"
)

// DefaultPollInterval is how often an introspection source is polled
// when the caller does not say.
const DefaultPollInterval = time.Second

// failureWarningInterval throttles repeated poll-failure warnings for a
// subgraph that is down for a while.
const failureWarningInterval = 30 * time.Second

// Introspector is the subset of [*introspect.Client] an
// IntrospectWatcher needs.
type Introspector interface {
	FetchSubgraphSDL(ctx context.Context, url string, headers map[string]string) (string, error)
	FetchGraphSDL(ctx context.Context, url string, headers map[string]string) (string, error)
}

// IntrospectWatcher polls a running subgraph and reports schema
// changes.
//
// Federated introspection is tried first. When the endpoint rejects it,
// standard introspection is used instead and a warning is logged once.
// After federated introspection has succeeded once, the fallback is
// never used again for this watcher.
type IntrospectWatcher struct {
	Name       string
	RoutingURL string
	URL        string
	Headers    map[string]string

	// InitialSDL is the content already reported to the consumer.
	InitialSDL string

	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration

	// RetryBudget is the number of consecutive failed polls tolerated
	// before the watcher reports SubgraphFailed and exits. Zero means
	// unlimited.
	RetryBudget int

	Introspector Introspector
	Clock        clock.Clock
	Logger       *slog.Logger

	federatedWorks bool
	warnedFallback bool
}

// Run polls until ctx is cancelled or the retry budget is exhausted.
func (w *IntrospectWatcher) Run(ctx context.Context, events chan<- Event) error {
	interval := w.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := w.Clock.NewTicker(interval)
	defer ticker.Stop()

	warnings := rate.NewLimiter(rate.Every(failureWarningInterval), 1)
	last := w.InitialSDL
	failures := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		sdl, err := w.fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			if w.RetryBudget > 0 && failures > w.RetryBudget {
				failure := fmt.Errorf("introspecting subgraph %s at %s failed %d times in a row: %w", w.Name, w.URL, failures, err)
				w.Logger.Error("giving up on subgraph", "subgraph", w.Name, "url", w.URL, "error", err)
				send(ctx, events, Event{Kind: SubgraphFailed, Name: w.Name, RoutingURL: w.RoutingURL, Err: failure})
				return failure
			}
			if warnings.AllowN(w.Clock.Now(), 1) {
				w.Logger.Warn("introspection failed, keeping the previous schema",
					"subgraph", w.Name,
					"url", w.URL,
					"consecutive_failures", failures,
					"error", err,
				)
			}
			continue
		}

		if failures > 0 {
			w.Logger.Info("subgraph is reachable again", "subgraph", w.Name, "url", w.URL)
			failures = 0
		}
		if sdl == last {
			continue
		}
		last = sdl
		w.Logger.Info("introspected schema changed", "subgraph", w.Name, "url", w.URL)
		if !send(ctx, events, Event{Kind: SubgraphUpdated, Name: w.Name, RoutingURL: w.RoutingURL, SDL: sdl}) {
			return nil
		}
	}
}

func (w *IntrospectWatcher) fetch(ctx context.Context) (string, error) {
	sdl, err := w.Introspector.FetchSubgraphSDL(ctx, w.URL, w.Headers)
	if err == nil {
		w.federatedWorks = true
		return sdl, nil
	}
	var queryErr *introspect.QueryError
	if w.federatedWorks || !errors.As(err, &queryErr) {
		return "", err
	}

	if !w.warnedFallback {
		w.warnedFallback = true
		w.Logger.Warn("subgraph does not support federated introspection, using standard introspection; federation directives will be missing",
			"subgraph", w.Name,
			"url", w.URL,
		)
	}
	return w.Introspector.FetchGraphSDL(ctx, w.URL, w.Headers)
}
