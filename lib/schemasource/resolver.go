// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package schemasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/graphwright/graphwright/lib/config"
	"github.com/graphwright/graphwright/lib/introspect"
	"github.com/graphwright/graphwright/lib/supergraph"
)

// DefaultConcurrency bounds simultaneous resolutions.
const DefaultConcurrency = 8

// RegistrySubgraph is what a registry knows about a published subgraph.
type RegistrySubgraph struct {
	SDL        string
	RoutingURL string
}

// RegistryClient fetches published subgraph schemas. The registry wire
// protocol lives outside this module.
type RegistryClient interface {
	FetchSubgraph(ctx context.Context, graphRef, subgraph string) (RegistrySubgraph, error)
}

// Introspector fetches SDL from a running subgraph. Implemented by
// [*introspect.Client].
type Introspector interface {
	FetchSubgraphSDL(ctx context.Context, url string, headers map[string]string) (string, error)
	FetchGraphSDL(ctx context.Context, url string, headers map[string]string) (string, error)
}

// Options configures a Resolver.
type Options struct {
	// Introspector defaults to introspect.New(nil).
	Introspector Introspector

	// Registry is required only for configs with registry sources.
	Registry RegistryClient

	// Concurrency defaults to DefaultConcurrency.
	Concurrency int

	Logger *slog.Logger
}

// Resolver resolves schema sources to SDL. Safe for concurrent use.
type Resolver struct {
	introspector Introspector
	registry     RegistryClient
	concurrency  int
	logger       *slog.Logger
}

// New returns a Resolver.
func New(options Options) *Resolver {
	if options.Introspector == nil {
		options.Introspector = introspect.New(nil)
	}
	if options.Concurrency <= 0 {
		options.Concurrency = DefaultConcurrency
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{
		introspector: options.Introspector,
		registry:     options.Registry,
		concurrency:  options.Concurrency,
		logger:       options.Logger,
	}
}

// Resolve resolves every subgraph in cfg. On success the definitions
// are in cfg.Names() order. On failure the error is a
// [ResolutionErrors] naming every subgraph that failed.
func (r *Resolver) Resolve(ctx context.Context, cfg *config.SupergraphConfig) ([]supergraph.SubgraphDefinition, error) {
	names := cfg.Names()
	definitions := make([]supergraph.SubgraphDefinition, len(names))

	var (
		mutex    sync.Mutex
		failures ResolutionErrors
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)
	for i, name := range names {
		subgraph := cfg.Subgraphs[name]
		group.Go(func() error {
			definition, err := r.ResolveOne(groupCtx, name, subgraph)
			if err != nil {
				var resolutionErr *ResolutionError
				if !errors.As(err, &resolutionErr) {
					resolutionErr = &ResolutionError{Subgraph: name, Source: subgraph.Schema.String(), Err: err}
				}
				mutex.Lock()
				failures = append(failures, resolutionErr)
				mutex.Unlock()
				return nil
			}
			definitions[i] = definition
			return nil
		})
	}
	// Goroutines never return errors, so one failure never cancels the
	// others.
	_ = group.Wait()

	if len(failures) > 0 {
		sort.Slice(failures, func(a, b int) bool { return failures[a].Subgraph < failures[b].Subgraph })
		return nil, failures
	}
	return definitions, nil
}

// ResolveOne resolves a single subgraph. Errors are *ResolutionError.
func (r *Resolver) ResolveOne(ctx context.Context, name string, subgraph config.SubgraphConfig) (supergraph.SubgraphDefinition, error) {
	source := subgraph.Schema
	fail := func(err error) (supergraph.SubgraphDefinition, error) {
		return supergraph.SubgraphDefinition{}, &ResolutionError{Subgraph: name, Source: source.String(), Err: err}
	}

	definition := supergraph.SubgraphDefinition{
		SubgraphKey: supergraph.SubgraphKey{Name: name, RoutingURL: subgraph.RoutingURL},
	}

	switch source.Kind {
	case config.SourceFile:
		data, err := os.ReadFile(source.Path)
		if err != nil {
			return fail(fmt.Errorf("reading schema file: %w", err))
		}
		definition.SDL = string(data)

	case config.SourceIntrospect:
		sdl, err := r.Introspect(ctx, name, source.URL, source.Headers)
		if err != nil {
			return fail(err)
		}
		definition.SDL = sdl
		if definition.RoutingURL == "" {
			definition.RoutingURL = source.URL
		}

	case config.SourceRegistry:
		if r.registry == nil {
			return fail(errors.New("registry sources need a registry client, and none is configured"))
		}
		published, err := r.registry.FetchSubgraph(ctx, source.GraphRef, source.Subgraph)
		if err != nil {
			return fail(fmt.Errorf("fetching from registry: %w", err))
		}
		definition.SDL = published.SDL
		if definition.RoutingURL == "" {
			definition.RoutingURL = published.RoutingURL
		}
		if definition.RoutingURL == "" {
			return fail(ErrNoRoutingURL)
		}

	case config.SourceInline:
		definition.SDL = source.SDL

	default:
		return fail(fmt.Errorf("unknown schema source kind %q", source.Kind))
	}

	r.logger.Debug("resolved subgraph",
		"subgraph", name,
		"source", source.String(),
		"routing_url", definition.RoutingURL,
		"bytes", len(definition.SDL),
	)
	return definition, nil
}

// Introspect fetches SDL with federated introspection, falling back to
// standard introspection when the endpoint rejects the federated query.
func (r *Resolver) Introspect(ctx context.Context, name, url string, headers map[string]string) (string, error) {
	sdl, err := r.introspector.FetchSubgraphSDL(ctx, url, headers)
	if err == nil {
		return sdl, nil
	}
	var queryErr *introspect.QueryError
	if !errors.As(err, &queryErr) {
		return "", err
	}

	r.logger.Warn("subgraph does not support federated introspection, using standard introspection; federation directives will be missing",
		"subgraph", name,
		"url", url,
		"error", err,
	)
	sdl, fallbackErr := r.introspector.FetchGraphSDL(ctx, url, headers)
	if fallbackErr != nil {
		return "", fmt.Errorf("federated introspection failed (%v), then standard introspection failed: %w", err, fallbackErr)
	}
	return sdl, nil
}
