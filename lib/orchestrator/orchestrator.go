// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/graphwright/graphwright/lib/atomicfile"
	"github.com/graphwright/graphwright/lib/config"
	"github.com/graphwright/graphwright/lib/fault"
	"github.com/graphwright/graphwright/lib/federation"
	"github.com/graphwright/graphwright/lib/session"
	"github.com/graphwright/graphwright/lib/supergraph"
	"github.com/graphwright/graphwright/lib/watch"
)

// eventBuffer absorbs bursts from several watchers firing at once
// while a composition is running.
const eventBuffer = 16

// configWatcherName keys the config file watcher in the watcher set.
// The colon keeps it apart from every valid subgraph name.
const configWatcherName = "config:supergraph"

// errKillRequested ends the leader loop after a follower's
// kill-router request.
var errKillRequested = errors.New("kill requested by a session follower")

// Orchestrator runs one dev session.
type Orchestrator struct {
	options Options
	logger  *slog.Logger

	events   chan watch.Event
	requests chan request
	done     chan struct{}

	// Owned by the loop goroutine once Run starts.
	config        *config.SupergraphConfig
	resolved      *supergraph.ResolvedConfig
	resolution    federation.Resolution
	watchers      *watch.Set
	routerRunning bool

	mu           sync.Mutex
	compositions int
}

// New returns an Orchestrator. Composer and Router are required.
func New(options Options) (*Orchestrator, error) {
	options.fillDefaults()
	if options.Composer == nil {
		return nil, errors.New("orchestrator needs a composer")
	}
	if options.Router == nil {
		return nil, errors.New("orchestrator needs a router manager")
	}
	if options.SupergraphPath == "" {
		return nil, errors.New("orchestrator needs a work directory or supergraph path")
	}
	if options.RetryBudget < 0 {
		return nil, fmt.Errorf("retry budget %d is negative", options.RetryBudget)
	}
	events := make(chan watch.Event, eventBuffer)
	return &Orchestrator{
		options:  options,
		logger:   options.Logger,
		events:   events,
		requests: make(chan request),
		done:     make(chan struct{}),
		watchers: watch.NewSet(events, options.Logger),
	}, nil
}

// Compositions returns how many compositions have been attempted.
func (o *Orchestrator) Compositions() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.compositions
}

// Run resolves this process's subgraphs, joins or starts the session
// and runs until ctx is cancelled, a fatal error occurs, or (as a
// follower) the leader goes away.
func (o *Orchestrator) Run(ctx context.Context) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	o.config = cfg

	definitions, err := o.options.Resolver.Resolve(ctx, cfg)
	if err != nil {
		return fmt.Errorf("resolving subgraph schemas: %w", err)
	}

	if o.options.SocketPath == "" {
		return o.runLeader(ctx, nil, definitions)
	}

	election, err := session.Elect(ctx, o.options.SocketPath, o.logger)
	if err != nil {
		return err
	}
	if election.Role == session.RoleFollower {
		return o.runFollower(ctx, definitions)
	}
	return o.runLeader(ctx, election, definitions)
}

func (o *Orchestrator) loadConfig() (*config.SupergraphConfig, error) {
	if o.options.ConfigPath == "" {
		return &config.SupergraphConfig{Subgraphs: map[string]config.SubgraphConfig{}}, nil
	}
	return config.Load(o.options.ConfigPath)
}

func (o *Orchestrator) watchDependencies() watch.Dependencies {
	return watch.Dependencies{
		Notifier:     o.options.Notifier,
		Introspector: o.options.Introspector,
		Clock:        o.options.Clock,
		Logger:       o.logger,
		PollInterval: o.options.PollInterval,
		RetryBudget:  o.options.RetryBudget,
	}
}

// startWatchers starts the config watcher and one watcher per
// subgraph whose source can change on its own.
func (o *Orchestrator) startWatchers(ctx context.Context, definitions []supergraph.SubgraphDefinition) {
	if o.config.Path != "" {
		o.watchers.Start(ctx, configWatcherName, &watch.ConfigWatcher{
			Path:     o.config.Path,
			Initial:  o.config,
			Notifier: o.options.Notifier,
			Logger:   o.logger,
		})
	}
	for _, definition := range definitions {
		o.startSubgraphWatcher(ctx, definition)
	}
}

func (o *Orchestrator) startSubgraphWatcher(ctx context.Context, definition supergraph.SubgraphDefinition) {
	subgraphConfig, ok := o.config.Subgraphs[definition.Name]
	if !ok {
		return
	}
	runner := watch.ForSubgraph(definition, subgraphConfig, o.watchDependencies())
	if runner == nil {
		o.watchers.Stop(definition.Name)
		return
	}
	o.watchers.Start(ctx, definition.Name, runner)
}

func (o *Orchestrator) runLeader(ctx context.Context, election *session.Election, definitions []supergraph.SubgraphDefinition) (err error) {
	defer close(o.done)

	resolution, err := federation.Resolve(o.federationInput(definitionSDLs(definitions)))
	if err != nil {
		if election != nil {
			election.Close()
		}
		return err
	}
	o.setResolution(resolution)
	o.resolved = supergraph.NewResolvedConfig(resolution.Version)
	for _, definition := range definitions {
		o.resolved.Put(definition)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var server sync.WaitGroup
	if election != nil {
		leader, leaderErr := session.NewLeader(election, o.options.Version, o, o.logger)
		if leaderErr != nil {
			election.Close()
			return leaderErr
		}
		server.Add(1)
		go func() {
			defer server.Done()
			if serveErr := leader.Serve(loopCtx); serveErr != nil {
				o.logger.Error("session server stopped", "error", serveErr)
			}
		}()
	}

	defer func() {
		cancel()
		server.Wait()
		o.watchers.Close()
		if killErr := o.options.Router.Kill(context.WithoutCancel(ctx)); killErr != nil {
			o.logger.Error("stopping router", "error", killErr)
			if err == nil {
				err = killErr
			}
		}
	}()

	o.startWatchers(loopCtx, definitions)

	if o.resolved.Len() > 0 {
		if _, err := o.recompose(loopCtx); err != nil {
			return err
		}
	} else {
		o.logger.Info("waiting for subgraphs from session followers")
	}

	err = o.loop(loopCtx)
	if errors.Is(err, errKillRequested) {
		o.logger.Info("session killed by a follower")
		return nil
	}
	return err
}

// loop applies changes one at a time until ctx is cancelled or a
// fatal error occurs.
func (o *Orchestrator) loop(ctx context.Context) error {
	for {
		// Re-read every iteration: the channel belongs to the current
		// router process and is nil when none is running.
		var routerExited <-chan struct{}
		if o.routerRunning {
			routerExited = o.options.Router.Exited()
		}

		var err error
		select {
		case <-ctx.Done():
			return nil
		case event := <-o.events:
			err = o.handleEvent(ctx, event)
		case req := <-o.requests:
			err = o.handleRequest(ctx, req)
		case <-routerExited:
			o.handleRouterExit()
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (o *Orchestrator) handleEvent(ctx context.Context, event watch.Event) error {
	switch event.Kind {
	case watch.SubgraphUpdated:
		definition := supergraph.SubgraphDefinition{
			SubgraphKey: supergraph.SubgraphKey{Name: event.Name, RoutingURL: event.RoutingURL},
			SDL:         event.SDL,
		}
		if !o.resolved.Put(definition) {
			o.logger.Debug("subgraph unchanged, skipping composition", "subgraph", event.Name)
			return nil
		}
		o.logger.Info("subgraph changed", "subgraph", event.Name)
		_, err := o.recompose(ctx)
		return err

	case watch.SubgraphFailed:
		o.logger.Error("subgraph watcher gave up, keeping its last schema", "subgraph", event.Name, "error", event.Err)
		o.options.Reporter.Warn(fmt.Sprintf("stopped watching subgraph %s: %v", event.Name, event.Err))
		return nil

	case watch.ConfigChanged:
		return o.applyConfig(ctx, event.Config, event.Diff)
	}
	return nil
}

// applyConfig brings watchers and subgraphs in line with a reloaded
// config file and recomposes once.
func (o *Orchestrator) applyConfig(ctx context.Context, next *config.SupergraphConfig, diff config.Diff) error {
	o.config = next
	changed := diff.FederationVersionChanged

	for _, name := range diff.Removed {
		o.watchers.Stop(name)
		if o.resolved.Remove(name) {
			changed = true
		}
		o.logger.Info("subgraph removed from config", "subgraph", name)
	}

	for _, name := range append(append([]string(nil), diff.Added...), diff.Changed...) {
		o.watchers.Stop(name)
		definition, err := o.options.Resolver.ResolveOne(ctx, name, next.Subgraphs[name])
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			o.logger.Error("resolving subgraph from updated config", "subgraph", name, "error", err)
			o.options.Reporter.Warn(fmt.Sprintf("could not resolve subgraph %s: %v", name, err))
			continue
		}
		if o.resolved.Put(definition) {
			changed = true
		}
		o.startSubgraphWatcher(ctx, definition)
	}

	if !changed {
		return nil
	}
	_, err := o.recompose(ctx)
	return err
}

func (o *Orchestrator) handleRouterExit() {
	exitCode := o.options.Router.MarkExited()
	o.routerRunning = false
	o.logger.Error("router exited unexpectedly; it will restart after the next successful composition", "exit_code", exitCode)
	o.options.Reporter.Warn(fmt.Sprintf("router exited with code %d", exitCode))
}

func (o *Orchestrator) federationInput(sdls map[string]string) federation.Input {
	return federation.Input{
		Explicit:   o.options.FederationVersion,
		FromConfig: o.config.FederationVersion,
		Subgraphs:  sdls,
	}
}

func (o *Orchestrator) setResolution(resolution federation.Resolution) {
	if resolution.Version != o.resolution.Version {
		o.logger.Info("federation version resolved",
			"version", resolution.Version.String(),
			"source", string(resolution.Source))
		for _, warning := range resolution.Warnings {
			o.options.Reporter.Warn(warning)
		}
	}
	o.resolution = resolution
}

// recompose composes the current subgraphs. Build failures stop the
// router and are reported, not returned; the returned error is fatal
// to the session.
func (o *Orchestrator) recompose(ctx context.Context) (session.CompositionAck, error) {
	if o.resolved.Len() == 0 {
		o.logger.Info("no subgraphs left, stopping the router")
		o.stopRouter(ctx)
		return session.CompositionAck{}, nil
	}

	resolution, err := federation.Resolve(o.federationInput(o.resolved.SDLs()))
	if err != nil {
		return o.compositionFailed(ctx, err), nil
	}
	o.setResolution(resolution)
	o.resolved.FederationVersion = resolution.Version

	o.mu.Lock()
	o.compositions++
	o.mu.Unlock()

	output, err := o.options.Composer.Compose(ctx, o.resolved.Clone())
	if err != nil {
		if ctx.Err() != nil {
			return session.CompositionAck{}, ctx.Err()
		}
		return o.compositionFailed(ctx, err), nil
	}

	if err := atomicfile.Write(o.options.SupergraphPath, []byte(output.SupergraphSDL), 0o644); err != nil {
		return session.CompositionAck{}, fmt.Errorf("writing supergraph: %w", err)
	}
	o.options.Reporter.Composed(output)

	if !o.routerRunning {
		if err := o.startRouter(ctx); err != nil {
			return session.CompositionAck{}, err
		}
	}
	return session.CompositionAck{Composed: true}, nil
}

func (o *Orchestrator) compositionFailed(ctx context.Context, err error) session.CompositionAck {
	o.options.Reporter.CompositionFailed(err)
	o.stopRouter(ctx)

	var buildErrors supergraph.BuildErrors
	if errors.As(err, &buildErrors) {
		return session.CompositionAck{Errors: buildErrors}
	}
	return session.CompositionAck{Errors: []supergraph.BuildError{{
		Message: err.Error(),
		Code:    string(fault.CategoryOf(err)),
	}}}
}

func (o *Orchestrator) startRouter(ctx context.Context) error {
	if err := o.options.Router.Spawn(ctx, o.options.SupergraphPath); err != nil {
		return err
	}
	o.routerRunning = true
	if err := o.options.Router.WaitForStartup(ctx); err != nil {
		return err
	}
	o.options.Reporter.RouterReady(o.options.Router.Endpoint())
	return nil
}

func (o *Orchestrator) stopRouter(ctx context.Context) {
	if !o.routerRunning {
		return
	}
	o.routerRunning = false
	if err := o.options.Router.Kill(ctx); err != nil {
		o.logger.Error("stopping router", "error", err)
	}
}

func definitionSDLs(definitions []supergraph.SubgraphDefinition) map[string]string {
	sdls := make(map[string]string, len(definitions))
	for _, definition := range definitions {
		sdls[definition.Name] = definition.SDL
	}
	return sdls
}
