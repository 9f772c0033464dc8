// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/graphwright/graphwright/lib/fault"
	"github.com/graphwright/graphwright/lib/session"
	"github.com/graphwright/graphwright/lib/supergraph"
	"github.com/graphwright/graphwright/lib/watch"
)

// withdrawTimeout bounds the remove-subgraph calls a follower makes on
// its way out.
const withdrawTimeout = 10 * time.Second

// runFollower contributes this process's subgraphs to the leader's
// session and keeps them current until ctx is cancelled or the leader
// goes away.
func (o *Orchestrator) runFollower(ctx context.Context, definitions []supergraph.SubgraphDefinition) error {
	follower := session.NewFollower(o.options.SocketPath, session.FollowerOptions{
		Version: o.options.Version,
		Clock:   o.options.Clock,
		Logger:  o.logger,
	})
	if err := follower.Handshake(ctx); err != nil {
		return err
	}

	existing, _, err := follower.GetSubgraphs(ctx)
	if err != nil {
		return err
	}
	existingNames := make([]string, 0, len(existing))
	for _, subgraph := range existing {
		existingNames = append(existingNames, subgraph.Name)
	}
	o.logger.Info("joined session", "socket", o.options.SocketPath, "session_subgraphs", existingNames)

	owned := make(map[string]bool, len(definitions))
	defer o.withdraw(ctx, follower, owned)

	for _, definition := range definitions {
		// Owned before the call: an interrupted add may still land in
		// the leader, and withdraw must take it back out.
		owned[definition.Name] = true
		ack, err := follower.AddSubgraph(ctx, session.FromDefinition(definition))
		if err != nil {
			if errors.Is(err, session.ErrSubgraphExists) {
				delete(owned, definition.Name)
				return fault.New(fault.Protocol, "subgraph %s is already part of this session: %w", definition.Name, err).
					WithHint("rename the subgraph, or stop the process that contributed it")
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("adding subgraph %s to the session: %w", definition.Name, err)
		}
		o.reportAck(definition.Name, ack)
	}

	watchCtx, cancelWatchers := context.WithCancel(ctx)
	defer func() {
		cancelWatchers()
		o.watchers.Close()
	}()
	o.startWatchers(watchCtx, definitions)

	monitorDone := make(chan error, 1)
	go func() { monitorDone <- follower.Monitor(watchCtx, o.options.MonitorInterval) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-monitorDone:
			if err == nil {
				return nil
			}
			clear(owned)
			return err
		case event := <-o.events:
			if err := o.forwardEvent(watchCtx, follower, owned, event); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if errors.Is(err, session.ErrLeaderGone) {
					clear(owned)
				}
				return err
			}
		}
	}
}

// forwardEvent sends a local change to the leader.
func (o *Orchestrator) forwardEvent(ctx context.Context, follower *session.Follower, owned map[string]bool, event watch.Event) error {
	switch event.Kind {
	case watch.SubgraphUpdated:
		o.logger.Info("subgraph changed, sending to session leader", "subgraph", event.Name)
		owned[event.Name] = true
		ack, err := follower.UpdateSubgraph(ctx, session.Subgraph{
			Name:       event.Name,
			RoutingURL: event.RoutingURL,
			SDL:        event.SDL,
		})
		if err != nil {
			return fmt.Errorf("updating subgraph %s: %w", event.Name, err)
		}
		o.reportAck(event.Name, ack)

	case watch.SubgraphFailed:
		o.logger.Error("subgraph watcher gave up, keeping its last schema", "subgraph", event.Name, "error", event.Err)
		o.options.Reporter.Warn(fmt.Sprintf("stopped watching subgraph %s: %v", event.Name, event.Err))

	case watch.ConfigChanged:
		o.config = event.Config
		for _, name := range event.Diff.Removed {
			o.watchers.Stop(name)
			if !owned[name] {
				continue
			}
			ack, err := follower.RemoveSubgraph(ctx, name)
			if err != nil && !errors.Is(err, session.ErrUnknownSubgraph) {
				return fmt.Errorf("removing subgraph %s: %w", name, err)
			}
			delete(owned, name)
			o.reportAck(name, ack)
		}
		for _, name := range append(append([]string(nil), event.Diff.Added...), event.Diff.Changed...) {
			o.watchers.Stop(name)
			definition, err := o.options.Resolver.ResolveOne(ctx, name, event.Config.Subgraphs[name])
			if err != nil {
				o.options.Reporter.Warn(fmt.Sprintf("could not resolve subgraph %s: %v", name, err))
				continue
			}
			owned[name] = true
			ack, err := follower.UpdateSubgraph(ctx, session.FromDefinition(definition))
			if err != nil {
				return fmt.Errorf("updating subgraph %s: %w", name, err)
			}
			o.reportAck(name, ack)
			o.startSubgraphWatcher(ctx, definition)
		}
	}
	return nil
}

func (o *Orchestrator) reportAck(name string, ack session.CompositionAck) {
	if len(ack.Errors) > 0 {
		o.options.Reporter.CompositionFailed(supergraph.BuildErrors(ack.Errors))
		return
	}
	if ack.Composed {
		o.logger.Info("session leader recomposed the supergraph", "subgraph", name)
	}
}

// withdraw removes this follower's subgraphs from the session. It runs
// on every exit path; a leader that is already gone is not an error.
func (o *Orchestrator) withdraw(ctx context.Context, follower *session.Follower, owned map[string]bool) {
	if len(owned) == 0 {
		return
	}
	withdrawCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), withdrawTimeout)
	defer cancel()
	for name := range owned {
		if _, err := follower.RemoveSubgraph(withdrawCtx, name); err != nil {
			if errors.Is(err, session.ErrLeaderGone) {
				return
			}
			if errors.Is(err, session.ErrUnknownSubgraph) {
				o.logger.Debug("subgraph was never added to the session", "subgraph", name)
				continue
			}
			o.logger.Warn("removing subgraph from session", "subgraph", name, "error", err)
			continue
		}
		o.logger.Info("removed subgraph from session", "subgraph", name)
	}
}
