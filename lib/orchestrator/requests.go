// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/graphwright/graphwright/lib/config"
	"github.com/graphwright/graphwright/lib/session"
)

type requestKind int

const (
	requestAdd requestKind = iota
	requestUpdate
	requestRemove
	requestList
	requestKill
)

// request is a follower's call, answered by the loop goroutine.
type request struct {
	kind     requestKind
	subgraph session.Subgraph
	name     string
	reply    chan reply
}

type reply struct {
	ack       session.CompositionAck
	subgraphs []session.Subgraph
	err       error
}

var errShuttingDown = errors.New("session is shutting down")

// submit hands req to the loop and waits for the answer.
func (o *Orchestrator) submit(ctx context.Context, req request) reply {
	req.reply = make(chan reply, 1)
	select {
	case o.requests <- req:
	case <-o.done:
		return reply{err: errShuttingDown}
	case <-ctx.Done():
		return reply{err: ctx.Err()}
	}
	select {
	case answer := <-req.reply:
		return answer
	case <-o.done:
		return reply{err: errShuttingDown}
	case <-ctx.Done():
		return reply{err: ctx.Err()}
	}
}

// AddSubgraph implements [session.Handler].
func (o *Orchestrator) AddSubgraph(ctx context.Context, subgraph session.Subgraph) (session.CompositionAck, error) {
	answer := o.submit(ctx, request{kind: requestAdd, subgraph: subgraph})
	return answer.ack, answer.err
}

// UpdateSubgraph implements [session.Handler].
func (o *Orchestrator) UpdateSubgraph(ctx context.Context, subgraph session.Subgraph) (session.CompositionAck, error) {
	answer := o.submit(ctx, request{kind: requestUpdate, subgraph: subgraph})
	return answer.ack, answer.err
}

// RemoveSubgraph implements [session.Handler].
func (o *Orchestrator) RemoveSubgraph(ctx context.Context, name string) (session.CompositionAck, error) {
	answer := o.submit(ctx, request{kind: requestRemove, name: name})
	return answer.ack, answer.err
}

// Subgraphs implements [session.Handler].
func (o *Orchestrator) Subgraphs(ctx context.Context) ([]session.Subgraph, error) {
	answer := o.submit(ctx, request{kind: requestList})
	return answer.subgraphs, answer.err
}

// KillRouter implements [session.Handler]. The session shuts down once
// the reply is sent.
func (o *Orchestrator) KillRouter(ctx context.Context) error {
	return o.submit(ctx, request{kind: requestKill}).err
}

func (o *Orchestrator) handleRequest(ctx context.Context, req request) error {
	var answer reply
	var fatal error

	if req.kind == requestAdd || req.kind == requestUpdate {
		if err := config.ValidateSubgraphName(req.subgraph.Name); err != nil {
			req.reply <- reply{err: err}
			return nil
		}
	}

	switch req.kind {
	case requestAdd:
		if _, exists := o.resolved.Get(req.subgraph.Name); exists {
			answer.err = fmt.Errorf("adding subgraph %s: %w", req.subgraph.Name, session.ErrSubgraphExists)
			break
		}
		o.logger.Info("follower added subgraph", "subgraph", req.subgraph.Name)
		o.resolved.Put(req.subgraph.Definition())
		answer.ack, fatal = o.recompose(ctx)

	case requestUpdate:
		if !o.resolved.Put(req.subgraph.Definition()) {
			break
		}
		o.logger.Info("follower updated subgraph", "subgraph", req.subgraph.Name)
		answer.ack, fatal = o.recompose(ctx)

	case requestRemove:
		if !o.resolved.Remove(req.name) {
			answer.err = fmt.Errorf("removing subgraph %s: %w", req.name, session.ErrUnknownSubgraph)
			break
		}
		o.logger.Info("follower removed subgraph", "subgraph", req.name)
		answer.ack, fatal = o.recompose(ctx)

	case requestList:
		for _, definition := range o.resolved.Subgraphs() {
			answer.subgraphs = append(answer.subgraphs, session.FromDefinition(definition))
		}

	case requestKill:
		fatal = errKillRequested
	}

	if fatal != nil && answer.err == nil && !errors.Is(fatal, errKillRequested) {
		answer.err = fatal
	}
	req.reply <- answer
	return fatal
}
