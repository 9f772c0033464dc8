// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"

	"github.com/graphwright/graphwright/lib/codec"
	"github.com/graphwright/graphwright/lib/fault"
	"github.com/graphwright/graphwright/lib/supergraph"
)

// Action names.
const (
	ActionAddSubgraph    = "add-subgraph"
	ActionUpdateSubgraph = "update-subgraph"
	ActionRemoveSubgraph = "remove-subgraph"
	ActionGetSubgraphs   = "get-subgraphs"
	ActionKillRouter     = "kill-router"
	ActionHealthCheck    = "health-check"
	ActionGetVersion     = "get-version"
)

// Error codes carried in Response.Code so followers can recognise
// specific failures without parsing messages.
const (
	codeSubgraphExists  = "subgraph-exists"
	codeUnknownSubgraph = "unknown-subgraph"
)

var (
	// ErrSubgraphExists is returned when adding a subgraph whose name
	// is already in the session.
	ErrSubgraphExists = errors.New("subgraph already exists in this session")

	// ErrUnknownSubgraph is returned when removing a subgraph the
	// session does not have.
	ErrUnknownSubgraph = errors.New("subgraph is not part of this session")

	// ErrLeaderGone means the leader stopped answering. Followers shut
	// down when they see it.
	ErrLeaderGone = fault.New(fault.Protocol, "main session has been killed, shutting down")
)

// Response is the envelope for every reply.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Code  string           `cbor:"code,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// Subgraph is a subgraph as exchanged over the socket.
type Subgraph struct {
	Name       string `cbor:"name"`
	RoutingURL string `cbor:"routing_url"`
	SDL        string `cbor:"sdl"`
}

// Definition converts to the data model type.
func (s Subgraph) Definition() supergraph.SubgraphDefinition {
	return supergraph.SubgraphDefinition{
		SubgraphKey: supergraph.SubgraphKey{Name: s.Name, RoutingURL: s.RoutingURL},
		SDL:         s.SDL,
	}
}

// FromDefinition converts from the data model type.
func FromDefinition(definition supergraph.SubgraphDefinition) Subgraph {
	return Subgraph{Name: definition.Name, RoutingURL: definition.RoutingURL, SDL: definition.SDL}
}

// subgraphRequest carries add-subgraph and update-subgraph fields.
type subgraphRequest struct {
	Subgraph Subgraph `cbor:"subgraph"`
}

type removeRequest struct {
	Name string `cbor:"name"`
}

// VersionInfo answers get-version.
type VersionInfo struct {
	LeaderVersion string `cbor:"leader_version"`
}

// SubgraphList answers get-subgraphs.
type SubgraphList struct {
	Subgraphs []Subgraph `cbor:"subgraphs"`
}

// CompositionAck reports the recomposition a subgraph change caused.
// Composed is false when the change did not alter the supergraph (an
// identical update) or composition failed; Errors says which.
type CompositionAck struct {
	Composed bool                    `cbor:"composed"`
	Errors   []supergraph.BuildError `cbor:"errors,omitempty"`
}

// ProtocolError is a leader/follower version mismatch.
type ProtocolError struct {
	LeaderVersion   string
	FollowerVersion string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("this session is led by graphwright %s, but this process is graphwright %s",
		e.LeaderVersion, e.FollowerVersion)
}

func (e *ProtocolError) FaultCategory() fault.Category { return fault.Protocol }

func (e *ProtocolError) FaultHint() string {
	return "use matching CLI versions for every process in a session, or start this one with a different --session"
}

// RemoteError is a failure reported by the leader.
type RemoteError struct {
	Action  string
	Message string
	Code    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("leader rejected %s: %s", e.Action, e.Message)
}

// Is lets errors.Is match the sentinel a code stands for.
func (e *RemoteError) Is(target error) bool {
	switch e.Code {
	case codeSubgraphExists:
		return target == ErrSubgraphExists
	case codeUnknownSubgraph:
		return target == ErrUnknownSubgraph
	}
	return false
}

func (e *RemoteError) FaultCategory() fault.Category { return fault.Protocol }

// UnreachableError is a dial failure other than "nothing listening":
// permissions, a timeout, or a path that is not a socket.
type UnreachableError struct {
	SocketPath string
	Err        error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("session socket %s is unreachable: %v", e.SocketPath, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

func (e *UnreachableError) FaultCategory() fault.Category { return fault.Protocol }
