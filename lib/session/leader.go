// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/graphwright/graphwright/lib/codec"
	"github.com/graphwright/graphwright/lib/netutil"
)

const (
	// maxRequestSize caps a single request. Subgraph SDL is the largest
	// payload; 8 MiB is far beyond any real schema.
	maxRequestSize = 8 << 20

	readTimeout  = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler applies follower requests to the leader's state. Calls are
// made from connection goroutines concurrently; the implementation
// serialises them.
type Handler interface {
	AddSubgraph(ctx context.Context, subgraph Subgraph) (CompositionAck, error)
	UpdateSubgraph(ctx context.Context, subgraph Subgraph) (CompositionAck, error)
	RemoveSubgraph(ctx context.Context, name string) (CompositionAck, error)
	Subgraphs(ctx context.Context) ([]Subgraph, error)
	KillRouter(ctx context.Context) error
}

type actionFunc func(ctx context.Context, raw []byte) (any, error)

// Leader serves the session socket.
type Leader struct {
	socketPath string
	listener   net.Listener
	version    string
	handler    Handler
	logger     *slog.Logger
	actions    map[string]actionFunc

	connections sync.WaitGroup
}

// NewLeader takes ownership of a leader election's listener.
func NewLeader(election *Election, version string, handler Handler, logger *slog.Logger) (*Leader, error) {
	if election.Role != RoleLeader || election.listener == nil {
		return nil, fmt.Errorf("session %s was not won by this process", election.SocketPath)
	}
	leader := &Leader{
		socketPath: election.SocketPath,
		listener:   election.listener,
		version:    version,
		handler:    handler,
		logger:     logger.With("component", "session-leader"),
	}
	election.listener = nil
	leader.actions = map[string]actionFunc{
		ActionAddSubgraph:    leader.addSubgraph,
		ActionUpdateSubgraph: leader.updateSubgraph,
		ActionRemoveSubgraph: leader.removeSubgraph,
		ActionGetSubgraphs:   leader.getSubgraphs,
		ActionKillRouter:     leader.killRouter,
		ActionHealthCheck:    leader.healthCheck,
		ActionGetVersion:     leader.getVersion,
	}
	return leader, nil
}

// SocketPath returns the path followers dial.
func (l *Leader) SocketPath() string { return l.socketPath }

// Serve accepts connections until ctx is cancelled, then waits for
// in-flight requests and removes the socket file.
func (l *Leader) Serve(ctx context.Context) error {
	defer os.Remove(l.socketPath)

	go func() {
		<-ctx.Done()
		l.listener.Close()
	}()

	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				l.connections.Wait()
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				l.connections.Wait()
				return nil
			}
			l.logger.Error("accept failed", "error", err)
			continue
		}
		l.connections.Add(1)
		go func() {
			defer l.connections.Done()
			l.handle(ctx, conn)
		}()
	}
}

func (l *Leader) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(readTimeout))

	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw); err != nil {
		// Election probes connect and hang up without sending anything.
		if !netutil.IsExpectedCloseError(err) {
			l.logger.Debug("discarding unreadable request", "error", err)
			l.reply(conn, Response{Error: fmt.Sprintf("decoding request: %v", err)})
		}
		return
	}
	conn.SetReadDeadline(time.Time{})

	var header struct {
		Action   string `cbor:"action"`
		ClientID string `cbor:"client_id"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		l.reply(conn, Response{Error: fmt.Sprintf("decoding request header: %v", err)})
		return
	}

	action, ok := l.actions[header.Action]
	if !ok {
		l.reply(conn, Response{Error: fmt.Sprintf("unknown action %q", header.Action)})
		return
	}

	logger := l.logger.With("action", header.Action, "client", header.ClientID)
	result, err := action(ctx, raw)
	if err != nil {
		logger.Debug("request failed", "error", err)
		l.reply(conn, Response{Error: err.Error(), Code: errorCode(err)})
		return
	}
	logger.Debug("request handled")

	response := Response{OK: true}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			l.reply(conn, Response{Error: fmt.Sprintf("encoding %s result: %v", header.Action, err)})
			return
		}
		response.Data = data
	}
	l.reply(conn, response)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrSubgraphExists):
		return codeSubgraphExists
	case errors.Is(err, ErrUnknownSubgraph):
		return codeUnknownSubgraph
	}
	return ""
}

func (l *Leader) reply(conn net.Conn, response Response) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(response); err != nil && !netutil.IsExpectedCloseError(err) {
		l.logger.Debug("writing response failed", "error", err)
	}
}

func (l *Leader) addSubgraph(ctx context.Context, raw []byte) (any, error) {
	var request subgraphRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("decoding add-subgraph request: %w", err)
	}
	if request.Subgraph.Name == "" {
		return nil, errors.New("subgraph name is required")
	}
	return l.handler.AddSubgraph(ctx, request.Subgraph)
}

func (l *Leader) updateSubgraph(ctx context.Context, raw []byte) (any, error) {
	var request subgraphRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("decoding update-subgraph request: %w", err)
	}
	if request.Subgraph.Name == "" {
		return nil, errors.New("subgraph name is required")
	}
	return l.handler.UpdateSubgraph(ctx, request.Subgraph)
}

func (l *Leader) removeSubgraph(ctx context.Context, raw []byte) (any, error) {
	var request removeRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("decoding remove-subgraph request: %w", err)
	}
	return l.handler.RemoveSubgraph(ctx, request.Name)
}

func (l *Leader) getSubgraphs(ctx context.Context, _ []byte) (any, error) {
	subgraphs, err := l.handler.Subgraphs(ctx)
	if err != nil {
		return nil, err
	}
	return SubgraphList{Subgraphs: subgraphs}, nil
}

func (l *Leader) killRouter(ctx context.Context, _ []byte) (any, error) {
	return nil, l.handler.KillRouter(ctx)
}

func (l *Leader) healthCheck(context.Context, []byte) (any, error) {
	return nil, nil
}

func (l *Leader) getVersion(context.Context, []byte) (any, error) {
	return VersionInfo{LeaderVersion: l.version}, nil
}
