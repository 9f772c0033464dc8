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
	"time"

	"github.com/google/uuid"

	"github.com/graphwright/graphwright/lib/clock"
	"github.com/graphwright/graphwright/lib/codec"
	"github.com/graphwright/graphwright/lib/netutil"
)

const (
	dialTimeout = 2 * time.Second

	// responseTimeout covers the leader's handling time, which includes
	// a full recomposition for subgraph changes.
	responseTimeout = 2 * time.Minute

	maxResponseSize = 8 << 20

	// DefaultMonitorInterval is how often a follower checks that the
	// leader is still alive.
	DefaultMonitorInterval = time.Second
)

// errNoLeader is the internal signal that nothing is bound to the
// socket. Exported operations translate it.
var errNoLeader = errors.New("no session leader is listening")

// FollowerOptions configures a [Follower].
type FollowerOptions struct {
	// Version is this process's release, compared against the leader's
	// during [Follower.Handshake].
	Version string

	Clock  clock.Clock
	Logger *slog.Logger
}

// Follower talks to the leader of a session.
type Follower struct {
	socketPath string
	version    string
	clientID   string
	clock      clock.Clock
	logger     *slog.Logger
}

// NewFollower returns a client for the leader at socketPath.
func NewFollower(socketPath string, options FollowerOptions) *Follower {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	clientID := uuid.NewString()
	return &Follower{
		socketPath: socketPath,
		version:    options.Version,
		clientID:   clientID,
		clock:      options.Clock,
		logger:     options.Logger.With("component", "session-follower", "client", clientID),
	}
}

// ClientID identifies this follower in the leader's logs.
func (f *Follower) ClientID() string { return f.clientID }

// Handshake compares versions with the leader and fails with a
// [*ProtocolError] when they differ. It must be the first call a
// follower makes.
func (f *Follower) Handshake(ctx context.Context) error {
	leaderVersion, ok, err := f.GetVersion(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLeaderGone
	}
	if leaderVersion != f.version {
		return &ProtocolError{LeaderVersion: leaderVersion, FollowerVersion: f.version}
	}
	f.logger.Debug("handshake complete", "leader_version", leaderVersion)
	return nil
}

// GetVersion returns the leader's version. ok is false when no leader
// is listening.
func (f *Follower) GetVersion(ctx context.Context) (version string, ok bool, err error) {
	var info VersionInfo
	if err := f.call(ctx, ActionGetVersion, nil, &info); err != nil {
		if errors.Is(err, errNoLeader) {
			return "", false, nil
		}
		return "", false, err
	}
	return info.LeaderVersion, true, nil
}

// GetSubgraphs returns the leader's subgraphs. ok is false when no
// leader is listening.
func (f *Follower) GetSubgraphs(ctx context.Context) (subgraphs []Subgraph, ok bool, err error) {
	var list SubgraphList
	if err := f.call(ctx, ActionGetSubgraphs, nil, &list); err != nil {
		if errors.Is(err, errNoLeader) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return list.Subgraphs, true, nil
}

// AddSubgraph contributes a new subgraph. Adding a name the session
// already has fails with an error matching [ErrSubgraphExists].
func (f *Follower) AddSubgraph(ctx context.Context, subgraph Subgraph) (CompositionAck, error) {
	var ack CompositionAck
	err := f.mustCall(ctx, ActionAddSubgraph, map[string]any{"subgraph": subgraph}, &ack)
	return ack, err
}

// UpdateSubgraph replaces a subgraph's routing URL and SDL.
func (f *Follower) UpdateSubgraph(ctx context.Context, subgraph Subgraph) (CompositionAck, error) {
	var ack CompositionAck
	err := f.mustCall(ctx, ActionUpdateSubgraph, map[string]any{"subgraph": subgraph}, &ack)
	return ack, err
}

// RemoveSubgraph withdraws a subgraph.
func (f *Follower) RemoveSubgraph(ctx context.Context, name string) (CompositionAck, error) {
	var ack CompositionAck
	err := f.mustCall(ctx, ActionRemoveSubgraph, map[string]any{"name": name}, &ack)
	return ack, err
}

// KillRouter asks the leader to stop its router.
func (f *Follower) KillRouter(ctx context.Context) error {
	return f.mustCall(ctx, ActionKillRouter, nil, nil)
}

// HealthCheck succeeds when the leader answers.
func (f *Follower) HealthCheck(ctx context.Context) error {
	return f.mustCall(ctx, ActionHealthCheck, nil, nil)
}

// Monitor health-checks the leader every interval until ctx is done or
// the leader stops answering. It returns nil on cancellation and an
// error wrapping [ErrLeaderGone] otherwise.
func (f *Follower) Monitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	ticker := f.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := f.HealthCheck(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if errors.Is(err, ErrLeaderGone) {
					return err
				}
				return fmt.Errorf("%w: %w", ErrLeaderGone, err)
			}
		}
	}
}

// mustCall is call for actions that require a leader: a missing leader
// becomes ErrLeaderGone.
func (f *Follower) mustCall(ctx context.Context, action string, fields map[string]any, result any) error {
	err := f.call(ctx, action, fields, result)
	if errors.Is(err, errNoLeader) {
		return ErrLeaderGone
	}
	return err
}

// call sends one request on a fresh connection. The dial is never
// retried: a follower that cannot reach its leader shuts down.
func (f *Follower) call(ctx context.Context, action string, fields map[string]any, result any) error {
	request := make(map[string]any, len(fields)+2)
	for key, value := range fields {
		request[key] = value
	}
	request["action"] = action
	request["client_id"] = f.clientID

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", f.socketPath)
	if err != nil {
		if netutil.IsNoListener(err) {
			return errNoLeader
		}
		return &UnreachableError{SocketPath: f.socketPath, Err: err}
	}
	defer conn.Close()

	deadline := time.Now().Add(responseTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetDeadline(deadline)

	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return f.transportError(ctx, action, "sending", err)
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		return f.transportError(ctx, action, "reading response to", err)
	}

	if !response.OK {
		return &RemoteError{Action: action, Message: response.Error, Code: response.Code}
	}
	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding %s response: %w", action, err)
		}
	}
	return nil
}

// transportError classifies a failure after the dial succeeded. A
// connection the leader dropped mid-request means it went away.
func (f *Follower) transportError(ctx context.Context, action, doing string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s %s: %w", doing, action, ctx.Err())
	}
	if netutil.IsExpectedCloseError(err) {
		return fmt.Errorf("%s %s: %w", doing, action, ErrLeaderGone)
	}
	return fmt.Errorf("%s %s: %w", doing, action, err)
}
