// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/graphwright/graphwright/lib/netutil"
)

// Role is the outcome of an election.
type Role int

const (
	RoleLeader Role = iota
	RoleFollower
)

func (r Role) String() string {
	if r == RoleLeader {
		return "leader"
	}
	return "follower"
}

// probeTimeout bounds the dial used to decide whether an existing
// socket has a live leader behind it.
const probeTimeout = time.Second

// electionAttempts bounds the bind/probe loop. Two processes removing
// the same stale socket at once can each see the other's fresh bind;
// the loser retries and finds a live leader.
const electionAttempts = 3

// Election is the result of [Elect]. A leader election owns a bound
// listener that must be handed to [NewLeader] or closed.
type Election struct {
	Role       Role
	SocketPath string

	listener net.Listener
}

// Close releases the listener of an unused leader election and removes
// the socket. It is a no-op for followers.
func (e *Election) Close() error {
	if e.listener == nil {
		return nil
	}
	err := e.listener.Close()
	os.Remove(e.SocketPath)
	return err
}

// Elect decides whether this process leads the session at socketPath.
func Elect(ctx context.Context, socketPath string, logger *slog.Logger) (*Election, error) {
	for attempt := 0; attempt < electionAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		listener, err := net.Listen("unix", socketPath)
		if err == nil {
			logger.Info("elected session leader", "socket", socketPath)
			return &Election{Role: RoleLeader, SocketPath: socketPath, listener: listener}, nil
		}
		if !netutil.IsAddressInUse(err) {
			return nil, fmt.Errorf("binding session socket %s: %w", socketPath, err)
		}

		live, err := probe(ctx, socketPath)
		if err != nil {
			return nil, &UnreachableError{SocketPath: socketPath, Err: err}
		}
		if live {
			logger.Info("joining existing session as follower", "socket", socketPath)
			return &Election{Role: RoleFollower, SocketPath: socketPath}, nil
		}

		logger.Warn("removing stale session socket", "socket", socketPath)
		if err := os.Remove(socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("removing stale session socket %s: %w", socketPath, err)
		}
	}
	return nil, fmt.Errorf("electing session leader at %s: socket kept changing hands after %d attempts",
		socketPath, electionAttempts)
}

// probe reports whether a leader is accepting connections on
// socketPath. A refused or missing socket is not an error.
func probe(ctx context.Context, socketPath string) (bool, error) {
	dialer := net.Dialer{Timeout: probeTimeout}
	conn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		if netutil.IsNoListener(err) {
			return false, nil
		}
		return false, err
	}
	conn.Close()
	return true, nil
}
