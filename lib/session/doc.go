// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

// Package session coordinates several dev sessions that share one
// router.
//
// The first process to bind the session socket becomes the leader: it
// owns the router and the supergraph, and serves requests from other
// processes. Every later process is a follower: it contributes its own
// subgraphs to the leader's supergraph over the socket.
//
// # Protocol
//
// Each connection carries exactly one CBOR request and one CBOR
// response, then closes. A request is a map with an "action" field
// plus action-specific fields. A response is
//
//	{ok: bool, error: string, code: string, data: <action result>}
//
// Actions: add-subgraph, update-subgraph, remove-subgraph,
// get-subgraphs, kill-router, health-check, get-version.
//
// A follower's first message is always get-version; a follower built
// from a different release refuses to continue ([ProtocolError])
// rather than send messages the leader might misread.
//
// # Election
//
// [Elect] binds the socket. If the address is in use, it dials it: a
// refused connection means the previous leader died without cleaning
// up, so the stale socket is removed and bound again. A successful
// dial means a live leader exists and the caller is a follower.
package session
