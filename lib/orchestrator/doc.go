// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

// Package orchestrator runs a dev session: it resolves subgraph
// schemas, keeps them watched, recomposes the supergraph on every
// change and keeps a router serving the latest successful
// composition.
//
// A session is led by exactly one process. [Orchestrator.Run] elects
// the role through [session.Elect]. The leader owns the
// [supergraph.ResolvedConfig], the composition engine and the router;
// every change (watcher events, config file edits, follower requests,
// router exits) passes through one event loop and is applied one at a
// time. A follower resolves and watches its own subgraphs and forwards
// them to the leader, then withdraws them when it exits.
//
// A failed composition never replaces the last good supergraph file;
// the router is stopped until the next composition succeeds.
package orchestrator
