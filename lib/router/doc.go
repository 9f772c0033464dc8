// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

// Package router supervises the local router process.
//
// A [Manager] installs the router binary, writes its config, spawns
// it with hot reload enabled, waits for it to answer a trivial query,
// and kills it again. While it runs, every line the router prints is
// parsed as a JSON log record and re-emitted through slog at the
// matching level.
//
// The router watches the supergraph file itself, so after the first
// spawn the orchestrator updates the running router by replacing that
// file; the Manager is not involved.
//
// States move NotInstalled → Installed → Spawned → Stopped, and
// Stopped → Spawned on respawn. Kill is safe to call in any state.
package router
