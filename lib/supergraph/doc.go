// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

// Package supergraph defines the data model shared by composition and
// orchestration: subgraph identities and definitions, the resolved
// supergraph config the orchestrator owns, and the two outcomes of a
// composition attempt ([CompositionOutput] or [BuildErrors]).
//
// [ResolvedConfig] is not safe for concurrent mutation. The
// orchestrator is its only writer; everyone else receives a [Clone].
package supergraph
