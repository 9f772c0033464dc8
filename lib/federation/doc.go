// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

// Package federation decides which major composition contract (v1 or
// v2) applies to a supergraph.
//
// Precedence is explicit value > value from the supergraph config file
// > inferred from subgraph SDL. A subgraph whose schema definition or
// schema extension carries @link requires v2. An explicit or configured
// v1 combined with such a subgraph is a [*MismatchError]; the resolver
// never silently upgrades or downgrades a pinned version.
package federation
