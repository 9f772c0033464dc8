// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

// Package schemasource turns declared subgraph schema sources into SDL.
//
// A [Resolver] handles the four source kinds in [config.SchemaSource]:
// schema files, introspection endpoints, registry references, and
// inline SDL. [Resolver.Resolve] resolves a whole supergraph config
// concurrently and reports every failure at once, so a user with three
// broken subgraphs sees three errors rather than fixing them one run at
// a time.
//
// Routing URLs come from the config when declared. Otherwise an
// introspection source routes to the introspection URL and a registry
// source routes to whatever the registry reports; a registry subgraph
// with neither fails with [ErrNoRoutingURL].
package schemasource
