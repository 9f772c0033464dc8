// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

// Package introspect fetches SDL from running GraphQL services.
//
// [Client.FetchSubgraphSDL] issues the federated `{ _service { sdl } }`
// query, which returns the subgraph's schema verbatim including
// federation directives. [Client.FetchGraphSDL] issues standard
// introspection and prints the result as SDL; federation directives
// are lost, so it is a fallback for services that do not implement the
// federated query.
package introspect
