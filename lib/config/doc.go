// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads supergraph config files.
//
// A supergraph config names every subgraph, where its schema comes
// from, and optionally the federation version to compose with:
//
//	federation_version: =2.3.1
//	subgraphs:
//	  products:
//	    routing_url: http://localhost:4001/graphql
//	    schema:
//	      file: ./products.graphql
//	  users:
//	    schema:
//	      subgraph_url: http://localhost:4002/graphql
//	      introspection_headers:
//	        Authorization: Bearer ${env.USERS_TOKEN}
//	  reviews:
//	    schema:
//	      graphref: shop@current
//	      subgraph: reviews
//	  inventory:
//	    routing_url: http://localhost:4004/graphql
//	    schema:
//	      sdl: "type Query { stock: Int }"
//
// Files ending in .json or .jsonc are read as JSON with comments and
// trailing commas. Unknown keys are rejected.
//
// ${env.NAME} references in URLs and header values are expanded from
// the process environment, falling back to a .env file next to the
// config. A reference to an unset variable is a config error.
//
// Relative file paths are resolved against the config file's
// directory, so a config behaves the same from any working directory.
package config
