// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration shared by the
// session socket protocol.
//
// Graphwright uses two serialization formats with a clear boundary:
//
//   - JSON and YAML for external interfaces: the supergraph config
//     file, the composition binary's stdout, router log lines, and the
//     GraphQL introspection endpoints.
//   - CBOR for the leader/follower socket protocol between cooperating
//     CLI processes.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. CBOR
// values are self-delimiting, so a socket needs no extra framing.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations:
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Types that only travel over the socket carry `cbor` struct tags.
package codec
