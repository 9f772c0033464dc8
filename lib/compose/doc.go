// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

// Package compose runs the external composition binary.
//
// The binary is treated as a black box: [Engine.Compose] writes the
// resolved subgraphs to a temporary supergraph config, runs
//
//	<supergraph> compose <config.yaml>
//
// and parses the tagged JSON it prints on stdout:
//
//	{"Ok": {"supergraphSdl": "...", "hints": [{"message": "...", "code": "..."}]}}
//	{"Err": [{"message": "...", "code": "..."}]}
//
// Ok becomes a [supergraph.CompositionOutput]; Err becomes
// [supergraph.BuildErrors]. Anything else is a [*CompositionError],
// which means the binary misbehaved rather than the schemas being
// wrong.
package compose
