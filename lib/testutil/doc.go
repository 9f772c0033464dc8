// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [SocketDir] creates a short temporary directory in /tmp for Unix
// domain sockets. Socket paths are limited to 108 bytes (sun_path in
// sockaddr_un) and t.TempDir() paths can exceed that.
//
// [RequireReceive], [RequireSend], and [RequireClosed] encapsulate the
// select-with-timeout safety valve so tests never hang on a channel.
//
// [WriteExecutable] writes a shell script used as a stand-in for the
// composition binary.
//
// [UniqueID] generates monotonically increasing identifiers for
// session IDs and subgraph names.
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil
