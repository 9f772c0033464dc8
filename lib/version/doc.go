// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for graphwright
// binaries.
//
// Four package-level variables are injected at build time via
// -ldflags -X:
//
//   - [GitCommit] -- short git SHA of the build
//   - [GitDirty] -- "true" if there were uncommitted changes
//   - [BuildTime] -- UTC timestamp of the build
//   - [Version] -- semantic version string (set manually for releases)
//
// [Short] is the value exchanged in the session protocol's version
// handshake: a follower talks to a leader only when both report the
// same string.
package version
