// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

// Package binstall installs versioned tool binaries (the composition
// binary and the router) into a local cache.
//
// An [Installer] asks a [Fetcher] for a release archive, verifies its
// BLAKE3 digest when the fetcher supplies one, extracts the named
// executable, and moves it into place atomically:
//
//	<cache>/<tool>/<version>/<tool>
//
// Archives may be .tar.gz, .tar.zst, .tar.lz4, or a bare executable.
// A cached binary is reused without contacting the fetcher, and
// resolved paths are memoized for the life of the Installer.
package binstall
