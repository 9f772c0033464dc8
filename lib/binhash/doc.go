// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash computes BLAKE3 digests of downloaded binary archives
// so the installer can verify them against a pinned digest before
// extracting.
package binhash
