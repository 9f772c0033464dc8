// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command-line framework for graphwright.
//
// A [Command] has a name, an optional pflag flag set factory, and
// either a Run function or subcommands. [Command.Execute] parses flags,
// routes to subcommands and prints help. Unknown commands and flags get
// a "did you mean" suggestion when an existing name is within edit
// distance 3.
package cli
