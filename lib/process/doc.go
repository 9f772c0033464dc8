// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

// Package process is the process supervision capability: it starts
// child processes, waits for them, and signals them.
//
// Every child started through [Start] runs in its own process group so
// that signals reach any grandchildren it spawns. On Linux the child
// also receives SIGKILL if the parent dies without cleaning up, so a
// crashed CLI never leaves an orphaned router behind.
//
// [Run] executes a short-lived command to completion and captures its
// output (the composition binary). [Start] returns a [Handle] for a
// long-lived child (the router) whose exit is observable through
// [Handle.Done].
//
// [Fatal] is the binary entrypoint error handler for main().
package process
