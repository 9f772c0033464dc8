// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

// Package watch detects subgraph schema changes and reports them as
// [Event] values on a single channel owned by the consumer.
//
// [FileWatcher] re-reads a schema file when the filesystem reports a
// change to it. [IntrospectWatcher] polls a running subgraph.
// [ConfigWatcher] reloads the supergraph config file and reports what
// changed. Every watcher remembers the last SDL it reported and emits
// only when the content actually differs, so touching a file or a
// subgraph restart that serves the same schema never causes a
// recomposition.
//
// A [Set] runs watchers as goroutines keyed by subgraph name so the
// consumer can start, replace and stop them as subgraphs come and go.
package watch
