// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package config

import "sort"

// Diff describes how a reloaded supergraph config differs from the
// previous one.
type Diff struct {
	FederationVersionChanged bool

	// Added, Removed and Changed hold sorted subgraph names. Changed
	// means the routing URL or schema source differs.
	Added   []string
	Removed []string
	Changed []string
}

// Empty reports whether nothing changed.
func (d Diff) Empty() bool {
	return !d.FederationVersionChanged && len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Compare computes the diff from previous to next.
func Compare(previous, next *SupergraphConfig) Diff {
	var diff Diff
	diff.FederationVersionChanged = previous.FederationVersion != next.FederationVersion

	for name, nextSubgraph := range next.Subgraphs {
		previousSubgraph, ok := previous.Subgraphs[name]
		switch {
		case !ok:
			diff.Added = append(diff.Added, name)
		case !previousSubgraph.Equal(nextSubgraph):
			diff.Changed = append(diff.Changed, name)
		}
	}
	for name := range previous.Subgraphs {
		if _, ok := next.Subgraphs[name]; !ok {
			diff.Removed = append(diff.Removed, name)
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Strings(diff.Changed)
	return diff
}
