// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"slices"
	"testing"

	"github.com/graphwright/graphwright/lib/federation"
)

func inline(url, sdl string) SubgraphConfig {
	return SubgraphConfig{RoutingURL: url, Schema: SchemaSource{Kind: SourceInline, SDL: sdl}}
}

func TestCompare(t *testing.T) {
	previous := &SupergraphConfig{
		FederationVersion: federation.V1,
		Subgraphs: map[string]SubgraphConfig{
			"kept":    inline("http://kept", "type Query { a: Int }"),
			"changed": inline("http://changed", "type Query { b: Int }"),
			"moved":   inline("http://old", "type Query { c: Int }"),
			"removed": inline("http://removed", "type Query { d: Int }"),
		},
	}
	next := &SupergraphConfig{
		FederationVersion: federation.LatestV2,
		Subgraphs: map[string]SubgraphConfig{
			"kept":    inline("http://kept", "type Query { a: Int }"),
			"changed": inline("http://changed", "type Query { b: String }"),
			"moved":   inline("http://new", "type Query { c: Int }"),
			"added":   inline("http://added", "type Query { e: Int }"),
		},
	}

	diff := Compare(previous, next)
	if !diff.FederationVersionChanged {
		t.Error("FederationVersionChanged = false")
	}
	if !slices.Equal(diff.Added, []string{"added"}) {
		t.Errorf("Added = %v", diff.Added)
	}
	if !slices.Equal(diff.Removed, []string{"removed"}) {
		t.Errorf("Removed = %v", diff.Removed)
	}
	if !slices.Equal(diff.Changed, []string{"changed", "moved"}) {
		t.Errorf("Changed = %v", diff.Changed)
	}
	if diff.Empty() {
		t.Error("Empty() = true")
	}
}

func TestCompareHeaders(t *testing.T) {
	source := func(token string) SubgraphConfig {
		return SubgraphConfig{Schema: SchemaSource{
			Kind:    SourceIntrospect,
			URL:     "http://users",
			Headers: map[string]string{"Authorization": token},
		}}
	}
	previous := &SupergraphConfig{Subgraphs: map[string]SubgraphConfig{"users": source("a")}}
	same := &SupergraphConfig{Subgraphs: map[string]SubgraphConfig{"users": source("a")}}
	rotated := &SupergraphConfig{Subgraphs: map[string]SubgraphConfig{"users": source("b")}}

	if diff := Compare(previous, same); !diff.Empty() {
		t.Errorf("identical configs produced diff %+v", diff)
	}
	if diff := Compare(previous, rotated); !slices.Equal(diff.Changed, []string{"users"}) {
		t.Errorf("header change: Changed = %v", diff.Changed)
	}
}
