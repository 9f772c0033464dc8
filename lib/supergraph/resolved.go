// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package supergraph

import "github.com/graphwright/graphwright/lib/federation"

// ResolvedConfig is the federation version plus every subgraph's
// current SDL, kept in insertion order so that composition input is
// stable across runs.
type ResolvedConfig struct {
	FederationVersion federation.Version

	order     []string
	subgraphs map[string]SubgraphDefinition
}

// NewResolvedConfig returns an empty config for version.
func NewResolvedConfig(version federation.Version) *ResolvedConfig {
	return &ResolvedConfig{
		FederationVersion: version,
		subgraphs:         make(map[string]SubgraphDefinition),
	}
}

// Get returns the subgraph named name.
func (c *ResolvedConfig) Get(name string) (SubgraphDefinition, bool) {
	definition, ok := c.subgraphs[name]
	return definition, ok
}

// Put inserts or replaces a subgraph and reports whether anything
// changed. Replacing a subgraph with an identical routing URL and SDL
// is a no-op, which is what keeps redundant saves from recomposing.
func (c *ResolvedConfig) Put(definition SubgraphDefinition) bool {
	existing, ok := c.subgraphs[definition.Name]
	if ok && existing == definition {
		return false
	}
	if !ok {
		c.order = append(c.order, definition.Name)
	}
	c.subgraphs[definition.Name] = definition
	return true
}

// Remove deletes the subgraph named name and reports whether it was
// present.
func (c *ResolvedConfig) Remove(name string) bool {
	if _, ok := c.subgraphs[name]; !ok {
		return false
	}
	delete(c.subgraphs, name)
	for i, existing := range c.order {
		if existing == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of subgraphs.
func (c *ResolvedConfig) Len() int { return len(c.order) }

// Names returns subgraph names in insertion order.
func (c *ResolvedConfig) Names() []string {
	return append([]string(nil), c.order...)
}

// Subgraphs returns every definition in insertion order.
func (c *ResolvedConfig) Subgraphs() []SubgraphDefinition {
	definitions := make([]SubgraphDefinition, 0, len(c.order))
	for _, name := range c.order {
		definitions = append(definitions, c.subgraphs[name])
	}
	return definitions
}

// SDLs returns name → SDL, the shape the federation resolver consumes.
func (c *ResolvedConfig) SDLs() map[string]string {
	sdls := make(map[string]string, len(c.subgraphs))
	for name, definition := range c.subgraphs {
		sdls[name] = definition.SDL
	}
	return sdls
}

// Clone returns an independent copy. Definitions are values, so a
// shallow copy of the map is enough.
func (c *ResolvedConfig) Clone() *ResolvedConfig {
	clone := NewResolvedConfig(c.FederationVersion)
	clone.order = append(clone.order, c.order...)
	for name, definition := range c.subgraphs {
		clone.subgraphs[name] = definition
	}
	return clone
}
