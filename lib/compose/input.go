// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package compose

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/graphwright/graphwright/lib/supergraph"
)

// composeInput is the supergraph config handed to the binary. Every
// schema is inline so the binary never touches the network or the
// user's files.
type composeInput struct {
	FederationVersion string           `yaml:"federation_version"`
	Subgraphs         orderedSubgraphs `yaml:"subgraphs"`
}

type inputSubgraph struct {
	RoutingURL string      `yaml:"routing_url"`
	Schema     inputSchema `yaml:"schema"`
}

type inputSchema struct {
	SDL string `yaml:"sdl"`
}

// orderedSubgraphs marshals as a YAML mapping in slice order rather
// than the sorted key order yaml.v3 uses for Go maps.
type orderedSubgraphs []supergraph.SubgraphDefinition

func (o orderedSubgraphs) MarshalYAML() (any, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode}
	for _, definition := range o {
		var value yaml.Node
		if err := value.Encode(inputSubgraph{
			RoutingURL: definition.RoutingURL,
			Schema:     inputSchema{SDL: definition.SDL},
		}); err != nil {
			return nil, fmt.Errorf("encoding subgraph %s: %w", definition.Name, err)
		}
		mapping.Content = append(mapping.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: definition.Name},
			&value,
		)
	}
	return mapping, nil
}

// marshalInput renders the config the binary reads.
func marshalInput(resolved *supergraph.ResolvedConfig) ([]byte, error) {
	data, err := yaml.Marshal(composeInput{
		FederationVersion: resolved.FederationVersion.String(),
		Subgraphs:         orderedSubgraphs(resolved.Subgraphs()),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding composition input: %w", err)
	}
	return data, nil
}
