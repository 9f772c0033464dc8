// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package supergraph

import (
	"fmt"
	"strings"

	"github.com/graphwright/graphwright/lib/fault"
	"github.com/graphwright/graphwright/lib/federation"
)

// SubgraphKey identifies a subgraph within a supergraph.
type SubgraphKey struct {
	Name       string `json:"name" yaml:"name"`
	RoutingURL string `json:"routing_url" yaml:"routing_url"`
}

func (k SubgraphKey) String() string {
	return fmt.Sprintf("%s (%s)", k.Name, k.RoutingURL)
}

// SubgraphDefinition is a subgraph with its resolved SDL.
type SubgraphDefinition struct {
	SubgraphKey
	SDL string `json:"sdl" yaml:"sdl"`
}

// BuildHint is a non-fatal composition warning.
type BuildHint struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// CompositionOutput is a successful composition. Immutable once
// returned.
type CompositionOutput struct {
	SupergraphSDL     string
	Hints             []BuildHint
	FederationVersion federation.Version
}

// BuildError is one reason a composition attempt failed.
type BuildError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (e BuildError) String() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// BuildErrors is the full list of failures from one composition
// attempt. It replaces a CompositionOutput and is never partially
// applied.
type BuildErrors []BuildError

func (b BuildErrors) Error() string {
	switch len(b) {
	case 0:
		return "composition failed with no reported build errors"
	case 1:
		return "composition failed: " + b[0].String()
	}
	lines := make([]string, len(b))
	for i, buildError := range b {
		lines[i] = buildError.String()
	}
	return fmt.Sprintf("composition failed with %d build errors:\n  %s",
		len(b), strings.Join(lines, "\n  "))
}

func (b BuildErrors) FaultCategory() fault.Category { return fault.Build }

func (b BuildErrors) FaultHint() string {
	return "fix the subgraph schemas listed above; composition reruns on the next change"
}
