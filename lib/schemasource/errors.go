// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package schemasource

import (
	"errors"
	"fmt"
	"strings"

	"github.com/graphwright/graphwright/lib/fault"
)

// ErrNoRoutingURL means a registry subgraph has no routing URL in the
// config or in the registry.
var ErrNoRoutingURL = errors.New("no routing URL in the config or the registry")

// ResolutionError is a failure to obtain one subgraph's SDL.
type ResolutionError struct {
	Subgraph string
	Source   string
	Err      error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving subgraph %s from %s: %v", e.Subgraph, e.Source, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

func (e *ResolutionError) FaultCategory() fault.Category { return fault.SchemaResolution }

func (e *ResolutionError) FaultHint() string {
	if errors.Is(e.Err, ErrNoRoutingURL) {
		return fmt.Sprintf("add routing_url to subgraph %s in the supergraph config", e.Subgraph)
	}
	return ""
}

// ResolutionErrors collects every failed subgraph from one Resolve
// call, sorted by subgraph name.
type ResolutionErrors []*ResolutionError

func (e ResolutionErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	lines := make([]string, len(e))
	for i, resolutionErr := range e {
		lines[i] = resolutionErr.Error()
	}
	return fmt.Sprintf("%d subgraphs failed to resolve:\n  %s", len(e), strings.Join(lines, "\n  "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e ResolutionErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, resolutionErr := range e {
		errs[i] = resolutionErr
	}
	return errs
}

func (e ResolutionErrors) FaultCategory() fault.Category { return fault.SchemaResolution }
