// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package federation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/graphwright/graphwright/lib/fault"
)

// Source records where a resolved version came from.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceConfig   Source = "config"
	SourceInferred Source = "inferred"
)

// Input carries the three candidate inputs. Zero versions are unset.
type Input struct {
	Explicit   Version
	FromConfig Version
	// Subgraphs maps subgraph name to SDL.
	Subgraphs map[string]string
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Version  Version
	Source   Source
	Warnings []string
}

// Pinned reports whether the version came from the user rather than
// from subgraph inference. Inferred versions are re-evaluated whenever
// a subgraph changes.
func (r Resolution) Pinned() bool { return r.Source != SourceInferred }

// MismatchError is a pinned federation 1 version given subgraphs that
// need federation 2.
type MismatchError struct {
	Specified Version
	Source    Source
	// Offending lists the subgraphs that use @link, sorted.
	Offending []string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("federation version %s (%s) cannot compose subgraphs that use @link: %s",
		e.Specified, e.Source, strings.Join(e.Offending, ", "))
}

func (e *MismatchError) FaultCategory() fault.Category { return fault.FederationMismatch }

func (e *MismatchError) FaultHint() string {
	return "set federation_version to 2 (or =2.x.y), or remove @link from the listed subgraphs"
}

// Resolve picks the federation version for input.
func Resolve(input Input) (Resolution, error) {
	offending := LinkedSubgraphs(input.Subgraphs)

	pinned, source := input.Explicit, SourceExplicit
	if pinned.IsZero() {
		pinned, source = input.FromConfig, SourceConfig
	}

	if !pinned.IsZero() {
		if pinned.Major == 1 && len(offending) > 0 {
			return Resolution{}, &MismatchError{
				Specified: pinned,
				Source:    source,
				Offending: offending,
			}
		}
		return Resolution{Version: pinned, Source: source}, nil
	}

	if len(offending) > 0 {
		return Resolution{Version: LatestV2, Source: SourceInferred}, nil
	}
	return Resolution{
		Version: V1,
		Source:  SourceInferred,
		Warnings: []string{
			"no federation_version was specified and no subgraph uses @link; composing with federation 1. " +
				"Pin federation_version in the supergraph config to silence this warning.",
		},
	}, nil
}

// LinkedSubgraphs returns the sorted names of subgraphs whose SDL
// requires federation 2.
func LinkedSubgraphs(subgraphs map[string]string) []string {
	var linked []string
	for name, sdl := range subgraphs {
		if RequiresV2(sdl) {
			linked = append(linked, name)
		}
	}
	sort.Strings(linked)
	return linked
}
