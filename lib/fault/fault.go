// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

// Package fault classifies errors so the CLI can decide how to present
// them and whether a failure ends the session.
//
// An error joins the taxonomy in one of two ways: it is (or wraps) a
// [*Error] built with [New], or it is a typed error that implements
// FaultCategory() (and optionally FaultHint()). [CategoryOf] and
// [HintOf] walk the wrap chain to find either.
package fault

import (
	"errors"
	"fmt"
)

// Category identifies which part of the system failed.
type Category string

const (
	// Config covers malformed supergraph config files, missing schema
	// files, and bad routing URLs.
	Config Category = "config"

	// SchemaResolution covers per-subgraph failures to obtain SDL.
	SchemaResolution Category = "schema_resolution"

	// FederationMismatch is an explicit federation version that cannot
	// compose the subgraphs it was given.
	FederationMismatch Category = "federation_mismatch"

	// Composition is malformed output from the composition binary: a
	// bug, not a schema problem.
	Composition Category = "composition"

	// Build is a valid composition attempt that reported build errors.
	Build Category = "build"

	// RouterStartup and RouterShutdown are bounded waits that expired.
	RouterStartup  Category = "router_startup"
	RouterShutdown Category = "router_shutdown"

	// Protocol covers the leader/follower session protocol: version
	// mismatch, no leader, leader unreachable, duplicate subgraph.
	Protocol Category = "protocol"

	// Internal is anything unclassified.
	Internal Category = "internal"
)

// Error is a categorized error with an optional actionable hint.
type Error struct {
	Category Category
	Err      error
	Hint     string
}

// New creates an Error in category with a formatted message. The
// format string may use %w.
func New(category Category, format string, args ...any) *Error {
	return &Error{Category: category, Err: fmt.Errorf(format, args...)}
}

// WithHint attaches a suggestion shown beneath the error message and
// returns the same pointer for chaining.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) FaultCategory() Category { return e.Category }

func (e *Error) FaultHint() string { return e.Hint }

type categorized interface {
	FaultCategory() Category
}

type hinted interface {
	FaultHint() string
}

// CategoryOf returns the category of the outermost classified error in
// err's chain, or Internal when nothing in the chain is classified.
func CategoryOf(err error) Category {
	var classified categorized
	if errors.As(err, &classified) {
		return classified.FaultCategory()
	}
	return Internal
}

// HintOf returns the first non-empty hint in err's chain.
func HintOf(err error) string {
	for current := err; current != nil; current = errors.Unwrap(current) {
		if withHint, ok := current.(hinted); ok && withHint.FaultHint() != "" {
			return withHint.FaultHint()
		}
	}
	return ""
}
