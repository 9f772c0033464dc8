// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"log/slog"

	"github.com/graphwright/graphwright/lib/supergraph"
)

// Reporter receives the outcomes a user watches for. Calls come from
// the orchestrator's loop goroutine, one at a time.
type Reporter interface {
	// Composed is called after every successful composition that was
	// written to the supergraph file.
	Composed(output supergraph.CompositionOutput)

	// CompositionFailed is called when a composition attempt fails.
	// err is usually a [supergraph.BuildErrors].
	CompositionFailed(err error)

	// RouterReady is called each time a freshly spawned router starts
	// answering.
	RouterReady(endpoint string)

	// Warn surfaces a non-fatal condition the user should see.
	Warn(message string)
}

// logReporter is the default Reporter: everything goes to the logger.
type logReporter struct {
	logger *slog.Logger
}

func (r logReporter) Composed(output supergraph.CompositionOutput) {
	r.logger.Info("supergraph composed",
		"federation_version", output.FederationVersion.String(),
		"hints", len(output.Hints))
}

func (r logReporter) CompositionFailed(err error) {
	r.logger.Error("composition failed", "error", err)
}

func (r logReporter) RouterReady(endpoint string) {
	r.logger.Info("router ready", "endpoint", endpoint)
}

func (r logReporter) Warn(message string) {
	r.logger.Warn(message)
}
