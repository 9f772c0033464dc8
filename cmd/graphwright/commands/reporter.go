// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/graphwright/graphwright/cmd/graphwright/cli"
	"github.com/graphwright/graphwright/lib/fault"
	"github.com/graphwright/graphwright/lib/supergraph"
)

// terminalReporter prints composition outcomes for a person watching
// the terminal. Colour is used only on a terminal and never when
// NO_COLOR is set.
type terminalReporter struct {
	out io.Writer
	mu  sync.Mutex

	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
	muted   lipgloss.Style
	link    lipgloss.Style
}

func colorProfile(w io.Writer) termenv.Profile {
	if termenv.EnvNoColor() || !cli.IsTerminal(w) {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

func newTerminalReporter(out io.Writer, profile termenv.Profile) *terminalReporter {
	renderer := lipgloss.NewRenderer(out, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)
	return &terminalReporter{
		out:     out,
		success: renderer.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		failure: renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		warning: renderer.NewStyle().Foreground(lipgloss.Color("3")),
		muted:   renderer.NewStyle().Faint(true),
		link:    renderer.NewStyle().Foreground(lipgloss.Color("6")).Underline(true),
	}
}

func (r *terminalReporter) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

func (r *terminalReporter) Composed(output supergraph.CompositionOutput) {
	r.printf("%s supergraph composed (federation %s)\n",
		r.success.Render("✔"), output.FederationVersion)
	for _, hint := range output.Hints {
		line := hint.Message
		if hint.Code != "" {
			line = fmt.Sprintf("[%s] %s", hint.Code, hint.Message)
		}
		r.printf("  %s\n", r.muted.Render("hint: "+line))
	}
}

func (r *terminalReporter) CompositionFailed(err error) {
	var buildErrors supergraph.BuildErrors
	if errors.As(err, &buildErrors) {
		r.printf("%s composition failed with %d error(s)\n", r.failure.Render("✘"), len(buildErrors))
		for _, buildError := range buildErrors {
			r.printf("  %s %s\n", r.failure.Render("error:"), buildError.String())
		}
		return
	}
	r.printf("%s composition failed: %v\n", r.failure.Render("✘"), err)
	if hint := fault.HintOf(err); hint != "" {
		r.printf("  %s\n", r.muted.Render(hint))
	}
}

func (r *terminalReporter) RouterReady(endpoint string) {
	r.printf("%s router running at %s\n", r.success.Render("➜"), r.link.Render(endpoint))
}

func (r *terminalReporter) Warn(message string) {
	r.printf("%s %s\n", r.warning.Render("warning:"), message)
}

// Fatal prints an error that ends the session, with its hint.
func (r *terminalReporter) Fatal(err error) {
	r.printf("%s %v\n", r.failure.Render("error:"), err)
	if hint := fault.HintOf(err); hint != "" {
		r.printf("  %s\n", r.muted.Render("hint: "+hint))
	}
}
