// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the graphwright command tree.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/graphwright/graphwright/cmd/graphwright/cli"
	"github.com/graphwright/graphwright/lib/version"
)

// Root returns the complete command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "graphwright",
		Description: `graphwright: local federated GraphQL development.

Composes a supergraph from your subgraphs, keeps it recomposed as they
change, and serves it through a local router.`,
		Subcommands: []*cli.Command{
			DevCommand(),
			versionCommand(os.Stdout),
		},
	}
}

func versionCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
			fmt.Fprintf(stdout, "graphwright %s\n", version.Full())
			return nil
		},
	}
}
