// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

// Command graphwright runs local federated GraphQL dev sessions.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/graphwright/graphwright/cmd/graphwright/commands"
	"github.com/graphwright/graphwright/lib/process"
)

func main() {
	if err := run(); err != nil {
		// Commands that report their own failures return an error
		// carrying only an exit code.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		process.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return commands.Root().Execute(ctx, os.Args[1:])
}
