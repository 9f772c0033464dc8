// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError asks main to exit with Code without printing anything; the
// command has already reported the failure itself.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode is the interface main checks for.
func (e *ExitError) ExitCode() int {
	return e.Code
}
