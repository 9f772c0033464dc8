// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"fmt"
	"time"

	"github.com/graphwright/graphwright/lib/fault"
)

// StartupError means the router did not become healthy.
type StartupError struct {
	Endpoint string
	Timeout  time.Duration

	// Exited is true when the process died before answering; ExitCode
	// is then its exit status.
	Exited   bool
	ExitCode int

	Err error
}

func (e *StartupError) Error() string {
	if e.Exited {
		return fmt.Sprintf("router exited with code %d before answering at %s", e.ExitCode, e.Endpoint)
	}
	if e.Err != nil {
		return fmt.Sprintf("router did not answer at %s within %v: %v", e.Endpoint, e.Timeout, e.Err)
	}
	return fmt.Sprintf("router did not answer at %s within %v", e.Endpoint, e.Timeout)
}

func (e *StartupError) Unwrap() error { return e.Err }

func (e *StartupError) FaultCategory() fault.Category { return fault.RouterStartup }

func (e *StartupError) FaultHint() string {
	return "check the router log lines above; another process may already be listening on the router address"
}

// ShutdownError means the router endpoint kept answering after the
// process was killed.
type ShutdownError struct {
	Endpoint string
	Timeout  time.Duration
}

func (e *ShutdownError) Error() string {
	return fmt.Sprintf("router endpoint %s still responding %v after shutdown", e.Endpoint, e.Timeout)
}

func (e *ShutdownError) FaultCategory() fault.Category { return fault.RouterShutdown }

func (e *ShutdownError) FaultHint() string {
	return "another process is serving on the router address; stop it before starting a new session"
}
