// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package process

import "syscall"

// sysProcAttr puts the child in its own process group and asks the
// kernel to SIGKILL it when the parent thread exits.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
}
