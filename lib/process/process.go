// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// Spec describes a child process.
type Spec struct {
	// Path is the executable to run.
	Path string

	// Args are the arguments after the executable name.
	Args []string

	// Dir is the working directory. Empty means the caller's.
	Dir string

	// Env entries are appended to the parent's environment.
	Env []string

	// Stdout and Stderr receive the child's output streams. Nil
	// discards the stream.
	Stdout io.Writer
	Stderr io.Writer
}

// Result is the outcome of a command run to completion.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Supervisor starts and runs child processes. The OS implementation is
// returned by [OS]; tests may substitute their own.
type Supervisor interface {
	Start(spec Spec) (*Handle, error)
	Run(ctx context.Context, spec Spec) (Result, error)
}

// OS returns the Supervisor backed by os/exec.
func OS() Supervisor { return osSupervisor{} }

type osSupervisor struct{}

func (osSupervisor) Start(spec Spec) (*Handle, error) { return Start(spec) }

func (osSupervisor) Run(ctx context.Context, spec Spec) (Result, error) { return Run(ctx, spec) }

// Handle is a running child process. The reaping goroutine started by
// Start is the only caller of Wait, so Done is the single source of
// truth for whether the child is still alive.
type Handle struct {
	command *exec.Cmd
	done    chan struct{}

	mu       sync.Mutex
	exitCode int
	waitErr  error
}

// Start launches spec in a new process group and begins reaping it in
// the background.
func Start(spec Spec) (*Handle, error) {
	command := buildCommand(spec)
	command.Stdout = spec.Stdout
	command.Stderr = spec.Stderr

	if err := command.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", spec.Path, err)
	}

	handle := &Handle{
		command: command,
		done:    make(chan struct{}),
	}
	go handle.reap()
	return handle, nil
}

func (h *Handle) reap() {
	err := h.command.Wait()
	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}
	h.mu.Lock()
	h.exitCode = code
	h.waitErr = err
	h.mu.Unlock()
	close(h.done)
}

// Pid returns the child's process ID, which is also its process group ID.
func (h *Handle) Pid() int { return h.command.Process.Pid }

// Done is closed when the child has exited and been reaped.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Exited reports whether the child has exited.
func (h *Handle) Exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// ExitCode returns the exit code once Done is closed. -1 means the
// child was killed by a signal or could not be waited for.
func (h *Handle) ExitCode() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitCode
}

// Err returns the error from waiting on the child, if any.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.waitErr
}

// Signal delivers sig to the child's whole process group. Signalling
// an already-reaped child is not an error.
func (h *Handle) Signal(sig syscall.Signal) error {
	if h.Exited() {
		return nil
	}
	if err := unix.Kill(-h.Pid(), sig); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("signalling process group %d with %v: %w", h.Pid(), sig, err)
	}
	return nil
}

// Run executes spec to completion and captures both output streams.
// Cancelling ctx kills the process group. A non-zero exit is reported
// through Result.ExitCode, not as an error; the error is reserved for
// failures to start or wait.
func Run(ctx context.Context, spec Spec) (Result, error) {
	command := buildCommand(spec)

	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr
	if spec.Stdout != nil {
		command.Stdout = io.MultiWriter(&stdout, spec.Stdout)
	}
	if spec.Stderr != nil {
		command.Stderr = io.MultiWriter(&stderr, spec.Stderr)
	}

	if err := command.Start(); err != nil {
		return Result{}, fmt.Errorf("starting %s: %w", spec.Path, err)
	}

	waitDone := make(chan error, 1)
	go func() { waitDone <- command.Wait() }()

	var err error
	select {
	case err = <-waitDone:
	case <-ctx.Done():
		unix.Kill(-command.Process.Pid, unix.SIGKILL)
		<-waitDone
		return Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitCode: -1},
			fmt.Errorf("running %s: %w", spec.Path, ctx.Err())
	}

	result := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return result, fmt.Errorf("waiting for %s: %w", spec.Path, err)
		}
		result.ExitCode = exitErr.ExitCode()
	}
	return result, nil
}

func buildCommand(spec Spec) *exec.Cmd {
	command := exec.Command(spec.Path, spec.Args...)
	command.Dir = spec.Dir
	if len(spec.Env) > 0 {
		command.Env = append(os.Environ(), spec.Env...)
	}
	command.SysProcAttr = sysProcAttr()
	return command
}
