// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/graphwright/graphwright/lib/binstall"
	"github.com/graphwright/graphwright/lib/clock"
	"github.com/graphwright/graphwright/lib/process"
)

// Tool is the router's name in the install cache.
const Tool = "router"

// DefaultVersion is installed when no version is pinned.
const DefaultVersion = "latest"

const (
	DefaultStartupTimeout  = 5 * time.Second
	DefaultHealthInterval  = 250 * time.Millisecond
	DefaultShutdownGrace   = 5 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
)

// healthQuery is the smallest valid GraphQL request.
var healthQuery = []byte(`{"query":"{__typename}"}`)

// State is the router lifecycle state.
type State int

const (
	NotInstalled State = iota
	Installed
	Spawned
	Stopped
)

func (s State) String() string {
	switch s {
	case NotInstalled:
		return "not-installed"
	case Installed:
		return "installed"
	case Spawned:
		return "spawned"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Installer resolves a versioned binary. Implemented by
// [*binstall.Installer].
type Installer interface {
	Install(ctx context.Context, tool, version string) (string, error)
}

// Options configures a Manager.
type Options struct {
	// BinaryPath takes precedence over Version.
	BinaryPath string

	// Version is installed through Installer; defaults to
	// DefaultVersion.
	Version   string
	Installer Installer

	// ConfigPath is an optional user router config. The Manager never
	// modifies it; the effective config is written to WorkDir.
	ConfigPath string

	// ListenAddr overrides supergraph.listen.
	ListenAddr string

	// WorkDir receives the effective router config.
	WorkDir string

	Supervisor process.Supervisor
	Clock      clock.Clock
	HTTPClient *http.Client
	Logger     *slog.Logger

	StartupTimeout  time.Duration
	HealthInterval  time.Duration
	ShutdownGrace   time.Duration
	ShutdownTimeout time.Duration
}

// Manager owns at most one router process. Methods are safe for
// concurrent use, but the orchestrator is the only caller that changes
// state.
type Manager struct {
	options Options
	config  *Config
	logger  *slog.Logger

	mu         sync.Mutex
	state      State
	binary     string
	handle     *process.Handle
	stdout     *logForwarder
	stderr     *logForwarder
	configPath string
}

// New validates options and loads the router config.
func New(options Options) (*Manager, error) {
	if options.Version == "" {
		options.Version = DefaultVersion
	}
	if options.Supervisor == nil {
		options.Supervisor = process.OS()
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.HTTPClient == nil {
		options.HTTPClient = &http.Client{Timeout: time.Second}
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if options.WorkDir == "" {
		options.WorkDir = os.TempDir()
	}
	if options.StartupTimeout <= 0 {
		options.StartupTimeout = DefaultStartupTimeout
	}
	if options.HealthInterval <= 0 {
		options.HealthInterval = DefaultHealthInterval
	}
	if options.ShutdownGrace <= 0 {
		options.ShutdownGrace = DefaultShutdownGrace
	}
	if options.ShutdownTimeout <= 0 {
		options.ShutdownTimeout = DefaultShutdownTimeout
	}

	config := DefaultConfig(options.ListenAddr)
	if options.ConfigPath != "" {
		loaded, err := LoadConfig(options.ConfigPath)
		if err != nil {
			return nil, err
		}
		config = loaded
		if options.ListenAddr != "" {
			config.SetListen(options.ListenAddr)
		}
	}

	return &Manager{
		options: options,
		config:  config,
		logger:  options.Logger.With("component", "router"),
		state:   NotInstalled,
	}, nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Endpoint is the router's GraphQL URL.
func (m *Manager) Endpoint() string { return m.config.Endpoint() }

// ListenAddr is the router's listen address.
func (m *Manager) ListenAddr() string { return m.config.Listen() }

// Exited returns a channel closed when the current router process
// exits, or nil when no process has been spawned. A nil channel blocks
// forever in a select, which is what a caller waiting for crashes
// wants.
func (m *Manager) Exited() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil {
		return nil
	}
	return m.handle.Done()
}

// EnsureInstalled resolves the router binary: BinaryPath if set,
// otherwise Version through the Installer. The result is memoized.
func (m *Manager) EnsureInstalled(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.binary != "" {
		return nil
	}

	if m.options.BinaryPath != "" {
		if err := binstall.CheckExecutable(m.options.BinaryPath); err != nil {
			return fmt.Errorf("router binary %s: %w", m.options.BinaryPath, err)
		}
		m.binary = m.options.BinaryPath
	} else {
		if m.options.Installer == nil {
			return errors.New("no router binary path and no installer configured")
		}
		path, err := m.options.Installer.Install(ctx, Tool, m.options.Version)
		if err != nil {
			return fmt.Errorf("installing router: %w", err)
		}
		m.binary = path
	}
	if m.state == NotInstalled {
		m.state = Installed
	}
	m.logger.Debug("router binary ready", "path", m.binary)
	return nil
}

// Spawn starts the router on supergraphPath with hot reload. Spawning
// while a router is running is an error.
func (m *Manager) Spawn(ctx context.Context, supergraphPath string) error {
	if err := m.EnsureInstalled(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle != nil && !m.handle.Exited() {
		return fmt.Errorf("router already running (pid %d)", m.handle.Pid())
	}

	configPath := filepath.Join(m.options.WorkDir, "router.yaml")
	if err := m.config.Write(configPath); err != nil {
		return err
	}

	stdout := newLogForwarder(m.logger, slog.LevelInfo)
	stderr := newLogForwarder(m.logger, slog.LevelWarn)
	handle, err := m.options.Supervisor.Start(process.Spec{
		Path: m.binary,
		Args: []string{
			"--supergraph", supergraphPath,
			"--hot-reload",
			"--config", configPath,
		},
		Stdout: stdout,
		Stderr: stderr,
	})
	if err != nil {
		return fmt.Errorf("spawning router: %w", err)
	}

	m.handle = handle
	m.stdout = stdout
	m.stderr = stderr
	m.configPath = configPath
	m.state = Spawned
	m.logger.Info("router spawned", "pid", handle.Pid(), "listen", m.config.Listen())

	go func() {
		<-handle.Done()
		stdout.Flush()
		stderr.Flush()
	}()
	return nil
}

func (m *Manager) currentHandle() *process.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle
}

// WaitForStartup polls the router with a trivial query until it
// answers with a 2xx status. Errors are *StartupError.
func (m *Manager) WaitForStartup(ctx context.Context) error {
	handle := m.currentHandle()
	if handle == nil {
		return &StartupError{Endpoint: m.Endpoint(), Err: errors.New("router was never spawned")}
	}

	deadline := m.options.Clock.Now().Add(m.options.StartupTimeout)
	var lastErr error
	for {
		if handle.Exited() {
			return &StartupError{Endpoint: m.Endpoint(), Exited: true, ExitCode: handle.ExitCode()}
		}
		healthy, err := m.healthy(ctx)
		if healthy {
			m.logger.Info("router is ready", "endpoint", m.Endpoint())
			return nil
		}
		lastErr = err
		if !m.options.Clock.Now().Before(deadline) {
			return &StartupError{Endpoint: m.Endpoint(), Timeout: m.options.StartupTimeout, Err: lastErr}
		}
		select {
		case <-ctx.Done():
			return &StartupError{Endpoint: m.Endpoint(), Timeout: m.options.StartupTimeout, Err: ctx.Err()}
		case <-handle.Done():
		case <-m.options.Clock.After(m.options.HealthInterval):
		}
	}
}

// healthy reports whether the endpoint answered with a 2xx status.
func (m *Manager) healthy(ctx context.Context) (bool, error) {
	status, err := m.probe(ctx)
	if err != nil {
		return false, err
	}
	if status < 200 || status > 299 {
		return false, fmt.Errorf("health check returned HTTP %d", status)
	}
	return true, nil
}

// probe sends the health query and returns the HTTP status.
func (m *Manager) probe(ctx context.Context) (int, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint(), bytes.NewReader(healthQuery))
	if err != nil {
		return 0, err
	}
	request.Header.Set("Content-Type", "application/json")
	response, err := m.options.HTTPClient.Do(request)
	if err != nil {
		return 0, err
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, 4096))
	return response.StatusCode, nil
}

// Kill stops the router: SIGTERM to its process group, SIGKILL if it
// has not exited after the grace period, then a bounded wait for the
// endpoint to stop answering. Killing a router that is not running is
// a no-op.
func (m *Manager) Kill(ctx context.Context) error {
	m.mu.Lock()
	handle := m.handle
	m.mu.Unlock()
	if handle == nil {
		return nil
	}

	if !handle.Exited() {
		m.logger.Info("stopping router", "pid", handle.Pid())
		if err := handle.Signal(syscall.SIGTERM); err != nil {
			m.logger.Warn("signalling router", "error", err)
		}
		select {
		case <-handle.Done():
		case <-m.options.Clock.After(m.options.ShutdownGrace):
			m.logger.Warn("router ignored SIGTERM, sending SIGKILL", "pid", handle.Pid(), "grace", m.options.ShutdownGrace)
			if err := handle.Signal(syscall.SIGKILL); err != nil {
				m.logger.Warn("killing router", "error", err)
			}
			select {
			case <-handle.Done():
			case <-m.options.Clock.After(m.options.ShutdownTimeout):
				return fmt.Errorf("router process %d did not exit after SIGKILL", handle.Pid())
			}
		case <-ctx.Done():
			// Shutting down anyway; make sure nothing outlives us.
			_ = handle.Signal(syscall.SIGKILL)
			<-handle.Done()
		}
	}

	m.mu.Lock()
	if m.handle == handle {
		m.handle = nil
		m.state = Stopped
	}
	m.mu.Unlock()

	return m.waitForEndpointDown(ctx)
}

// waitForEndpointDown polls until the endpoint stops answering at
// all; any HTTP response counts as still answering.
func (m *Manager) waitForEndpointDown(ctx context.Context) error {
	// Use a fresh context so an already-cancelled shutdown context
	// still gets one honest probe.
	probeCtx := context.WithoutCancel(ctx)
	deadline := m.options.Clock.Now().Add(m.options.ShutdownTimeout)
	for {
		if _, err := m.probe(probeCtx); err != nil {
			return nil
		}
		if !m.options.Clock.Now().Before(deadline) || ctx.Err() != nil {
			return &ShutdownError{Endpoint: m.Endpoint(), Timeout: m.options.ShutdownTimeout}
		}
		m.options.Clock.Sleep(m.options.HealthInterval)
	}
}

// MarkExited records that the router process exited on its own and
// returns its exit code. The next Spawn starts a fresh process. It is a
// no-op while the process is still running.
func (m *Manager) MarkExited() (exitCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil || !m.handle.Exited() {
		return 0
	}
	exitCode = m.handle.ExitCode()
	m.handle = nil
	m.state = Stopped
	return exitCode
}
