// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package compose

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/graphwright/graphwright/lib/fault"
	"github.com/graphwright/graphwright/lib/process"
	"github.com/graphwright/graphwright/lib/supergraph"
)

// Tool is the composition binary's name in the install cache.
const Tool = "supergraph"

// Installer resolves a versioned binary. Implemented by
// [*binstall.Installer].
type Installer interface {
	Install(ctx context.Context, tool, version string) (string, error)
}

// Options configures an Engine.
type Options struct {
	// BinaryPath, if set, is used for every composition regardless of
	// federation version.
	BinaryPath string

	// Installer resolves the binary when BinaryPath is empty.
	Installer Installer

	// Supervisor runs the binary. Defaults to process.OS().
	Supervisor process.Supervisor

	// WorkDir receives temporary composition inputs. Defaults to
	// os.TempDir().
	WorkDir string

	Logger *slog.Logger
}

// Engine composes supergraphs. Compose calls are independent; the
// caller serializes them.
type Engine struct {
	binaryPath string
	installer  Installer
	supervisor process.Supervisor
	workDir    string
	logger     *slog.Logger
}

// New returns an Engine.
func New(options Options) *Engine {
	if options.Supervisor == nil {
		options.Supervisor = process.OS()
	}
	if options.WorkDir == "" {
		options.WorkDir = os.TempDir()
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		binaryPath: options.BinaryPath,
		installer:  options.Installer,
		supervisor: options.Supervisor,
		workDir:    options.WorkDir,
		logger:     options.Logger,
	}
}

// CompositionError means the composition binary produced output that
// is neither a success nor a list of build errors.
type CompositionError struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *CompositionError) Error() string {
	message := fmt.Sprintf("composition binary produced unusable output (exit code %d): %v", e.ExitCode, e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		message += "\nstderr: " + stderr
	}
	return message
}

func (e *CompositionError) Unwrap() error { return e.Err }

func (e *CompositionError) FaultCategory() fault.Category { return fault.Composition }

func (e *CompositionError) FaultHint() string {
	return "this is a bug, not a schema problem; please file a bug report including the output above"
}

// binaryOutput is the tagged JSON printed on stdout.
type binaryOutput struct {
	Ok *struct {
		SupergraphSDL string                 `json:"supergraphSdl"`
		Hints         []supergraph.BuildHint `json:"hints"`
	} `json:"Ok"`
	Err *[]supergraph.BuildError `json:"Err"`
}

// Binary returns the composition binary for resolved's federation
// version, installing it if needed.
func (e *Engine) Binary(ctx context.Context, resolved *supergraph.ResolvedConfig) (string, error) {
	if e.binaryPath != "" {
		return e.binaryPath, nil
	}
	if e.installer == nil {
		return "", fault.New(fault.Config, "no composition binary configured")
	}
	if resolved.FederationVersion.IsZero() {
		return "", fault.New(fault.Internal, "composing without a federation version")
	}
	return e.installer.Install(ctx, Tool, resolved.FederationVersion.BinaryVersion())
}

// Compose composes resolved. On a build failure the error is a
// [supergraph.BuildErrors].
func (e *Engine) Compose(ctx context.Context, resolved *supergraph.ResolvedConfig) (supergraph.CompositionOutput, error) {
	binary, err := e.Binary(ctx, resolved)
	if err != nil {
		return supergraph.CompositionOutput{}, fmt.Errorf("resolving composition binary: %w", err)
	}

	input, err := marshalInput(resolved)
	if err != nil {
		return supergraph.CompositionOutput{}, err
	}

	runID := uuid.NewString()
	inputPath := filepath.Join(e.workDir, "graphwright-compose-"+runID+".yaml")
	if err := os.WriteFile(inputPath, input, 0o600); err != nil {
		return supergraph.CompositionOutput{}, fmt.Errorf("writing composition input: %w", err)
	}
	defer os.Remove(inputPath)

	logger := e.logger.With("run_id", runID)
	logger.Debug("composing supergraph",
		"binary", binary,
		"federation_version", resolved.FederationVersion.String(),
		"subgraphs", resolved.Names(),
	)
	start := time.Now()

	result, err := e.supervisor.Run(ctx, process.Spec{
		Path: binary,
		Args: []string{"compose", inputPath},
	})
	if err != nil {
		return supergraph.CompositionOutput{}, fmt.Errorf("running composition: %w", err)
	}

	output, err := parseOutput(result)
	if err != nil {
		var buildErrors supergraph.BuildErrors
		if errors.As(err, &buildErrors) {
			logger.Debug("composition failed", "errors", len(buildErrors), "duration", time.Since(start))
		}
		return supergraph.CompositionOutput{}, err
	}
	output.FederationVersion = resolved.FederationVersion
	logger.Debug("composition succeeded", "hints", len(output.Hints), "duration", time.Since(start))
	return output, nil
}

func parseOutput(result process.Result) (supergraph.CompositionOutput, error) {
	malformed := func(err error) error {
		return &CompositionError{
			Stdout:   string(result.Stdout),
			Stderr:   string(result.Stderr),
			ExitCode: result.ExitCode,
			Err:      err,
		}
	}

	trimmed := bytes.TrimSpace(result.Stdout)
	if len(trimmed) == 0 {
		return supergraph.CompositionOutput{}, malformed(errors.New("no output"))
	}

	var parsed binaryOutput
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	if err := decoder.Decode(&parsed); err != nil {
		return supergraph.CompositionOutput{}, malformed(fmt.Errorf("decoding output: %w", err))
	}

	switch {
	case parsed.Ok != nil && parsed.Err != nil:
		return supergraph.CompositionOutput{}, malformed(errors.New("output is tagged both Ok and Err"))
	case parsed.Ok != nil:
		if parsed.Ok.SupergraphSDL == "" {
			return supergraph.CompositionOutput{}, malformed(errors.New("successful output has an empty supergraphSdl"))
		}
		return supergraph.CompositionOutput{
			SupergraphSDL: parsed.Ok.SupergraphSDL,
			Hints:         parsed.Ok.Hints,
		}, nil
	case parsed.Err != nil:
		if len(*parsed.Err) == 0 {
			return supergraph.CompositionOutput{}, malformed(errors.New("failed output lists no build errors"))
		}
		return supergraph.CompositionOutput{}, supergraph.BuildErrors(*parsed.Err)
	default:
		return supergraph.CompositionOutput{}, malformed(errors.New("output is tagged neither Ok nor Err"))
	}
}
