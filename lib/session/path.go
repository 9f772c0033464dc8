// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// maxSocketPathLength is the usable length of sun_path on Linux (108
// bytes including the terminating NUL).
const maxSocketPathLength = 107

var unsafeSessionCharacters = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// DefaultRuntimeDir is $XDG_RUNTIME_DIR when set, otherwise the system
// temporary directory.
func DefaultRuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}

// SessionIDFromListen derives a session ID from a router listen
// address, so every CLI invocation targeting the same router joins the
// same session.
func SessionIDFromListen(listen string) string {
	return sanitizeSessionID(listen)
}

func sanitizeSessionID(sessionID string) string {
	return strings.Trim(unsafeSessionCharacters.ReplaceAllString(sessionID, "-"), "-")
}

// SocketPath returns the socket for sessionID inside runtimeDir.
func SocketPath(runtimeDir, sessionID string) (string, error) {
	sanitized := sanitizeSessionID(sessionID)
	if sanitized == "" {
		return "", fmt.Errorf("session ID %q has no usable characters", sessionID)
	}
	path := filepath.Join(runtimeDir, "graphwright-dev-"+sanitized+".sock")
	if len(path) > maxSocketPathLength {
		return "", fmt.Errorf("session socket path %s is %d bytes, over the %d byte limit for unix sockets; use a shorter runtime directory or session ID",
			path, len(path), maxSocketPathLength)
	}
	return path, nil
}
