// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// maxLineLength caps a buffered partial line. Longer lines are flushed
// as-is.
const maxLineLength = 64 << 10

// logForwarder is an io.Writer that splits the router's output into
// lines and logs each one. The exec package drives Write from one
// goroutine per stream.
type logForwarder struct {
	logger *slog.Logger

	// fallback is the level for lines that are not JSON: Info for
	// stdout, Warn for stderr.
	fallback slog.Level

	mu      sync.Mutex
	partial []byte
}

func newLogForwarder(logger *slog.Logger, fallback slog.Level) *logForwarder {
	return &logForwarder{logger: logger, fallback: fallback}
}

func (f *logForwarder) Write(data []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.partial = append(f.partial, data...)
	for {
		newline := bytes.IndexByte(f.partial, '\n')
		if newline < 0 {
			break
		}
		f.emit(f.partial[:newline])
		f.partial = f.partial[newline+1:]
	}
	if len(f.partial) > maxLineLength {
		f.emit(f.partial)
		f.partial = nil
	}
	// Keep the buffer from pinning a large backing array.
	if len(f.partial) == 0 {
		f.partial = nil
	}
	return len(data), nil
}

// Flush emits any unterminated final line.
func (f *logForwarder) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.partial) > 0 {
		f.emit(f.partial)
		f.partial = nil
	}
}

func (f *logForwarder) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}

	var record map[string]any
	if line[0] != '{' || json.Unmarshal(line, &record) != nil {
		f.logger.Log(context.Background(), f.fallback, string(line))
		return
	}

	message, _ := record["message"].(string)
	rawLevel, _ := record["level"].(string)
	level, known := parseLevel(rawLevel)

	var attrs []slog.Attr
	if !known && rawLevel != "" {
		attrs = append(attrs, slog.String("router_level", rawLevel))
	}
	if target, ok := record["target"].(string); ok {
		attrs = append(attrs, slog.String("target", target))
	}

	keys := make([]string, 0, len(record))
	for key := range record {
		switch key {
		case "message", "level", "target", "timestamp":
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		attrs = append(attrs, slog.Any(key, record[key]))
	}

	f.logger.LogAttrs(context.Background(), level, message, attrs...)
}

// parseLevel maps router levels to slog. Unknown levels log at Info.
func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToUpper(level) {
	case "TRACE", "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}
