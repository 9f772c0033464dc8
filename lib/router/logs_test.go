// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"log/slog"
	"sync"
	"testing"
)

type capturedRecord struct {
	level   slog.Level
	message string
	attrs   map[string]any
}

// recordingHandler keeps every record it handles.
type recordingHandler struct {
	mu      sync.Mutex
	records []capturedRecord
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, record slog.Record) error {
	captured := capturedRecord{level: record.Level, message: record.Message, attrs: map[string]any{}}
	record.Attrs(func(attr slog.Attr) bool {
		captured.attrs[attr.Key] = attr.Value.Any()
		return true
	})
	h.mu.Lock()
	h.records = append(h.records, captured)
	h.mu.Unlock()
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func TestLogForwarder(t *testing.T) {
	handler := &recordingHandler{}
	forwarder := newLogForwarder(slog.New(handler), slog.LevelWarn)

	// Lines split across writes, CRLF endings, and blank lines.
	chunks := []string{
		`{"level":"DEBUG","message":"query planned","target":"planner","timestamp":"t","span":{"id":1}}` + "\n" + `{"level":"ER`,
		`ROR","message":"subgraph unreachable"}` + "\r\n\n",
		`{"level":"FATAL","message":"odd"}` + "\n",
		"plain text\n",
		"no newline at end",
	}
	for _, chunk := range chunks {
		if _, err := forwarder.Write([]byte(chunk)); err != nil {
			t.Fatal(err)
		}
	}
	forwarder.Flush()

	want := []struct {
		level   slog.Level
		message string
	}{
		{slog.LevelDebug, "query planned"},
		{slog.LevelError, "subgraph unreachable"},
		{slog.LevelInfo, "odd"},
		{slog.LevelWarn, "plain text"},
		{slog.LevelWarn, "no newline at end"},
	}
	if len(handler.records) != len(want) {
		t.Fatalf("got %d records, want %d: %+v", len(handler.records), len(want), handler.records)
	}
	for i, expected := range want {
		got := handler.records[i]
		if got.level != expected.level || got.message != expected.message {
			t.Errorf("record %d = %v %q, want %v %q", i, got.level, got.message, expected.level, expected.message)
		}
	}

	first := handler.records[0].attrs
	if first["target"] != "planner" {
		t.Errorf("target attr = %v", first["target"])
	}
	if _, ok := first["timestamp"]; ok {
		t.Error("timestamp should not be re-emitted as an attribute")
	}
	if _, ok := first["span"]; !ok {
		t.Error("extra fields should be carried as attributes")
	}
	if handler.records[2].attrs["router_level"] != "FATAL" {
		t.Errorf("unknown level not attached: %v", handler.records[2].attrs)
	}
}
