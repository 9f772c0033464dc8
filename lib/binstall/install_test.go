// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package binstall

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/graphwright/graphwright/lib/binhash"
)

const toolBody = "#!/bin/sh\necho composed\n"

func tarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buffer bytes.Buffer
	writer := tar.NewWriter(&buffer)
	for name, content := range files {
		if err := writer.WriteHeader(&tar.Header{Name: name, Mode: 0o755, Size: int64(len(content)), Typeflag: tar.TypeReg}); err != nil {
			t.Fatal(err)
		}
		if _, err := writer.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	return buffer.Bytes()
}

func compress(t *testing.T, format Format, data []byte) []byte {
	t.Helper()
	var buffer bytes.Buffer
	var writer io.WriteCloser
	switch format {
	case FormatTarGzip:
		writer = gzip.NewWriter(&buffer)
	case FormatTarZstd:
		encoder, err := zstd.NewWriter(&buffer)
		if err != nil {
			t.Fatal(err)
		}
		writer = encoder
	case FormatTarLZ4:
		writer = lz4.NewWriter(&buffer)
	default:
		return data
	}
	if _, err := writer.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	return buffer.Bytes()
}

type staticFetcher struct {
	name   string
	data   []byte
	digest *binhash.Digest
	calls  atomic.Int32
}

func (f *staticFetcher) Fetch(ctx context.Context, tool, version string) (*Archive, error) {
	f.calls.Add(1)
	return &Archive{Name: f.name, Body: io.NopCloser(bytes.NewReader(f.data)), Digest: f.digest}, nil
}

func TestInstallFormats(t *testing.T) {
	archive := tarball(t, map[string]string{
		"dist/README.md":  "docs",
		"dist/supergraph": toolBody,
	})
	tests := []struct {
		name   string
		format Format
		data   []byte
	}{
		{"supergraph.tar.gz", FormatTarGzip, compress(t, FormatTarGzip, archive)},
		{"supergraph.tar.zst", FormatTarZstd, compress(t, FormatTarZstd, archive)},
		{"supergraph.tar.lz4", FormatTarLZ4, compress(t, FormatTarLZ4, archive)},
		{"supergraph.tar", FormatTar, archive},
		{"supergraph", FormatBinary, []byte(toolBody)},
	}
	for _, test := range tests {
		t.Run(test.format.String(), func(t *testing.T) {
			if got := DetectFormat(test.name); got != test.format {
				t.Fatalf("DetectFormat(%q) = %s, want %s", test.name, got, test.format)
			}
			installer, err := New(Options{
				CacheDir: t.TempDir(),
				Fetcher:  &staticFetcher{name: test.name, data: test.data},
			})
			if err != nil {
				t.Fatal(err)
			}
			path, err := installer.Install(context.Background(), "supergraph", "latest-2")
			if err != nil {
				t.Fatalf("Install: %v", err)
			}
			content, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if string(content) != toolBody {
				t.Errorf("installed content = %q", content)
			}
			if err := CheckExecutable(path); err != nil {
				t.Errorf("installed binary not executable: %v", err)
			}
		})
	}
}

func TestInstallReusesCache(t *testing.T) {
	cacheDir := t.TempDir()
	fetcher := &staticFetcher{name: "router", data: []byte(toolBody)}

	first, err := New(Options{CacheDir: cacheDir, Fetcher: fetcher})
	if err != nil {
		t.Fatal(err)
	}
	path, err := first.Install(context.Background(), "router", "v1.2.3")
	if err != nil {
		t.Fatal(err)
	}
	if again, err := first.Install(context.Background(), "router", "v1.2.3"); err != nil || again != path {
		t.Fatalf("second Install = %q, %v", again, err)
	}

	second, err := New(Options{CacheDir: cacheDir, Fetcher: fetcher})
	if err != nil {
		t.Fatal(err)
	}
	if cached, err := second.Install(context.Background(), "router", "v1.2.3"); err != nil || cached != path {
		t.Fatalf("Install from fresh installer = %q, %v", cached, err)
	}
	if calls := fetcher.calls.Load(); calls != 1 {
		t.Errorf("fetcher called %d times, want 1", calls)
	}
}

func TestInstallDigestMismatch(t *testing.T) {
	var wrong binhash.Digest
	wrong[0] = 0xff
	installer, err := New(Options{
		CacheDir: t.TempDir(),
		Fetcher:  &staticFetcher{name: "router", data: []byte(toolBody), digest: &wrong},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = installer.Install(context.Background(), "router", "latest")
	if err == nil || !strings.Contains(err.Error(), "digest mismatch") {
		t.Fatalf("Install error = %v, want digest mismatch", err)
	}
	if _, statErr := os.Stat(installer.Path("router", "latest")); !os.IsNotExist(statErr) {
		t.Errorf("binary installed despite digest mismatch: %v", statErr)
	}
}

func TestInstallMissingExecutable(t *testing.T) {
	archive := compress(t, FormatTarGzip, tarball(t, map[string]string{"other": "x"}))
	installer, err := New(Options{
		CacheDir: t.TempDir(),
		Fetcher:  &staticFetcher{name: "router.tar.gz", data: archive},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := installer.Install(context.Background(), "router", "latest"); err == nil || !strings.Contains(err.Error(), "not found in archive") {
		t.Fatalf("Install error = %v", err)
	}
}

func TestInstallRejectsPathComponents(t *testing.T) {
	installer, err := New(Options{CacheDir: t.TempDir(), Fetcher: &staticFetcher{}})
	if err != nil {
		t.Fatal(err)
	}
	for _, version := range []string{"", "..", "../../etc"} {
		if _, err := installer.Install(context.Background(), "router", version); err == nil {
			t.Errorf("Install accepted version %q", version)
		}
	}
}

func TestHTTPFetcherWithDigest(t *testing.T) {
	archive := compress(t, FormatTarGzip, tarball(t, map[string]string{"router": toolBody}))
	digest, err := binhash.HashReader(bytes.NewReader(archive))
	if err != nil {
		t.Fatal(err)
	}

	var (
		mu        sync.Mutex
		requested []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requested = append(requested, r.URL.Path)
		mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, ".tar.gz.b3"):
			_, _ = io.WriteString(w, digest.String()+"  router.tar.gz\n")
		case strings.HasSuffix(r.URL.Path, ".tar.gz"):
			_, _ = w.Write(archive)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fetcher := &HTTPFetcher{
		URLTemplate:  server.URL + "/{tool}/{version}/{tool}-{os}-{arch}.tar.gz",
		DigestSuffix: ".b3",
	}
	installer, err := New(Options{CacheDir: t.TempDir(), Fetcher: fetcher})
	if err != nil {
		t.Fatal(err)
	}
	path, err := installer.Install(context.Background(), "router", "v1.40.0")
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if content, _ := os.ReadFile(path); string(content) != toolBody {
		t.Errorf("installed content = %q", content)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(requested) != 2 || !strings.HasPrefix(requested[1], "/router/v1.40.0/router-") {
		t.Errorf("requested = %v", requested)
	}
}

func TestHTTPFetcherNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	fetcher := &HTTPFetcher{URLTemplate: server.URL + "/{tool}/{version}"}
	if _, err := fetcher.Fetch(context.Background(), "router", "latest"); err == nil || !strings.Contains(err.Error(), "HTTP 404") {
		t.Fatalf("Fetch error = %v, want HTTP 404", err)
	}
}
