// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package compose

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/graphwright/graphwright/lib/fault"
	"github.com/graphwright/graphwright/lib/federation"
	"github.com/graphwright/graphwright/lib/supergraph"
	"github.com/graphwright/graphwright/lib/testutil"
)

func resolvedConfig(version federation.Version) *supergraph.ResolvedConfig {
	resolved := supergraph.NewResolvedConfig(version)
	resolved.Put(supergraph.SubgraphDefinition{
		SubgraphKey: supergraph.SubgraphKey{Name: "users", RoutingURL: "http://users/graphql"},
		SDL:         "type Query { me: String }",
	})
	resolved.Put(supergraph.SubgraphDefinition{
		SubgraphKey: supergraph.SubgraphKey{Name: "products", RoutingURL: "http://products/graphql"},
		SDL:         "type Query { products: [String] }",
	})
	return resolved
}

// fakeBinary writes a composition binary that copies its input config
// to captured.yaml in dir and prints stdout.
func fakeBinary(t *testing.T, dir, stdout string, exitCode int) string {
	t.Helper()
	testutil.WriteFile(t, dir, "stdout.json", stdout)
	return testutil.WriteExecutable(t, dir, "supergraph",
		`[ "$1" = compose ] || { echo "unexpected subcommand $1" >&2; exit 99; }
cp "$2" "`+dir+`/captured.yaml"
cat "`+dir+`/stdout.json"
echo "composition log line" >&2
exit `+strconv.Itoa(exitCode))
}

func TestComposeSuccess(t *testing.T) {
	dir := t.TempDir()
	binary := fakeBinary(t, dir, `{"Ok":{"supergraphSdl":"schema @link(url: \"https://specs.apollo.dev/link/v1.0\") { query: Query }","hints":[{"message":"field is unused","code":"UNUSED_FIELD"}]}}`, 0)
	workDir := t.TempDir()

	engine := New(Options{BinaryPath: binary, WorkDir: workDir})
	output, err := engine.Compose(context.Background(), resolvedConfig(federation.LatestV2))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !strings.HasPrefix(output.SupergraphSDL, "schema @link") {
		t.Errorf("SupergraphSDL = %q", output.SupergraphSDL)
	}
	if len(output.Hints) != 1 || output.Hints[0].Code != "UNUSED_FIELD" {
		t.Errorf("Hints = %+v", output.Hints)
	}
	if output.FederationVersion != federation.LatestV2 {
		t.Errorf("FederationVersion = %v", output.FederationVersion)
	}

	captured, err := os.ReadFile(filepath.Join(dir, "captured.yaml"))
	if err != nil {
		t.Fatalf("binary did not receive a config: %v", err)
	}
	var input struct {
		FederationVersion string `yaml:"federation_version"`
		Subgraphs         yaml.Node
	}
	if err := yaml.Unmarshal(captured, &input); err != nil {
		t.Fatalf("captured config is not YAML: %v\n%s", err, captured)
	}
	if input.FederationVersion != "2" {
		t.Errorf("federation_version = %q, want 2", input.FederationVersion)
	}
	if len(input.Subgraphs.Content) != 4 || input.Subgraphs.Content[0].Value != "users" || input.Subgraphs.Content[2].Value != "products" {
		t.Errorf("subgraphs not in insertion order:\n%s", captured)
	}
	var decoded struct {
		Subgraphs map[string]inputSubgraph `yaml:"subgraphs"`
	}
	if err := yaml.Unmarshal(captured, &decoded); err != nil {
		t.Fatal(err)
	}
	users := decoded.Subgraphs["users"]
	if users.RoutingURL != "http://users/graphql" || users.Schema.SDL != "type Query { me: String }" {
		t.Errorf("users subgraph = %+v", users)
	}

	leftovers, _ := filepath.Glob(filepath.Join(workDir, "graphwright-compose-*"))
	if len(leftovers) != 0 {
		t.Errorf("temporary inputs left behind: %v", leftovers)
	}
}

func TestComposeBuildErrors(t *testing.T) {
	dir := t.TempDir()
	binary := fakeBinary(t, dir, `{"Err":[{"message":"Field Query.me conflicts","code":"INVALID_FIELD_SHARING"},{"message":"Type Product has no key"}]}`, 1)

	engine := New(Options{BinaryPath: binary, WorkDir: t.TempDir()})
	_, err := engine.Compose(context.Background(), resolvedConfig(federation.LatestV2))

	var buildErrors supergraph.BuildErrors
	if !errors.As(err, &buildErrors) {
		t.Fatalf("error = %v (%T), want BuildErrors", err, err)
	}
	if len(buildErrors) != 2 || buildErrors[0].Code != "INVALID_FIELD_SHARING" || buildErrors[1].Message != "Type Product has no key" {
		t.Errorf("build errors = %+v", buildErrors)
	}
	if fault.CategoryOf(err) != fault.Build {
		t.Errorf("category = %q", fault.CategoryOf(err))
	}
}

func TestComposeMalformedOutput(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
	}{
		{"empty", ""},
		{"not json", "thread 'main' panicked at src/main.rs"},
		{"untagged", `{"supergraphSdl":"x"}`},
		{"both tags", `{"Ok":{"supergraphSdl":"x"},"Err":[]}`},
		{"empty sdl", `{"Ok":{"supergraphSdl":""}}`},
		{"empty errors", `{"Err":[]}`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dir := t.TempDir()
			binary := fakeBinary(t, dir, test.stdout, 2)
			engine := New(Options{BinaryPath: binary, WorkDir: t.TempDir()})

			_, err := engine.Compose(context.Background(), resolvedConfig(federation.V1))
			var compositionErr *CompositionError
			if !errors.As(err, &compositionErr) {
				t.Fatalf("error = %v (%T), want *CompositionError", err, err)
			}
			if compositionErr.ExitCode != 2 {
				t.Errorf("ExitCode = %d, want 2", compositionErr.ExitCode)
			}
			if !strings.Contains(compositionErr.Stderr, "composition log line") {
				t.Errorf("Stderr = %q", compositionErr.Stderr)
			}
			if hint := fault.HintOf(err); !strings.Contains(hint, "bug report") {
				t.Errorf("hint = %q", hint)
			}
			if fault.CategoryOf(err) != fault.Composition {
				t.Errorf("category = %q", fault.CategoryOf(err))
			}
		})
	}
}

type recordingInstaller struct {
	path     string
	versions []string
}

func (r *recordingInstaller) Install(_ context.Context, tool, version string) (string, error) {
	if tool != Tool {
		return "", errors.New("unexpected tool " + tool)
	}
	r.versions = append(r.versions, version)
	return r.path, nil
}

func TestComposeInstallsBinaryForVersion(t *testing.T) {
	dir := t.TempDir()
	installer := &recordingInstaller{path: fakeBinary(t, dir, `{"Ok":{"supergraphSdl":"type Query { a: Int }"}}`, 0)}
	engine := New(Options{Installer: installer, WorkDir: t.TempDir()})

	pinned, err := federation.Parse("=2.3.1")
	if err != nil {
		t.Fatal(err)
	}
	for _, version := range []federation.Version{federation.V1, federation.LatestV2, pinned} {
		if _, err := engine.Compose(context.Background(), resolvedConfig(version)); err != nil {
			t.Fatalf("Compose(%v): %v", version, err)
		}
	}
	want := []string{"latest-1", "latest-2", "v2.3.1"}
	if strings.Join(installer.versions, ",") != strings.Join(want, ",") {
		t.Errorf("installed versions = %v, want %v", installer.versions, want)
	}
}

func TestComposeCancelled(t *testing.T) {
	dir := t.TempDir()
	binary := testutil.WriteExecutable(t, dir, "supergraph", "sleep 30")
	engine := New(Options{BinaryPath: binary, WorkDir: t.TempDir()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := engine.Compose(ctx, resolvedConfig(federation.V1)); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
