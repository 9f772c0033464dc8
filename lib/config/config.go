// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/graphwright/graphwright/lib/fault"
	"github.com/graphwright/graphwright/lib/federation"
)

// SourceKind identifies how a subgraph's schema is obtained.
type SourceKind string

const (
	SourceFile       SourceKind = "file"
	SourceIntrospect SourceKind = "introspect"
	SourceRegistry   SourceKind = "registry"
	SourceInline     SourceKind = "sdl"
)

// SchemaSource is a subgraph's declared schema source. Exactly the
// fields for Kind are set.
type SchemaSource struct {
	Kind SourceKind

	// Path is the absolute schema file path (SourceFile).
	Path string

	// URL and Headers describe the introspection endpoint
	// (SourceIntrospect).
	URL     string
	Headers map[string]string

	// GraphRef and Subgraph locate the schema in the registry
	// (SourceRegistry).
	GraphRef string
	Subgraph string

	// SDL is the inline schema (SourceInline).
	SDL string
}

// Equal reports whether two sources would resolve identically.
func (s SchemaSource) Equal(other SchemaSource) bool {
	return s.Kind == other.Kind &&
		s.Path == other.Path &&
		s.URL == other.URL &&
		maps.Equal(s.Headers, other.Headers) &&
		s.GraphRef == other.GraphRef &&
		s.Subgraph == other.Subgraph &&
		s.SDL == other.SDL
}

func (s SchemaSource) String() string {
	switch s.Kind {
	case SourceFile:
		return "file " + s.Path
	case SourceIntrospect:
		return "introspection of " + s.URL
	case SourceRegistry:
		return fmt.Sprintf("registry %s subgraph %s", s.GraphRef, s.Subgraph)
	case SourceInline:
		return "inline SDL"
	}
	return string(s.Kind)
}

// SubgraphConfig is one entry under subgraphs.
type SubgraphConfig struct {
	// RoutingURL is where the router sends queries. Empty means it is
	// inferred from the source (introspection URL or registry).
	RoutingURL string
	Schema     SchemaSource
}

// Equal reports whether two subgraph entries are identical.
func (s SubgraphConfig) Equal(other SubgraphConfig) bool {
	return s.RoutingURL == other.RoutingURL && s.Schema.Equal(other.Schema)
}

// SupergraphConfig is a loaded and validated supergraph config.
type SupergraphConfig struct {
	// Path is the absolute path the config was loaded from. Empty for
	// configs built in memory.
	Path string

	// BaseDir anchors relative schema file paths.
	BaseDir string

	// FederationVersion is the declared version; zero when absent.
	FederationVersion federation.Version

	Subgraphs map[string]SubgraphConfig
}

// Names returns subgraph names sorted, the order in which subgraphs are
// first resolved and composed.
func (c *SupergraphConfig) Names() []string {
	names := make([]string, 0, len(c.Subgraphs))
	for name := range c.Subgraphs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Error is a config problem, optionally scoped to one subgraph.
type Error struct {
	Path     string
	Subgraph string
	Err      error
}

func (e *Error) Error() string {
	var prefix []string
	if e.Path != "" {
		prefix = append(prefix, e.Path)
	}
	if e.Subgraph != "" {
		prefix = append(prefix, "subgraph "+e.Subgraph)
	}
	if len(prefix) == 0 {
		return "invalid supergraph config: " + e.Err.Error()
	}
	return fmt.Sprintf("invalid supergraph config (%s): %v", strings.Join(prefix, ", "), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) FaultCategory() fault.Category { return fault.Config }

// fileConfig is the on-disk shape.
type fileConfig struct {
	FederationVersion string                  `yaml:"federation_version"`
	Subgraphs         map[string]fileSubgraph `yaml:"subgraphs"`
}

type fileSubgraph struct {
	RoutingURL string     `yaml:"routing_url"`
	Schema     fileSchema `yaml:"schema"`
}

type fileSchema struct {
	File                 string            `yaml:"file"`
	SubgraphURL          string            `yaml:"subgraph_url"`
	IntrospectionHeaders map[string]string `yaml:"introspection_headers"`
	GraphRef             string            `yaml:"graphref"`
	Subgraph             string            `yaml:"subgraph"`
	SDL                  string            `yaml:"sdl"`
}

// Load reads and validates the supergraph config at path.
func Load(path string) (*SupergraphConfig, error) {
	absolutePath, err := filepath.Abs(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	data, err := os.ReadFile(absolutePath)
	if err != nil {
		return nil, &Error{Path: absolutePath, Err: fmt.Errorf("reading config: %w", err)}
	}

	baseDir := filepath.Dir(absolutePath)
	dotenv, err := readDotenv(filepath.Join(baseDir, ".env"))
	if err != nil {
		return nil, &Error{Path: absolutePath, Err: err}
	}

	switch strings.ToLower(filepath.Ext(absolutePath)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	loaded, err := Parse(data, baseDir, envLookup(dotenv))
	if err != nil {
		var configErr *Error
		if errors.As(err, &configErr) {
			configErr.Path = absolutePath
			return nil, configErr
		}
		return nil, &Error{Path: absolutePath, Err: err}
	}
	loaded.Path = absolutePath
	return loaded, nil
}

// LookupFunc resolves ${env.NAME} references.
type LookupFunc func(name string) (string, bool)

// Parse decodes and validates config bytes (YAML, or JSON which is a
// subset of YAML). Relative file paths resolve against baseDir.
func Parse(data []byte, baseDir string, lookup LookupFunc) (*SupergraphConfig, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	var raw fileConfig
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &Error{Err: errors.New("config is empty")}
		}
		return nil, &Error{Err: fmt.Errorf("parsing config: %w", err)}
	}

	loaded := &SupergraphConfig{
		BaseDir:   baseDir,
		Subgraphs: make(map[string]SubgraphConfig, len(raw.Subgraphs)),
	}

	if raw.FederationVersion != "" {
		version, err := federation.Parse(raw.FederationVersion)
		if err != nil {
			return nil, &Error{Err: err}
		}
		loaded.FederationVersion = version
	}

	if len(raw.Subgraphs) == 0 {
		return nil, &Error{Err: errors.New("no subgraphs declared")}
	}

	for name, entry := range raw.Subgraphs {
		subgraph, err := convertSubgraph(entry, baseDir, lookup)
		if err != nil {
			return nil, &Error{Subgraph: name, Err: err}
		}
		if err := ValidateSubgraphName(name); err != nil {
			return nil, &Error{Subgraph: name, Err: err}
		}
		loaded.Subgraphs[name] = subgraph
	}
	return loaded, nil
}

var subgraphNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// ValidateSubgraphName rejects names composition cannot use.
func ValidateSubgraphName(name string) error {
	if !subgraphNamePattern.MatchString(name) {
		return fmt.Errorf("subgraph name %q must start with a letter or underscore and contain only letters, digits, '_' and '-'", name)
	}
	return nil
}

// ValidateRoutingURL checks that url is an absolute http(s) URL.
func ValidateRoutingURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("routing_url %q: %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("routing_url %q must be an http or https URL", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("routing_url %q has no host", raw)
	}
	return nil
}

func convertSubgraph(entry fileSubgraph, baseDir string, lookup LookupFunc) (SubgraphConfig, error) {
	routingURL, err := expand(entry.RoutingURL, lookup)
	if err != nil {
		return SubgraphConfig{}, fmt.Errorf("routing_url: %w", err)
	}
	if routingURL != "" {
		if err := ValidateRoutingURL(routingURL); err != nil {
			return SubgraphConfig{}, err
		}
	}

	schema := entry.Schema
	var set []SourceKind
	if schema.File != "" {
		set = append(set, SourceFile)
	}
	if schema.SubgraphURL != "" {
		set = append(set, SourceIntrospect)
	}
	if schema.GraphRef != "" || schema.Subgraph != "" {
		set = append(set, SourceRegistry)
	}
	if schema.SDL != "" {
		set = append(set, SourceInline)
	}
	if len(set) != 1 {
		return SubgraphConfig{}, fmt.Errorf("schema must declare exactly one of file, subgraph_url, graphref+subgraph, or sdl (found %d)", len(set))
	}
	if len(schema.IntrospectionHeaders) > 0 && set[0] != SourceIntrospect {
		return SubgraphConfig{}, errors.New("introspection_headers is only valid with subgraph_url")
	}

	source := SchemaSource{Kind: set[0]}
	switch source.Kind {
	case SourceFile:
		source.Path = schema.File
		if !filepath.IsAbs(source.Path) {
			source.Path = filepath.Join(baseDir, source.Path)
		}
		source.Path = filepath.Clean(source.Path)

	case SourceIntrospect:
		source.URL, err = expand(schema.SubgraphURL, lookup)
		if err != nil {
			return SubgraphConfig{}, fmt.Errorf("subgraph_url: %w", err)
		}
		if err := ValidateRoutingURL(source.URL); err != nil {
			return SubgraphConfig{}, fmt.Errorf("subgraph_url: %w", err)
		}
		if len(schema.IntrospectionHeaders) > 0 {
			source.Headers = make(map[string]string, len(schema.IntrospectionHeaders))
			for header, value := range schema.IntrospectionHeaders {
				expanded, err := expand(value, lookup)
				if err != nil {
					return SubgraphConfig{}, fmt.Errorf("introspection header %s: %w", header, err)
				}
				source.Headers[header] = expanded
			}
		}

	case SourceRegistry:
		if schema.GraphRef == "" || schema.Subgraph == "" {
			return SubgraphConfig{}, errors.New("registry schema sources need both graphref and subgraph")
		}
		source.GraphRef = schema.GraphRef
		source.Subgraph = schema.Subgraph

	case SourceInline:
		source.SDL = schema.SDL
		if routingURL == "" {
			return SubgraphConfig{}, errors.New("routing_url is required for inline sdl schemas")
		}
	}

	if source.Kind == SourceFile && routingURL == "" {
		return SubgraphConfig{}, errors.New("routing_url is required for file schemas")
	}

	return SubgraphConfig{RoutingURL: routingURL, Schema: source}, nil
}

var envReference = regexp.MustCompile(`\$\{env\.([A-Za-z_][A-Za-z0-9_]*)\}`)

// expand replaces ${env.NAME} references in value.
func expand(value string, lookup LookupFunc) (string, error) {
	var missing []string
	expanded := envReference.ReplaceAllStringFunc(value, func(reference string) string {
		name := envReference.FindStringSubmatch(reference)[1]
		resolved, ok := lookup(name)
		if !ok {
			missing = append(missing, name)
			return reference
		}
		return resolved
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("environment variable %s is not set", strings.Join(missing, ", "))
	}
	return expanded, nil
}

// readDotenv returns the variables in a .env file, or nothing if the
// file does not exist. It never modifies the process environment.
func readDotenv(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return values, nil
}

// envLookup prefers the process environment over the .env file.
func envLookup(dotenv map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		if value, ok := os.LookupEnv(name); ok {
			return value, true
		}
		value, ok := dotenv[name]
		return value, ok
	}
}
