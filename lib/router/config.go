// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"fmt"
	"net"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/graphwright/graphwright/lib/atomicfile"
)

// DefaultListenAddr is where the router serves when neither the user's
// router config nor the caller names an address.
const DefaultListenAddr = "127.0.0.1:4000"

// Config is a router config document. Only supergraph.listen and
// supergraph.path are interpreted; everything else passes through
// untouched.
type Config struct {
	document map[string]any
}

// DefaultConfig returns a config listening on listen with
// introspection enabled, which local development tools expect.
func DefaultConfig(listen string) *Config {
	if listen == "" {
		listen = DefaultListenAddr
	}
	return &Config{document: map[string]any{
		"supergraph": map[string]any{
			"listen":        listen,
			"introspection": true,
		},
		"include_subgraph_errors": map[string]any{
			"all": true,
		},
	}}
}

// LoadConfig reads a user-supplied router config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading router config: %w", err)
	}
	document := map[string]any{}
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("parsing router config %s: %w", path, err)
	}
	if document == nil {
		document = map[string]any{}
	}
	config := &Config{document: document}
	if listen := config.Listen(); listen != DefaultListenAddr {
		if _, _, err := net.SplitHostPort(listen); err != nil {
			return nil, fmt.Errorf("router config %s: supergraph.listen %q: %w", path, listen, err)
		}
	}
	return config, nil
}

func (c *Config) supergraph() map[string]any {
	section, ok := c.document["supergraph"].(map[string]any)
	if !ok {
		section = map[string]any{}
		c.document["supergraph"] = section
	}
	return section
}

// Listen returns supergraph.listen, or DefaultListenAddr.
func (c *Config) Listen() string {
	if listen, ok := c.supergraph()["listen"].(string); ok && listen != "" {
		return listen
	}
	return DefaultListenAddr
}

// SetListen overrides supergraph.listen.
func (c *Config) SetListen(listen string) {
	c.supergraph()["listen"] = listen
}

// GraphQLPath returns supergraph.path, or "/".
func (c *Config) GraphQLPath() string {
	if path, ok := c.supergraph()["path"].(string); ok && path != "" {
		return path
	}
	return "/"
}

// Endpoint is the URL health checks and clients use.
func (c *Config) Endpoint() string {
	host, port, err := net.SplitHostPort(c.Listen())
	if err != nil {
		return "http://" + c.Listen() + c.GraphQLPath()
	}
	// A wildcard listen address is reachable on loopback.
	switch host {
	case "", "0.0.0.0":
		host = "127.0.0.1"
	case "::", "[::]":
		host = "::1"
	}
	return "http://" + net.JoinHostPort(host, port) + c.GraphQLPath()
}

// Write atomically writes the config as YAML.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c.document)
	if err != nil {
		return fmt.Errorf("encoding router config: %w", err)
	}
	if err := atomicfile.Write(path, data, 0o644); err != nil {
		return fmt.Errorf("writing router config: %w", err)
	}
	return nil
}
