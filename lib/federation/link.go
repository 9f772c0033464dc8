// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package federation

import (
	"regexp"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// schemaLinkPattern finds @link inside a schema definition or
// extension header when the SDL does not parse.
var schemaLinkPattern = regexp.MustCompile(`(?s)\bschema\b[^{]*@link\b`)

// RequiresV2 reports whether sdl declares @link on its schema
// definition or a schema extension, which opts the subgraph into the
// federation 2 contract.
func RequiresV2(sdl string) bool {
	document, err := parser.ParseSchema(&ast.Source{Name: "subgraph.graphql", Input: sdl})
	if err != nil {
		// Federation 1 subgraphs frequently reference directives they
		// never define, which is still valid input for composition.
		// A syntax error here is left for the composition binary to
		// report; detection falls back to scanning the text.
		return schemaLinkPattern.MatchString(sdl)
	}
	for _, definition := range document.Schema {
		if definition.Directives.ForName("link") != nil {
			return true
		}
	}
	for _, extension := range document.SchemaExtension {
		if extension.Directives.ForName("link") != nil {
			return true
		}
	}
	return false
}
