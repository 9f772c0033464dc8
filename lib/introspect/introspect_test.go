// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package introspect

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// graphqlServer answers federated and standard introspection queries
// with canned responses, recording the Authorization header it saw.
type graphqlServer struct {
	federated     string
	federatedCode int
	standard      string
	authorization string
}

func (s *graphqlServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.authorization = r.Header.Get("Authorization")
	var request graphqlRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if strings.Contains(request.Query, "_service") {
		if s.federatedCode != 0 {
			w.WriteHeader(s.federatedCode)
		}
		_, _ = w.Write([]byte(s.federated))
		return
	}
	_, _ = w.Write([]byte(s.standard))
}

func TestFetchSubgraphSDL(t *testing.T) {
	handler := &graphqlServer{
		federated: `{"data":{"_service":{"sdl":"extend schema @link(url: \"https://specs.apollo.dev/federation/v2.3\")\ntype Query { me: String }"}}}`,
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	sdl, err := New(nil).FetchSubgraphSDL(context.Background(), server.URL, map[string]string{"Authorization": "Bearer x"})
	if err != nil {
		t.Fatalf("FetchSubgraphSDL: %v", err)
	}
	if !strings.Contains(sdl, "@link") || !strings.Contains(sdl, "me: String") {
		t.Errorf("sdl = %q", sdl)
	}
	if handler.authorization != "Bearer x" {
		t.Errorf("Authorization header = %q, want %q", handler.authorization, "Bearer x")
	}
}

func TestFetchSubgraphSDLNotFederated(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		code     int
		contains string
	}{
		{
			name:     "errors with 200",
			body:     `{"errors":[{"message":"Cannot query field \"_service\" on type \"Query\"."}]}`,
			contains: "_service",
		},
		{
			name:     "errors with 400",
			body:     `{"errors":[{"message":"Cannot query field \"_service\" on type \"Query\"."}]}`,
			code:     http.StatusBadRequest,
			contains: "Cannot query field",
		},
		{
			name:     "null sdl",
			body:     `{"data":{"_service":{"sdl":null}}}`,
			contains: "_service.sdl missing",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			server := httptest.NewServer(&graphqlServer{federated: test.body, federatedCode: test.code})
			defer server.Close()

			_, err := New(nil).FetchSubgraphSDL(context.Background(), server.URL, nil)
			var queryErr *QueryError
			if !errors.As(err, &queryErr) {
				t.Fatalf("error = %v (%T), want *QueryError", err, err)
			}
			if !strings.Contains(err.Error(), test.contains) {
				t.Errorf("error %q does not contain %q", err, test.contains)
			}
		})
	}
}

func TestFetchTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := New(nil).FetchSubgraphSDL(context.Background(), server.URL, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var queryErr *QueryError
	if errors.As(err, &queryErr) {
		t.Errorf("HTTP 502 reported as a query error: %v", err)
	}
	if !strings.Contains(err.Error(), "HTTP 502") {
		t.Errorf("error = %v", err)
	}
}

const standardIntrospection = `{"data":{"__schema":{
  "queryType":{"name":"Query"},
  "mutationType":null,
  "subscriptionType":null,
  "directives":[
    {"name":"include","locations":["FIELD"],"args":[{"name":"if","type":{"kind":"NON_NULL","ofType":{"kind":"SCALAR","name":"Boolean"}}}]},
    {"name":"cached","description":"Cache hint","locations":["FIELD_DEFINITION","OBJECT"],"args":[{"name":"ttl","type":{"kind":"SCALAR","name":"Int"},"defaultValue":"60"}]}
  ],
  "types":[
    {"kind":"SCALAR","name":"String"},
    {"kind":"SCALAR","name":"Int"},
    {"kind":"SCALAR","name":"Boolean"},
    {"kind":"OBJECT","name":"__Schema","fields":[]},
    {"kind":"SCALAR","name":"DateTime","description":"ISO-8601"},
    {"kind":"OBJECT","name":"Query","fields":[
      {"name":"products","args":[{"name":"first","type":{"kind":"SCALAR","name":"Int"},"defaultValue":"10"},{"name":"filter","type":{"kind":"INPUT_OBJECT","name":"ProductFilter"}}],
       "type":{"kind":"NON_NULL","ofType":{"kind":"LIST","ofType":{"kind":"NON_NULL","ofType":{"kind":"OBJECT","name":"Product"}}}}},
      {"name":"legacy","args":[],"type":{"kind":"SCALAR","name":"String"},"isDeprecated":true,"deprecationReason":"use products"}
    ],"interfaces":[]},
    {"kind":"INTERFACE","name":"Node","fields":[{"name":"id","args":[],"type":{"kind":"NON_NULL","ofType":{"kind":"SCALAR","name":"ID"}}}]},
    {"kind":"OBJECT","name":"Product","description":"A thing for sale","fields":[
      {"name":"id","args":[],"type":{"kind":"NON_NULL","ofType":{"kind":"SCALAR","name":"ID"}}},
      {"name":"status","args":[],"type":{"kind":"ENUM","name":"Status"}},
      {"name":"updated","args":[],"type":{"kind":"SCALAR","name":"DateTime"}}
    ],"interfaces":[{"kind":"INTERFACE","name":"Node"}]},
    {"kind":"ENUM","name":"Status","enumValues":[{"name":"ACTIVE"},{"name":"RETIRED","isDeprecated":true,"deprecationReason":"gone"}]},
    {"kind":"UNION","name":"SearchResult","possibleTypes":[{"kind":"OBJECT","name":"Product"}]},
    {"kind":"INPUT_OBJECT","name":"ProductFilter","inputFields":[{"name":"status","type":{"kind":"ENUM","name":"Status"},"defaultValue":"ACTIVE"}]}
  ]
}}}`

func TestFetchGraphSDL(t *testing.T) {
	server := httptest.NewServer(&graphqlServer{standard: standardIntrospection})
	defer server.Close()

	sdl, err := New(nil).FetchGraphSDL(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("FetchGraphSDL: %v", err)
	}

	document, parseErr := parser.ParseSchema(&ast.Source{Name: "printed", Input: sdl})
	if parseErr != nil {
		t.Fatalf("printed SDL does not parse: %v\n%s", parseErr, sdl)
	}

	definitions := map[string]*ast.Definition{}
	for _, definition := range document.Definitions {
		definitions[definition.Name] = definition
	}
	for _, excluded := range []string{"String", "Int", "Boolean", "__Schema"} {
		if _, ok := definitions[excluded]; ok {
			t.Errorf("built-in %s was printed", excluded)
		}
	}
	for name, kind := range map[string]ast.DefinitionKind{
		"Query":         ast.Object,
		"Node":          ast.Interface,
		"Product":       ast.Object,
		"Status":        ast.Enum,
		"SearchResult":  ast.Union,
		"ProductFilter": ast.InputObject,
		"DateTime":      ast.Scalar,
	} {
		definition, ok := definitions[name]
		if !ok {
			t.Errorf("type %s missing from printed SDL", name)
			continue
		}
		if definition.Kind != kind {
			t.Errorf("type %s kind = %s, want %s", name, definition.Kind, kind)
		}
	}

	products := definitions["Query"].Fields.ForName("products")
	if products == nil {
		t.Fatal("Query.products missing")
	}
	if got := products.Type.String(); got != "[Product!]!" {
		t.Errorf("Query.products type = %s, want [Product!]!", got)
	}
	if first := products.Arguments.ForName("first"); first == nil || first.DefaultValue == nil || first.DefaultValue.Raw != "10" {
		t.Errorf("Query.products(first) default not preserved: %+v", first)
	}
	if legacy := definitions["Query"].Fields.ForName("legacy"); legacy == nil || legacy.Directives.ForName("deprecated") == nil {
		t.Error("Query.legacy lost its @deprecated directive")
	}
	if !strings.Contains(sdl, "implements Node") {
		t.Errorf("Product does not implement Node:\n%s", sdl)
	}

	if len(document.Directives) != 1 || document.Directives[0].Name != "cached" {
		t.Errorf("directives = %v, want only @cached", document.Directives)
	}
	if len(document.Schema) != 0 {
		t.Errorf("conventional root names produced a schema block:\n%s", sdl)
	}
}

func TestFetchGraphSDLCustomRoots(t *testing.T) {
	body := `{"data":{"__schema":{
	  "queryType":{"name":"Root"},
	  "directives":[],
	  "types":[{"kind":"OBJECT","name":"Root","fields":[{"name":"ok","args":[],"type":{"kind":"SCALAR","name":"Boolean"}}],"interfaces":[]}]
	}}}`
	server := httptest.NewServer(&graphqlServer{standard: body})
	defer server.Close()

	sdl, err := New(nil).FetchGraphSDL(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("FetchGraphSDL: %v", err)
	}
	document, parseErr := parser.ParseSchema(&ast.Source{Input: sdl})
	if parseErr != nil {
		t.Fatalf("printed SDL does not parse: %v\n%s", parseErr, sdl)
	}
	if len(document.Schema) != 1 {
		t.Fatalf("expected a schema block:\n%s", sdl)
	}
	var queryRoot string
	for _, operation := range document.Schema[0].OperationTypes {
		if operation.Operation == ast.Query {
			queryRoot = operation.Type
		}
	}
	if queryRoot != "Root" {
		t.Errorf("query root = %q, want Root", queryRoot)
	}
}

func TestFetchGraphSDLCustomDirective(t *testing.T) {
	body := `{"data":{"__schema":{
	  "queryType":{"name":"Query"},
	  "directives":[{"name":"auth","locations":["FIELD_DEFINITION"],"args":[]}],
	  "types":[{"kind":"OBJECT","name":"Query","fields":[{"name":"me","args":[],"type":{"kind":"SCALAR","name":"String"}}],"interfaces":[]}]
	}}}`
	server := httptest.NewServer(&graphqlServer{standard: body})
	defer server.Close()

	sdl, err := New(nil).FetchGraphSDL(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("FetchGraphSDL: %v", err)
	}
	document, parseErr := parser.ParseSchema(&ast.Source{Input: sdl})
	if parseErr != nil {
		t.Fatalf("printed SDL does not parse: %v\n%s", parseErr, sdl)
	}
	if len(document.Directives) != 1 || document.Directives[0].Name != "auth" {
		t.Fatalf("directives = %v, want @auth\n%s", document.Directives, sdl)
	}
	locations := document.Directives[0].Locations
	if len(locations) != 1 || locations[0] != ast.LocationFieldDefinition {
		t.Errorf("@auth locations = %v, want [FIELD_DEFINITION]", locations)
	}
}
