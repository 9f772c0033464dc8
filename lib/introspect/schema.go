// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package introspect

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
)

// introspectionQuery omits isRepeatable and specifiedByURL, which older
// servers reject.
const introspectionQuery = `query IntrospectionQuery {
  __schema {
    queryType { name }
    mutationType { name }
    subscriptionType { name }
    types { ...FullType }
    directives {
      name
      description
      locations
      args { ...InputValue }
    }
  }
}

fragment FullType on __Type {
  kind
  name
  description
  fields(includeDeprecated: true) {
    name
    description
    args { ...InputValue }
    type { ...TypeRef }
    isDeprecated
    deprecationReason
  }
  inputFields { ...InputValue }
  interfaces { ...TypeRef }
  enumValues(includeDeprecated: true) {
    name
    description
    isDeprecated
    deprecationReason
  }
  possibleTypes { ...TypeRef }
}

fragment InputValue on __InputValue {
  name
  description
  type { ...TypeRef }
  defaultValue
}

fragment TypeRef on __Type {
  kind
  name
  ofType {
    kind
    name
    ofType {
      kind
      name
      ofType {
        kind
        name
        ofType {
          kind
          name
          ofType {
            kind
            name
            ofType {
              kind
              name
            }
          }
        }
      }
    }
  }
}`

type namedJSON struct {
	Name string `json:"name"`
}

type typeRefJSON struct {
	Kind   string       `json:"kind"`
	Name   *string      `json:"name"`
	OfType *typeRefJSON `json:"ofType"`
}

type inputValueJSON struct {
	Name         string      `json:"name"`
	Description  *string     `json:"description"`
	Type         typeRefJSON `json:"type"`
	DefaultValue *string     `json:"defaultValue"`
}

type fieldJSON struct {
	Name              string           `json:"name"`
	Description       *string          `json:"description"`
	Args              []inputValueJSON `json:"args"`
	Type              typeRefJSON      `json:"type"`
	IsDeprecated      bool             `json:"isDeprecated"`
	DeprecationReason *string          `json:"deprecationReason"`
}

type enumValueJSON struct {
	Name              string  `json:"name"`
	Description       *string `json:"description"`
	IsDeprecated      bool    `json:"isDeprecated"`
	DeprecationReason *string `json:"deprecationReason"`
}

type fullTypeJSON struct {
	Kind          string           `json:"kind"`
	Name          string           `json:"name"`
	Description   *string          `json:"description"`
	Fields        []fieldJSON      `json:"fields"`
	InputFields   []inputValueJSON `json:"inputFields"`
	Interfaces    []typeRefJSON    `json:"interfaces"`
	EnumValues    []enumValueJSON  `json:"enumValues"`
	PossibleTypes []typeRefJSON    `json:"possibleTypes"`
}

type directiveJSON struct {
	Name        string           `json:"name"`
	Description *string          `json:"description"`
	Locations   []string         `json:"locations"`
	Args        []inputValueJSON `json:"args"`
}

type schemaJSON struct {
	QueryType        *namedJSON      `json:"queryType"`
	MutationType     *namedJSON      `json:"mutationType"`
	SubscriptionType *namedJSON      `json:"subscriptionType"`
	Types            []fullTypeJSON  `json:"types"`
	Directives       []directiveJSON `json:"directives"`
}

var builtinScalars = map[string]bool{
	"String": true, "Int": true, "Float": true, "Boolean": true, "ID": true,
}

// introspectedSource marks printed definitions as user-defined; the
// formatter skips directive definitions whose source is built in.
var introspectedSource = &ast.Source{Name: "introspection"}

var builtinDirectives = map[string]bool{
	"skip": true, "include": true, "deprecated": true, "specifiedBy": true, "oneOf": true,
}

// printSchema converts an introspection result into SDL. Built-in
// scalars, introspection types and built-in directives are omitted.
func printSchema(schema *schemaJSON) (string, error) {
	document := &ast.SchemaDocument{}

	if definition := schemaDefinition(schema); definition != nil {
		document.Schema = append(document.Schema, definition)
	}

	for _, directive := range schema.Directives {
		if builtinDirectives[directive.Name] {
			continue
		}
		definition := &ast.DirectiveDefinition{
			Description: deref(directive.Description),
			Name:        directive.Name,
			Position:    &ast.Position{Src: introspectedSource},
		}
		for _, location := range directive.Locations {
			definition.Locations = append(definition.Locations, ast.DirectiveLocation(location))
		}
		for _, arg := range directive.Args {
			argument, err := argumentDefinition(arg)
			if err != nil {
				return "", fmt.Errorf("directive @%s: %w", directive.Name, err)
			}
			definition.Arguments = append(definition.Arguments, argument)
		}
		document.Directives = append(document.Directives, definition)
	}

	for _, fullType := range schema.Types {
		if strings.HasPrefix(fullType.Name, "__") || builtinScalars[fullType.Name] {
			continue
		}
		definition, err := typeDefinition(fullType)
		if err != nil {
			return "", fmt.Errorf("type %s: %w", fullType.Name, err)
		}
		document.Definitions = append(document.Definitions, definition)
	}

	var buffer bytes.Buffer
	formatter.NewFormatter(&buffer).FormatSchemaDocument(document)
	return buffer.String(), nil
}

// schemaDefinition is nil when every root type has its conventional
// name, so the printed SDL carries no schema block.
func schemaDefinition(schema *schemaJSON) *ast.SchemaDefinition {
	roots := []struct {
		operation ast.Operation
		named     *namedJSON
		standard  string
	}{
		{ast.Query, schema.QueryType, "Query"},
		{ast.Mutation, schema.MutationType, "Mutation"},
		{ast.Subscription, schema.SubscriptionType, "Subscription"},
	}

	conventional := true
	definition := &ast.SchemaDefinition{}
	for _, root := range roots {
		if root.named == nil {
			continue
		}
		if root.named.Name != root.standard {
			conventional = false
		}
		definition.OperationTypes = append(definition.OperationTypes, &ast.OperationTypeDefinition{
			Operation: root.operation,
			Type:      root.named.Name,
		})
	}
	if conventional {
		return nil
	}
	return definition
}

func typeDefinition(fullType fullTypeJSON) (*ast.Definition, error) {
	definition := &ast.Definition{
		Name:        fullType.Name,
		Description: deref(fullType.Description),
	}

	switch fullType.Kind {
	case "SCALAR":
		definition.Kind = ast.Scalar
	case "OBJECT", "INTERFACE":
		definition.Kind = ast.Object
		if fullType.Kind == "INTERFACE" {
			definition.Kind = ast.Interface
		}
		for _, iface := range fullType.Interfaces {
			definition.Interfaces = append(definition.Interfaces, deref(iface.Name))
		}
		for _, field := range fullType.Fields {
			fieldType, err := typeReference(field.Type)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field.Name, err)
			}
			fieldDefinition := &ast.FieldDefinition{
				Name:        field.Name,
				Description: deref(field.Description),
				Type:        fieldType,
				Directives:  deprecation(field.IsDeprecated, field.DeprecationReason),
			}
			for _, arg := range field.Args {
				argument, err := argumentDefinition(arg)
				if err != nil {
					return nil, fmt.Errorf("field %s: %w", field.Name, err)
				}
				fieldDefinition.Arguments = append(fieldDefinition.Arguments, argument)
			}
			definition.Fields = append(definition.Fields, fieldDefinition)
		}
	case "UNION":
		definition.Kind = ast.Union
		for _, possible := range fullType.PossibleTypes {
			definition.Types = append(definition.Types, deref(possible.Name))
		}
	case "ENUM":
		definition.Kind = ast.Enum
		for _, value := range fullType.EnumValues {
			definition.EnumValues = append(definition.EnumValues, &ast.EnumValueDefinition{
				Name:        value.Name,
				Description: deref(value.Description),
				Directives:  deprecation(value.IsDeprecated, value.DeprecationReason),
			})
		}
	case "INPUT_OBJECT":
		definition.Kind = ast.InputObject
		for _, input := range fullType.InputFields {
			inputType, err := typeReference(input.Type)
			if err != nil {
				return nil, fmt.Errorf("input field %s: %w", input.Name, err)
			}
			definition.Fields = append(definition.Fields, &ast.FieldDefinition{
				Name:         input.Name,
				Description:  deref(input.Description),
				Type:         inputType,
				DefaultValue: literal(input.DefaultValue),
			})
		}
	default:
		return nil, fmt.Errorf("unknown type kind %q", fullType.Kind)
	}
	return definition, nil
}

func argumentDefinition(input inputValueJSON) (*ast.ArgumentDefinition, error) {
	argumentType, err := typeReference(input.Type)
	if err != nil {
		return nil, fmt.Errorf("argument %s: %w", input.Name, err)
	}
	return &ast.ArgumentDefinition{
		Name:         input.Name,
		Description:  deref(input.Description),
		Type:         argumentType,
		DefaultValue: literal(input.DefaultValue),
	}, nil
}

func typeReference(reference typeRefJSON) (*ast.Type, error) {
	switch reference.Kind {
	case "NON_NULL":
		if reference.OfType == nil {
			return nil, fmt.Errorf("NON_NULL type without ofType")
		}
		inner, err := typeReference(*reference.OfType)
		if err != nil {
			return nil, err
		}
		inner.NonNull = true
		return inner, nil
	case "LIST":
		if reference.OfType == nil {
			return nil, fmt.Errorf("LIST type without ofType")
		}
		inner, err := typeReference(*reference.OfType)
		if err != nil {
			return nil, err
		}
		return ast.ListType(inner, nil), nil
	default:
		if reference.Name == nil {
			return nil, fmt.Errorf("%s type reference without a name", reference.Kind)
		}
		return ast.NamedType(*reference.Name, nil), nil
	}
}

func deprecation(deprecated bool, reason *string) ast.DirectiveList {
	if !deprecated {
		return nil
	}
	directive := &ast.Directive{Name: "deprecated"}
	if reason != nil && *reason != "" {
		directive.Arguments = ast.ArgumentList{{
			Name:  "reason",
			Value: &ast.Value{Kind: ast.StringValue, Raw: *reason},
		}}
	}
	return ast.DirectiveList{directive}
}

// literal carries an introspected default value, which is already
// GraphQL literal syntax. EnumValue prints Raw verbatim.
func literal(raw *string) *ast.Value {
	if raw == nil {
		return nil
	}
	return &ast.Value{Kind: ast.EnumValue, Raw: *raw}
}

func deref(text *string) string {
	if text == nil {
		return ""
	}
	return *text
}
