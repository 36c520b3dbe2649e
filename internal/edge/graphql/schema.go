// Package graphql is the GraphQL facade of the edge service. Queries are
// parsed and validated with gqlparser and resolved against the middleware.
package graphql

import (
	_ "embed"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

//go:embed schema.graphqls
var schemaSource string

// Schema is the parsed edge schema.
var Schema = gqlparser.MustLoadSchema(&ast.Source{Name: "schema.graphqls", Input: schemaSource})
