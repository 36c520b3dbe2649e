package graphql

import (
	"context"
	"errors"
	"fmt"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"

	"github.com/vyrodovalexey/avarelay/internal/edge"
	"github.com/vyrodovalexey/avarelay/internal/observability"
	"github.com/vyrodovalexey/avarelay/internal/payload"
)

// Request is a GraphQL request as sent over HTTP.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Response is a GraphQL response. Data is nil when the request failed
// before execution.
type Response struct {
	Data   *payload.Map  `json:"data"`
	Errors gqlerror.List `json:"errors,omitempty"`
}

var errIntrospection = errors.New("introspection is not supported")

// Executor resolves validated queries.
type Executor struct {
	caller edge.Caller
	logger observability.Logger
}

// NewExecutor creates an executor resolving userStatus through caller.
func NewExecutor(caller edge.Caller, logger observability.Logger) *Executor {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Executor{caller: caller, logger: logger}
}

// Execute parses, validates and resolves req.
func (e *Executor) Execute(ctx context.Context, req Request) *Response {
	if req.Query == "" {
		return &Response{Errors: gqlerror.List{gqlerror.Errorf("query is required")}}
	}

	doc, errs := gqlparser.LoadQuery(Schema, req.Query)
	if len(errs) > 0 {
		return &Response{Errors: errs}
	}

	op := doc.Operations.ForName(req.OperationName)
	if op == nil {
		if req.OperationName == "" {
			return &Response{Errors: gqlerror.List{gqlerror.Errorf("operationName is required when the document has several operations")}}
		}
		return &Response{Errors: gqlerror.List{gqlerror.Errorf("operation %q not found", req.OperationName)}}
	}
	if op.Operation != ast.Query {
		return &Response{Errors: gqlerror.List{gqlerror.Errorf("only query operations are supported")}}
	}

	vars, verr := validator.VariableValues(Schema, op, req.Variables)
	if verr != nil {
		return &Response{Errors: gqlerror.List{gqlerror.Wrap(verr)}}
	}

	r := &resolution{ctx: ctx, exec: e, vars: vars}
	data := r.selectQuery(op.SelectionSet)
	return &Response{Data: data, Errors: r.errs}
}

type resolution struct {
	ctx  context.Context
	exec *Executor
	vars map[string]any
	errs gqlerror.List
}

func (r *resolution) selectQuery(set ast.SelectionSet) *payload.Map {
	out := payload.New()
	for _, f := range collectFields(set, r.vars) {
		switch f.Name {
		case "__typename":
			out.Set(f.Alias, "Query")
		case "__schema", "__type":
			r.errs = append(r.errs, gqlerror.ErrorPosf(f.Position, "%s", errIntrospection.Error()))
			out.Set(f.Alias, nil)
		case "userStatus":
			out.Set(f.Alias, r.resolveUserStatus(f))
		default:
			r.errs = append(r.errs, gqlerror.ErrorPosf(f.Position, "unknown field %q", f.Name))
			out.Set(f.Alias, nil)
		}
	}
	return out
}

func (r *resolution) resolveUserStatus(f *ast.Field) any {
	args := f.ArgumentMap(r.vars)
	id := idString(args["id"])

	r.exec.logger.WithContext(r.ctx).Info("GraphQL query for user status", observability.String("id", id))
	resp := r.exec.caller.CallMiddleware(r.ctx, edge.UserStatusRequest(id, edge.SourceGraphQL))
	status := edge.ProjectUserStatus(id, resp)

	return selectUserStatus(status, f.SelectionSet, r.vars)
}

func selectUserStatus(s edge.UserStatus, set ast.SelectionSet, vars map[string]any) *payload.Map {
	out := payload.New()
	for _, f := range collectFields(set, vars) {
		switch f.Name {
		case "__typename":
			out.Set(f.Alias, "UserStatus")
		case "id":
			out.Set(f.Alias, s.ID)
		case "status":
			out.Set(f.Alias, s.Status)
		case "servedBy":
			out.Set(f.Alias, s.ServedBy)
		case "mtlsVerified":
			out.Set(f.Alias, s.MTLSVerified)
		case "clientCN":
			out.Set(f.Alias, s.ClientCN)
		case "backendVersion":
			out.Set(f.Alias, s.BackendVersion)
		}
	}
	return out
}

// collectFields flattens fragments and applies @skip and @include. Fields
// sharing a response key are merged into the first occurrence.
func collectFields(set ast.SelectionSet, vars map[string]any) []*ast.Field {
	var fields []*ast.Field
	index := make(map[string]int)

	var walk func(ast.SelectionSet)
	walk = func(set ast.SelectionSet) {
		for _, sel := range set {
			switch s := sel.(type) {
			case *ast.Field:
				if !included(s.Directives, vars) {
					continue
				}
				key := s.Alias
				if key == "" {
					key = s.Name
				}
				if i, ok := index[key]; ok {
					merged := *fields[i]
					merged.SelectionSet = append(append(ast.SelectionSet{}, merged.SelectionSet...), s.SelectionSet...)
					fields[i] = &merged
					continue
				}
				f := *s
				f.Alias = key
				index[key] = len(fields)
				fields = append(fields, &f)
			case *ast.InlineFragment:
				if included(s.Directives, vars) {
					walk(s.SelectionSet)
				}
			case *ast.FragmentSpread:
				if included(s.Directives, vars) && s.Definition != nil {
					walk(s.Definition.SelectionSet)
				}
			}
		}
	}
	walk(set)
	return fields
}

func included(directives ast.DirectiveList, vars map[string]any) bool {
	if d := directives.ForName("skip"); d != nil {
		if v, _ := d.ArgumentMap(vars)["if"].(bool); v {
			return false
		}
	}
	if d := directives.ForName("include"); d != nil {
		if v, _ := d.ArgumentMap(vars)["if"].(bool); !v {
			return false
		}
	}
	return true
}

func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}
