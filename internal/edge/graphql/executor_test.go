package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avarelay/internal/edge"
	"github.com/vyrodovalexey/avarelay/internal/payload"
)

type fakeCaller struct {
	calls []*payload.Map
	resp  *payload.Map
}

func (f *fakeCaller) CallMiddleware(_ context.Context, p *payload.Map) *payload.Map {
	f.calls = append(f.calls, p)
	return f.resp
}

func verifiedResponse() *payload.Map {
	return payload.FromPairs(
		"mtlsVerified", true,
		"clientCN", "edge-bff",
		"middlewareProcessed", true,
		"servedBy", "backend",
		"backendVersion", "1.0.0",
	)
}

func execute(t *testing.T, caller edge.Caller, req Request) string {
	t.Helper()
	resp := NewExecutor(caller, nil).Execute(context.Background(), req)
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	return string(data)
}

func TestExecute_UserStatus(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{resp: verifiedResponse()}
	got := execute(t, caller, Request{
		Query: `{ userStatus(id: "42") { id status servedBy mtlsVerified clientCN backendVersion } }`,
	})

	assert.JSONEq(t, `{"data":{"userStatus":{
		"id":"42","status":"ACTIVE","servedBy":"backend",
		"mtlsVerified":true,"clientCN":"edge-bff","backendVersion":"1.0.0"}}}`, got)

	require.Len(t, caller.calls, 1)
	assert.JSONEq(t, `{"userId":"42","operation":"getUserStatus","source":"graphql-api"}`, mustJSON(t, caller.calls[0]))
}

func TestExecute_SelectionOrderAndAliases(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{resp: verifiedResponse()}
	got := execute(t, caller, Request{
		Query: `query Two($a: ID!) {
			first: userStatus(id: $a) { who: clientCN __typename }
			second: userStatus(id: "7") { id }
			__typename
		}`,
		Variables: map[string]any{"a": "1"},
	})

	assert.Equal(t,
		`{"data":{"first":{"who":"edge-bff","__typename":"UserStatus"},"second":{"id":"7"},"__typename":"Query"}}`,
		got)
	require.Len(t, caller.calls, 2)
	assert.Equal(t, "1", caller.calls[0].String("userId", ""))
}

func TestExecute_FragmentsAndDirectives(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{resp: verifiedResponse()}
	got := execute(t, caller, Request{
		Query: `
			query Q($withCN: Boolean!) {
				userStatus(id: "9") {
					...Basic
					... on UserStatus { servedBy }
					clientCN @include(if: $withCN)
					backendVersion @skip(if: true)
				}
			}
			fragment Basic on UserStatus { id status }`,
		Variables: map[string]any{"withCN": false},
	})

	assert.Equal(t, `{"data":{"userStatus":{"id":"9","status":"ACTIVE","servedBy":"backend"}}}`, got)
}

func TestExecute_FallbackDefaults(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{resp: edge.MiddlewareFallback(errors.New("connection refused"))}
	got := execute(t, caller, Request{
		Query: `{ userStatus(id: "1") { status servedBy mtlsVerified clientCN backendVersion } }`,
	})

	assert.JSONEq(t, `{"data":{"userStatus":{
		"status":"ACTIVE","servedBy":"error","mtlsVerified":false,
		"clientCN":"unknown","backendVersion":"unknown"}}}`, got)
}

func TestExecute_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"empty query", Request{}, "query is required"},
		{"syntax error", Request{Query: `{ userStatus(id: "1") { id `}, "Expected"},
		{"unknown field", Request{Query: `{ userStatus(id: "1") { email } }`}, `Cannot query field "email"`},
		{"missing argument", Request{Query: `{ userStatus { id } }`}, `argument "id" of type "ID!" is required`},
		{"missing variable", Request{Query: `query Q($id: ID!) { userStatus(id: $id) { id } }`}, "must be defined"},
		{"ambiguous operation", Request{Query: `query A { __typename } query B { __typename }`}, "operationName is required"},
		{"unknown operation", Request{Query: `query A { __typename }`, OperationName: "B"}, `operation "B" not found`},
		{"introspection", Request{Query: `{ __schema { queryType { name } } }`}, "introspection is not supported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			caller := &fakeCaller{resp: verifiedResponse()}
			resp := NewExecutor(caller, nil).Execute(context.Background(), tt.req)
			require.NotEmpty(t, resp.Errors)
			assert.Contains(t, resp.Errors[0].Message, tt.want)
			assert.Empty(t, caller.calls)
		})
	}
}

func TestExecute_NamedOperation(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{resp: verifiedResponse()}
	got := execute(t, caller, Request{
		Query:         `query A { __typename } query B { userStatus(id: "3") { id } }`,
		OperationName: "B",
	})
	assert.Equal(t, `{"data":{"userStatus":{"id":"3"}}}`, got)
}

func mustJSON(t *testing.T, m *payload.Map) string {
	t.Helper()
	data, err := json.Marshal(m)
	require.NoError(t, err)
	return string(data)
}
