package edge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vyrodovalexey/avarelay/internal/payload"
)

func TestUserStatusRequest(t *testing.T) {
	t.Parallel()

	p := UserStatusRequest("42", SourceGraphQL)
	data, err := p.MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, `{"userId":"42","operation":"getUserStatus","source":"graphql-api"}`, string(data))
}

func TestProjectUserStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		resp *payload.Map
		want UserStatus
	}{
		{
			name: "full response",
			resp: payload.FromPairs(
				"servedBy", "backend",
				"mtlsVerified", true,
				"clientCN", "edge-bff",
				"backendVersion", "1.0.0",
				"tags", payload.FromPairs("env", "dev"),
			),
			want: UserStatus{
				ID: "7", Status: "ACTIVE", ServedBy: "backend",
				MTLSVerified: true, ClientCN: "edge-bff", BackendVersion: "1.0.0",
			},
		},
		{
			name: "middleware fallback",
			resp: MiddlewareFallback(errors.New("refused")),
			want: UserStatus{
				ID: "7", Status: "ACTIVE", ServedBy: "error",
				MTLSVerified: false, ClientCN: "unknown", BackendVersion: "unknown",
			},
		},
		{
			name: "null and mistyped fields",
			resp: payload.FromPairs(
				"servedBy", nil,
				"mtlsVerified", "true",
			),
			want: UserStatus{
				ID: "7", Status: "ACTIVE", ServedBy: "unknown",
				MTLSVerified: false, ClientCN: "unknown", BackendVersion: "unknown",
			},
		},
		{
			name: "nil response",
			resp: nil,
			want: UserStatus{
				ID: "7", Status: "ACTIVE", ServedBy: "unknown",
				ClientCN: "unknown", BackendVersion: "unknown",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ProjectUserStatus("7", tt.resp))
		})
	}
}
