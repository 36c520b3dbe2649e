package edge

import "github.com/vyrodovalexey/avarelay/internal/payload"

// StatusActive is reported for every user; the chain does not look users up.
const StatusActive = "ACTIVE"

// Unknown fills string fields the middleware response lacks.
const Unknown = "unknown"

// Operation names and sources sent by the facades.
const (
	OperationGetUserStatus = "getUserStatus"
	SourceGraphQL          = "graphql-api"
	SourceSOAP             = "soap-api"
)

// UserStatus is the user status view shared by GraphQL and SOAP.
type UserStatus struct {
	ID             string
	Status         string
	ServedBy       string
	MTLSVerified   bool
	ClientCN       string
	BackendVersion string
}

// UserStatusRequest builds the payload sent to the middleware for id.
func UserStatusRequest(id, source string) *payload.Map {
	return payload.FromPairs(
		"userId", id,
		"operation", OperationGetUserStatus,
		"source", source,
	)
}

// ProjectUserStatus maps a middleware response onto UserStatus.
func ProjectUserStatus(id string, resp *payload.Map) UserStatus {
	return UserStatus{
		ID:             id,
		Status:         StatusActive,
		ServedBy:       resp.String("servedBy", Unknown),
		MTLSVerified:   resp.Bool("mtlsVerified", false),
		ClientCN:       resp.String("clientCN", Unknown),
		BackendVersion: resp.String("backendVersion", Unknown),
	}
}
