// Package edge holds what the REST, GraphQL and SOAP facades share: the
// mutual-TLS client toward the middleware and the user-status projection.
package edge
