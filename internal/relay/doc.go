// Package relay implements the middleware hop: it records the mutual-TLS
// identity of the caller, forwards the payload to the backend and unions the
// backend answer into its own response.
package relay
