// Package mtls derives the client identity of a mutual-TLS peer from the
// certificate chain presented during the handshake.
//
// Chain validation belongs to the TLS layer; this package only reads what a
// completed handshake already verified.
package mtls
