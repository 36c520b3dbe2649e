// Package pki generates a private certificate authority and the key and trust
// stores the relay services load at startup.
//
// It backs the relay's -gen-certs mode for local environments and the TLS
// fixtures of the test suites. Stores are written both as PEM and as
// password-protected PKCS#12.
package pki
