package tls

import (
	"errors"
	"fmt"
)

// Sentinel errors for store loading and TLS configuration.
var (
	// ErrStoreTypeInvalid indicates an unknown store type.
	ErrStoreTypeInvalid = errors.New("invalid store type")

	// ErrNoCertificate indicates a store without any certificate.
	ErrNoCertificate = errors.New("no certificate found")

	// ErrNoPrivateKey indicates a key store without a private key.
	ErrNoPrivateKey = errors.New("no private key found")

	// ErrCertificateKeyMismatch indicates that the certificate and key do not match.
	ErrCertificateKeyMismatch = errors.New("certificate and key do not match")

	// ErrTLSVersionInvalid indicates an unknown TLS version name.
	ErrTLSVersionInvalid = errors.New("invalid TLS version")

	// ErrClientAuthInvalid indicates an unknown client authentication mode.
	ErrClientAuthInvalid = errors.New("invalid client auth mode")

	// ErrPeerCertificateMissing indicates the server presented no certificate.
	ErrPeerCertificateMissing = errors.New("peer presented no certificate")
)

// StoreError reports a failure to load a key or trust store.
type StoreError struct {
	Path    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("store %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("store %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

func storeError(path, message string, cause error) error {
	return &StoreError{Path: path, Message: message, Cause: cause}
}
