package tls

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
)

// ClientAuthMode controls whether the server asks for client certificates.
type ClientAuthMode string

const (
	// ClientAuthNone never requests a client certificate.
	ClientAuthNone ClientAuthMode = "none"
	// ClientAuthOptional verifies a client certificate when one is presented.
	ClientAuthOptional ClientAuthMode = "optional"
	// ClientAuthRequire rejects handshakes without a valid client certificate.
	ClientAuthRequire ClientAuthMode = "require"
)

// ParseClientAuth maps a mode name to its crypto/tls policy. An empty name
// selects ClientAuthOptional.
func ParseClientAuth(mode string) (tls.ClientAuthType, error) {
	switch ClientAuthMode(strings.ToLower(mode)) {
	case ClientAuthOptional, "":
		return tls.VerifyClientCertIfGiven, nil
	case ClientAuthRequire:
		return tls.RequireAndVerifyClientCert, nil
	case ClientAuthNone:
		return tls.NoClientCert, nil
	default:
		return tls.NoClientCert, fmt.Errorf("%w: %q", ErrClientAuthInvalid, mode)
	}
}

// ServerConfig configures the TLS side of a listener.
type ServerConfig struct {
	Name       string
	KeyStore   StoreConfig
	TrustStore *StoreConfig
	ClientAuth string
	MinVersion string
}

// BuildServerTLS loads the server stores and returns a configuration that
// always serves the current material.
func BuildServerTLS(cfg ServerConfig, opts ...Option) (*tls.Config, *Material, error) {
	if cfg.Name == "" {
		cfg.Name = "server"
	}

	clientAuth, err := ParseClientAuth(cfg.ClientAuth)
	if err != nil {
		return nil, nil, err
	}
	if clientAuth != tls.NoClientCert && cfg.TrustStore == nil {
		return nil, nil, errors.New("client certificate verification needs a trust store")
	}

	minVersion, err := ParseTLSVersion(cfg.MinVersion)
	if err != nil {
		return nil, nil, err
	}

	keyStore := cfg.KeyStore
	var trustStore *StoreConfig
	if clientAuth != tls.NoClientCert {
		ts := *cfg.TrustStore
		trustStore = &ts
	}

	material, err := NewMaterial(cfg.Name, &keyStore, trustStore, opts...)
	if err != nil {
		return nil, nil, err
	}

	base := &tls.Config{
		MinVersion: minVersion,
		ClientAuth: clientAuth,
		NextProtos: []string{"h2", "http/1.1"},
		GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
			return material.Certificate(), nil
		},
	}
	base.GetConfigForClient = func(*tls.ClientHelloInfo) (*tls.Config, error) {
		c := base.Clone()
		c.GetConfigForClient = nil
		c.ClientCAs = material.Roots()
		return c, nil
	}

	return base, material, nil
}
