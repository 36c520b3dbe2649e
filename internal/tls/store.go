package tls

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"software.sslmate.com/src/go-pkcs12"
)

// StoreType is the on-disk format of a key or trust store.
type StoreType string

const (
	// StoreTypePEM is a PEM file. A key store holds the certificate chain
	// and one private key; a trust store holds CA certificates.
	StoreTypePEM StoreType = "pem"
	// StoreTypePKCS12 is a password-protected PKCS#12 archive.
	StoreTypePKCS12 StoreType = "pkcs12"
)

// StoreConfig locates a key or trust store.
type StoreConfig struct {
	Path     string
	Password string
	// Type overrides detection from the file extension.
	Type string
	// KeyPassword decrypts a legacy encrypted PEM private key. When empty
	// Password is tried instead. PKCS#12 archives use Password for both.
	KeyPassword string
}

// ResolveType returns the declared store type, or infers it from the path:
// .p12 and .pfx are PKCS#12, everything else is PEM.
func (c StoreConfig) ResolveType() (StoreType, error) {
	switch strings.ToLower(c.Type) {
	case "":
		switch strings.ToLower(filepath.Ext(c.Path)) {
		case ".p12", ".pfx":
			return StoreTypePKCS12, nil
		default:
			return StoreTypePEM, nil
		}
	case string(StoreTypePEM):
		return StoreTypePEM, nil
	case string(StoreTypePKCS12), "p12", "pfx":
		return StoreTypePKCS12, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrStoreTypeInvalid, c.Type)
	}
}

// LoadKeyStore loads the certificate chain and private key of a key store.
func LoadKeyStore(cfg StoreConfig) (*tls.Certificate, error) {
	storeType, err := cfg.ResolveType()
	if err != nil {
		return nil, storeError(cfg.Path, "unsupported key store", err)
	}

	data, err := os.ReadFile(cfg.Path) // #nosec G304 -- store path from trusted config
	if err != nil {
		return nil, storeError(cfg.Path, "failed to read key store", err)
	}

	var (
		key   crypto.PrivateKey
		chain []*x509.Certificate
	)
	switch storeType {
	case StoreTypePKCS12:
		var leaf *x509.Certificate
		var cas []*x509.Certificate
		key, leaf, cas, err = pkcs12.DecodeChain(data, cfg.Password)
		if err != nil {
			return nil, storeError(cfg.Path, "failed to decode PKCS#12 key store", err)
		}
		chain = append([]*x509.Certificate{leaf}, cas...)
	default:
		chain, key, err = decodePEMKeyStore(data, cfg)
		if err != nil {
			return nil, err
		}
	}

	if err := checkKeyPair(chain[0], key); err != nil {
		return nil, storeError(cfg.Path, "invalid key store", err)
	}

	cert := &tls.Certificate{
		PrivateKey: key,
		Leaf:       chain[0],
	}
	for _, c := range chain {
		cert.Certificate = append(cert.Certificate, c.Raw)
	}
	return cert, nil
}

// LoadTrustStore loads the CA certificates of a trust store.
func LoadTrustStore(cfg StoreConfig) (*x509.CertPool, []*x509.Certificate, error) {
	storeType, err := cfg.ResolveType()
	if err != nil {
		return nil, nil, storeError(cfg.Path, "unsupported trust store", err)
	}

	data, err := os.ReadFile(cfg.Path) // #nosec G304 -- store path from trusted config
	if err != nil {
		return nil, nil, storeError(cfg.Path, "failed to read trust store", err)
	}

	var certs []*x509.Certificate
	switch storeType {
	case StoreTypePKCS12:
		certs, err = pkcs12.DecodeTrustStore(data, cfg.Password)
		if err != nil {
			return nil, nil, storeError(cfg.Path, "failed to decode PKCS#12 trust store", err)
		}
	default:
		certs, err = ParsePEMCertificates(data)
		if err != nil {
			return nil, nil, storeError(cfg.Path, "failed to parse trust store", err)
		}
	}
	if len(certs) == 0 {
		return nil, nil, storeError(cfg.Path, "empty trust store", ErrNoCertificate)
	}

	pool := x509.NewCertPool()
	for _, c := range certs {
		pool.AddCert(c)
	}
	return pool, certs, nil
}

// ParsePEMCertificates parses every CERTIFICATE block in pemData.
func ParsePEMCertificates(pemData []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate

	for len(pemData) > 0 {
		var block *pem.Block
		block, pemData = pem.Decode(pemData)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate: %w", err)
		}
		certs = append(certs, cert)
	}

	if len(certs) == 0 {
		return nil, ErrNoCertificate
	}
	return certs, nil
}

func decodePEMKeyStore(data []byte, cfg StoreConfig) ([]*x509.Certificate, crypto.PrivateKey, error) {
	var (
		chain []*x509.Certificate
		key   crypto.PrivateKey
	)

	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}

		switch {
		case block.Type == "CERTIFICATE":
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, nil, storeError(cfg.Path, "failed to parse certificate", err)
			}
			chain = append(chain, cert)
		case strings.HasSuffix(block.Type, "PRIVATE KEY") && key == nil:
			der, err := decryptPEMBlock(block, cfg)
			if err != nil {
				return nil, nil, storeError(cfg.Path, "failed to decrypt private key", err)
			}
			key, err = parsePrivateKey(der)
			if err != nil {
				return nil, nil, storeError(cfg.Path, "failed to parse private key", err)
			}
		}
	}

	if len(chain) == 0 {
		return nil, nil, storeError(cfg.Path, "key store has no certificate", ErrNoCertificate)
	}
	if key == nil {
		return nil, nil, storeError(cfg.Path, "key store has no private key", ErrNoPrivateKey)
	}
	return chain, key, nil
}

// decryptPEMBlock returns the DER bytes of a possibly legacy-encrypted block.
func decryptPEMBlock(block *pem.Block, cfg StoreConfig) ([]byte, error) {
	//nolint:staticcheck // SA1019: legacy encrypted PEM keys are still accepted
	if !x509.IsEncryptedPEMBlock(block) {
		return block.Bytes, nil
	}

	password := cfg.KeyPassword
	if password == "" {
		password = cfg.Password
	}
	//nolint:staticcheck // SA1019: legacy encrypted PEM keys are still accepted
	return x509.DecryptPEMBlock(block, []byte(password))
}

func parsePrivateKey(der []byte) (crypto.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		switch key.(type) {
		case *rsa.PrivateKey, *ecdsa.PrivateKey, ed25519.PrivateKey:
			return key, nil
		default:
			return nil, fmt.Errorf("unsupported private key type %T", key)
		}
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, ErrNoPrivateKey
}

func checkKeyPair(leaf *x509.Certificate, key crypto.PrivateKey) error {
	signer, ok := key.(crypto.Signer)
	if !ok {
		return fmt.Errorf("%w: key of type %T cannot sign", ErrCertificateKeyMismatch, key)
	}
	pub, ok := leaf.PublicKey.(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !pub.Equal(signer.Public()) {
		return ErrCertificateKeyMismatch
	}
	return nil
}

// ParseTLSVersion maps a version name to its crypto/tls constant.
// An empty name selects TLS 1.2.
func ParseTLSVersion(version string) (uint16, error) {
	switch strings.ToUpper(strings.ReplaceAll(version, ".", "")) {
	case "TLS12", "":
		return tls.VersionTLS12, nil
	case "TLS13":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrTLSVersionInvalid, version)
	}
}
