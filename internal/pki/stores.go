package pki

import (
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"software.sslmate.com/src/go-pkcs12"
)

// KeyPEM returns the private key as PEM. A non-empty password encrypts the
// block with legacy RFC 1423 AES-256 encryption, the format the store loader
// accepts for protected PEM keys.
func (l *Leaf) KeyPEM(password string) ([]byte, error) {
	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(l.Key),
	}
	if password == "" {
		return pem.EncodeToMemory(block), nil
	}

	//nolint:staticcheck // SA1019: legacy encrypted PEM is the supported protected PEM key format
	encrypted, err := x509.EncryptPEMBlock(rand.Reader, block.Type, block.Bytes, []byte(password), x509.PEMCipherAES256)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt private key: %w", err)
	}
	return pem.EncodeToMemory(encrypted), nil
}

// KeyStorePEM returns a single PEM document holding the leaf, its chain and
// its key.
func (l *Leaf) KeyStorePEM(keyPassword string) ([]byte, error) {
	keyPEM, err := l.KeyPEM(keyPassword)
	if err != nil {
		return nil, err
	}
	out := EncodeCertificates(append([]*x509.Certificate{l.Cert}, l.Chain...)...)
	return append(out, keyPEM...), nil
}

// KeyStorePKCS12 returns a password-protected PKCS#12 key store.
func (l *Leaf) KeyStorePKCS12(password string) ([]byte, error) {
	data, err := pkcs12.Modern.Encode(l.Key, l.Cert, l.Chain, password)
	if err != nil {
		return nil, fmt.Errorf("failed to encode PKCS#12 key store: %w", err)
	}
	return data, nil
}

// TrustStorePKCS12 returns a password-protected PKCS#12 trust store holding
// the CA certificate.
func (a *Authority) TrustStorePKCS12(password string) ([]byte, error) {
	data, err := pkcs12.Modern.EncodeTrustStore([]*x509.Certificate{a.Cert}, password)
	if err != nil {
		return nil, fmt.Errorf("failed to encode PKCS#12 trust store: %w", err)
	}
	return data, nil
}

// WriteFile writes data to dir/name with owner-only permissions and returns
// the path.
func WriteFile(dir, name string, data []byte) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
