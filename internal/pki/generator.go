package pki

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"time"
)

const (
	// DefaultKeySize is the default RSA key size for certificates.
	DefaultKeySize = 2048

	// DefaultValidity is the default certificate validity period.
	DefaultValidity = 365 * 24 * time.Hour

	// DefaultOrganization is the subject organization of generated certificates.
	DefaultOrganization = "Netflix OSS"
)

// Usage selects the extended key usages of an issued certificate.
type Usage int

const (
	// UsageClient issues a TLS client certificate.
	UsageClient Usage = iota
	// UsageServer issues a TLS server certificate.
	UsageServer
	// UsageClientServer issues a certificate usable on both sides.
	UsageClientServer
)

// Generator creates authorities and certificates.
type Generator struct {
	keySize  int
	validity time.Duration
	now      func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithKeySize sets the RSA key size.
func WithKeySize(bits int) Option {
	return func(g *Generator) {
		g.keySize = bits
	}
}

// WithValidity sets the validity period of generated certificates.
func WithValidity(d time.Duration) Option {
	return func(g *Generator) {
		g.validity = d
	}
}

// WithClock sets the time source for NotBefore.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// NewGenerator creates a generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		keySize:  DefaultKeySize,
		validity: DefaultValidity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authority is a self-signed CA able to issue leaf certificates.
type Authority struct {
	Cert *x509.Certificate
	Key  *rsa.PrivateKey
	gen  *Generator
}

// Leaf is an issued certificate with its key and issuing chain.
type Leaf struct {
	Cert  *x509.Certificate
	Key   *rsa.PrivateKey
	Chain []*x509.Certificate
}

// LeafRequest describes a certificate to issue.
type LeafRequest struct {
	CommonName  string
	DNSNames    []string
	IPAddresses []net.IP
	Usage       Usage
}

// NewAuthority generates a self-signed CA.
func (g *Generator) NewAuthority(commonName string) (*Authority, error) {
	if commonName == "" {
		return nil, errors.New("authority common name is required")
	}

	key, err := rsa.GenerateKey(rand.Reader, g.keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CA private key: %w", err)
	}

	serialNumber, err := generateSerialNumber()
	if err != nil {
		return nil, err
	}

	now := g.now()
	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{DefaultOrganization},
		},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(g.validity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            1,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create CA certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CA certificate: %w", err)
	}

	return &Authority{Cert: cert, Key: key, gen: g}, nil
}

// Issue signs a new leaf certificate.
func (a *Authority) Issue(req LeafRequest) (*Leaf, error) {
	if req.CommonName == "" {
		return nil, errors.New("leaf common name is required")
	}

	key, err := rsa.GenerateKey(rand.Reader, a.gen.keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key for %s: %w", req.CommonName, err)
	}

	serialNumber, err := generateSerialNumber()
	if err != nil {
		return nil, err
	}

	now := a.gen.now()
	notAfter := now.Add(a.gen.validity)
	if notAfter.After(a.Cert.NotAfter) {
		notAfter = a.Cert.NotAfter
	}

	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName:   req.CommonName,
			Organization: []string{DefaultOrganization},
		},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           extKeyUsages(req.Usage),
		BasicConstraintsValid: true,
		DNSNames:              req.DNSNames,
		IPAddresses:           req.IPAddresses,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, a.Cert, &key.PublicKey, a.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate for %s: %w", req.CommonName, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate for %s: %w", req.CommonName, err)
	}

	return &Leaf{Cert: cert, Key: key, Chain: []*x509.Certificate{a.Cert}}, nil
}

func extKeyUsages(u Usage) []x509.ExtKeyUsage {
	switch u {
	case UsageServer:
		return []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}
	case UsageClientServer:
		return []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth}
	default:
		return []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}
	}
}

// CertPEM returns the PEM encoding of the CA certificate.
func (a *Authority) CertPEM() []byte {
	return EncodeCertificates(a.Cert)
}

// EncodeCertificates PEM-encodes certs in order.
func EncodeCertificates(certs ...*x509.Certificate) []byte {
	var out []byte
	for _, c := range certs {
		out = append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.Raw})...)
	}
	return out
}

func generateSerialNumber() (*big.Int, error) {
	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}
	return serialNumber, nil
}
