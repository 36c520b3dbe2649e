package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/vyrodovalexey/avarelay/internal/observability"
)

// Client defaults.
const (
	DefaultConnectTimeout   = 10 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultReadTimeout      = 30 * time.Second
	DefaultMaxConnsPerHost  = 20
	DefaultMaxIdleConns     = 100
	DefaultIdleConnTimeout  = 90 * time.Second
)

// ClientConfig configures a mutual-TLS HTTP client.
type ClientConfig struct {
	// Name labels the client in logs and metrics.
	Name       string
	TrustStore StoreConfig
	KeyStore   StoreConfig
	MinVersion string

	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration
	// ReadTimeout bounds both the wait for response headers and the whole
	// exchange.
	ReadTimeout     time.Duration
	MaxConnsPerHost int
	MaxIdleConns    int
	IdleConnTimeout time.Duration
}

func (c *ClientConfig) applyDefaults() {
	if c.Name == "" {
		c.Name = "mtls-client"
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.MaxConnsPerHost <= 0 {
		c.MaxConnsPerHost = DefaultMaxConnsPerHost
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = DefaultMaxIdleConns
	}
	if c.IdleConnTimeout <= 0 {
		c.IdleConnTimeout = DefaultIdleConnTimeout
	}
}

// Client is an HTTP client presenting a client certificate and verifying
// the server chain against a private trust store.
type Client struct {
	HTTP      *http.Client
	Material  *Material
	transport *http.Transport
}

// BuildClient loads the stores and builds the client. The server chain is
// verified against the trust store but the server name is not matched
// against the certificate, so the peer may be addressed by any host or IP.
func BuildClient(cfg ClientConfig, opts ...Option) (*Client, error) {
	cfg.applyDefaults()

	minVersion, err := ParseTLSVersion(cfg.MinVersion)
	if err != nil {
		return nil, err
	}

	keyStore := cfg.KeyStore
	trustStore := cfg.TrustStore
	material, err := NewMaterial(cfg.Name, &keyStore, &trustStore, opts...)
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		MinVersion: minVersion,
		// Chain verification happens in VerifyConnection without a host name.
		InsecureSkipVerify: true, //nolint:gosec // chain still verified against the trust store
		GetClientCertificate: func(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
			return material.Certificate(), nil
		},
		VerifyConnection: func(cs tls.ConnectionState) error {
			return VerifyChain(cs.PeerCertificates, material.Roots(), x509.ExtKeyUsageServerAuth)
		},
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   cfg.HandshakeTimeout,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		ExpectContinueTimeout: time.Second,
	}

	material.logger.Info("mTLS client built",
		observability.String("name", cfg.Name),
		observability.Duration("connect_timeout", cfg.ConnectTimeout),
		observability.Duration("read_timeout", cfg.ReadTimeout),
		observability.Int("max_conns_per_host", cfg.MaxConnsPerHost),
	)

	return &Client{
		HTTP: &http.Client{
			Transport: observability.InstrumentTransport(transport, cfg.Name),
			Timeout:   cfg.ReadTimeout,
		},
		Material:  material,
		transport: transport,
	}, nil
}

// CloseIdleConnections closes pooled connections.
func (c *Client) CloseIdleConnections() {
	c.transport.CloseIdleConnections()
}

// VerifyChain verifies chain against roots for the given usage without
// checking any host name.
func VerifyChain(chain []*x509.Certificate, roots *x509.CertPool, usage x509.ExtKeyUsage) error {
	if len(chain) == 0 {
		return ErrPeerCertificateMissing
	}
	if roots == nil {
		return errors.New("no trust store loaded")
	}

	intermediates := x509.NewCertPool()
	for _, c := range chain[1:] {
		intermediates.AddCert(c)
	}

	_, err := chain[0].Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{usage},
	})
	if err != nil {
		return fmt.Errorf("peer certificate %q not trusted: %w", chain[0].Subject.CommonName, err)
	}
	return nil
}
