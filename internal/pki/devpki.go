package pki

import (
	"fmt"
	"net"
	"os"
)

// Default names used by GenerateDevPKI.
const (
	DevCAName         = "relay-dev-ca"
	DevServerName     = "middleware"
	DevClientName     = "edge-bff"
	devCAFile         = "ca.pem"
	devTrustStoreFile = "truststore.p12"
)

// DevOptions configures GenerateDevPKI.
type DevOptions struct {
	// StorePassword protects the PKCS#12 stores.
	StorePassword string
	// KeyPassword encrypts the private keys of the PEM key stores. Empty
	// leaves them unencrypted.
	KeyPassword string
	// ServerHosts are extra DNS names or IPs for the middleware certificate.
	ServerHosts []string
}

// StorePaths locates the key store of one identity in both formats.
type StorePaths struct {
	PEM    string
	PKCS12 string
}

// DevBundle lists the files written by GenerateDevPKI.
type DevBundle struct {
	Authority      *Authority
	Server         *Leaf
	Client         *Leaf
	CAPEM          string
	TrustStore     string
	ServerKeyStore StorePaths
	ClientKeyStore StorePaths
}

// GenerateDevPKI writes a CA, a middleware server identity and an edge-bff
// client identity into dir.
func GenerateDevPKI(dir string, opts DevOptions, genOpts ...Option) (*DevBundle, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	gen := NewGenerator(genOpts...)
	ca, err := gen.NewAuthority(DevCAName)
	if err != nil {
		return nil, err
	}

	dnsNames := []string{"localhost", DevServerName}
	ips := []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback}
	for _, h := range opts.ServerHosts {
		if ip := net.ParseIP(h); ip != nil {
			ips = append(ips, ip)
		} else {
			dnsNames = append(dnsNames, h)
		}
	}

	server, err := ca.Issue(LeafRequest{
		CommonName:  DevServerName,
		DNSNames:    dnsNames,
		IPAddresses: ips,
		Usage:       UsageServer,
	})
	if err != nil {
		return nil, err
	}

	client, err := ca.Issue(LeafRequest{CommonName: DevClientName, Usage: UsageClient})
	if err != nil {
		return nil, err
	}

	bundle := &DevBundle{Authority: ca, Server: server, Client: client}

	if bundle.CAPEM, err = WriteFile(dir, devCAFile, ca.CertPEM()); err != nil {
		return nil, err
	}

	trust, err := ca.TrustStorePKCS12(opts.StorePassword)
	if err != nil {
		return nil, err
	}
	if bundle.TrustStore, err = WriteFile(dir, devTrustStoreFile, trust); err != nil {
		return nil, err
	}

	if bundle.ServerKeyStore, err = writeKeyStores(dir, DevServerName, server, opts); err != nil {
		return nil, err
	}
	if bundle.ClientKeyStore, err = writeKeyStores(dir, DevClientName, client, opts); err != nil {
		return nil, err
	}

	return bundle, nil
}

func writeKeyStores(dir, name string, leaf *Leaf, opts DevOptions) (StorePaths, error) {
	var paths StorePaths

	pemStore, err := leaf.KeyStorePEM(opts.KeyPassword)
	if err != nil {
		return paths, err
	}
	if paths.PEM, err = WriteFile(dir, name+"-keystore.pem", pemStore); err != nil {
		return paths, err
	}

	p12, err := leaf.KeyStorePKCS12(opts.StorePassword)
	if err != nil {
		return paths, err
	}
	if paths.PKCS12, err = WriteFile(dir, name+"-keystore.p12", p12); err != nil {
		return paths, err
	}

	return paths, nil
}
