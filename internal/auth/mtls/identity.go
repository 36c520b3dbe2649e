package mtls

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"strings"
	"time"
)

// UnknownCommonName is reported when no client certificate was presented.
const UnknownCommonName = "unknown"

const cnPrefix = "CN="

// ClientIdentity is the identity of the TLS peer for a single request.
type ClientIdentity struct {
	Verified    bool
	CommonName  string
	SubjectDN   string
	Issuer      string
	ValidFrom   time.Time
	ValidTo     time.Time
	Fingerprint string
}

// Anonymous returns the identity of a peer that presented no certificate.
func Anonymous() ClientIdentity {
	return ClientIdentity{CommonName: UnknownCommonName}
}

// ExtractIdentity reads the identity from the leaf of a peer chain.
// An empty chain yields Anonymous.
func ExtractIdentity(chain []*x509.Certificate) ClientIdentity {
	if len(chain) == 0 || chain[0] == nil {
		return Anonymous()
	}

	leaf := chain[0]
	subject := leaf.Subject.String()
	sum := sha256.Sum256(leaf.Raw)

	return ClientIdentity{
		Verified:    true,
		CommonName:  CommonNameFromDN(subject),
		SubjectDN:   subject,
		Issuer:      leaf.Issuer.String(),
		ValidFrom:   leaf.NotBefore.UTC(),
		ValidTo:     leaf.NotAfter.UTC(),
		Fingerprint: hex.EncodeToString(sum[:]),
	}
}

// CommonNameFromDN returns the value of the first "CN=" component of an
// RFC 2253 distinguished name. The match is case-sensitive. When no such
// component exists the whole DN is returned.
func CommonNameFromDN(dn string) string {
	for _, part := range strings.Split(dn, ",") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, cnPrefix) {
			return part[len(cnPrefix):]
		}
	}
	return dn
}
