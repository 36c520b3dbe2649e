package mtls

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCommonNameFromDN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		dn   string
		want string
	}{
		{name: "cn first", dn: "CN=client1,O=Org", want: "client1"},
		{name: "cn later with spaces", dn: "O=Org, OU=Unit, CN=edge-bff", want: "edge-bff"},
		{name: "first cn wins", dn: "CN=a,CN=b", want: "a"},
		{name: "no cn", dn: "O=Org,C=US", want: "O=Org,C=US"},
		{name: "lowercase prefix ignored", dn: "cn=lower,O=Org", want: "cn=lower,O=Org"},
		{name: "empty cn value", dn: "CN=,O=Org", want: ""},
		{name: "empty dn", dn: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CommonNameFromDN(tt.dn))
		})
	}
}

func TestExtractIdentity_Empty(t *testing.T) {
	t.Parallel()

	for _, chain := range [][]*x509.Certificate{nil, {}, {nil}} {
		id := ExtractIdentity(chain)
		assert.False(t, id.Verified)
		assert.Equal(t, "unknown", id.CommonName)
	}
}

func TestExtractIdentity_Leaf(t *testing.T) {
	t.Parallel()

	notBefore := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	notAfter := notBefore.Add(365 * 24 * time.Hour)

	leaf := &x509.Certificate{
		Raw:       []byte("leaf-der"),
		Subject:   pkix.Name{CommonName: "edge-bff", Organization: []string{"Netflix OSS"}},
		Issuer:    pkix.Name{CommonName: "Relay CA"},
		NotBefore: notBefore,
		NotAfter:  notAfter,
	}
	intermediate := &x509.Certificate{Subject: pkix.Name{CommonName: "ignored"}}

	id := ExtractIdentity([]*x509.Certificate{leaf, intermediate})

	assert.True(t, id.Verified)
	assert.Equal(t, "edge-bff", id.CommonName)
	assert.Equal(t, "CN=edge-bff,O=Netflix OSS", id.SubjectDN)
	assert.Equal(t, "CN=Relay CA", id.Issuer)
	assert.Equal(t, notBefore, id.ValidFrom)
	assert.Equal(t, notAfter, id.ValidTo)
	assert.Len(t, id.Fingerprint, 64)
}

func TestExtractIdentity_NoCommonName(t *testing.T) {
	t.Parallel()

	leaf := &x509.Certificate{Subject: pkix.Name{Organization: []string{"Org"}, Country: []string{"US"}}}

	id := ExtractIdentity([]*x509.Certificate{leaf})

	assert.True(t, id.Verified)
	assert.Equal(t, "O=Org,C=US", id.CommonName)
}
