package tls

import (
	"crypto/tls"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avarelay/internal/pki"
)

const testPassword = "changeit"

func newDevPKI(t *testing.T, opts pki.DevOptions) *pki.DevBundle {
	t.Helper()
	if opts.StorePassword == "" {
		opts.StorePassword = testPassword
	}
	bundle, err := pki.GenerateDevPKI(t.TempDir(), opts)
	require.NoError(t, err)
	return bundle
}

// serveTLS serves handler over TLS on a loopback port and returns its base URL.
func serveTLS(t *testing.T, cfg *tls.Config, handler http.Handler) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &http.Server{Handler: handler} //nolint:gosec // test server
	go func() { _ = srv.Serve(tls.NewListener(ln, cfg)) }()
	t.Cleanup(func() { _ = srv.Close() })

	return "https://" + ln.Addr().String()
}

// peerCNHandler answers with the CN of the client certificate, or "none".
func peerCNHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cn := "none"
		if r.TLS != nil && len(r.TLS.PeerCertificates) > 0 {
			cn = r.TLS.PeerCertificates[0].Subject.CommonName
		}
		_, _ = w.Write([]byte(cn))
	})
}
