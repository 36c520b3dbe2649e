package health

import (
	"fmt"
	"time"
)

// CertificateExpiryCheck reports on the certificate whose expiry notAfter
// returns: unhealthy once expired or absent, degraded inside warnWithin.
func CertificateExpiryCheck(notAfter func() (time.Time, bool), warnWithin time.Duration) CheckFunc {
	return certificateExpiryCheck(notAfter, warnWithin, time.Now)
}

func certificateExpiryCheck(notAfter func() (time.Time, bool), warnWithin time.Duration, now func() time.Time) CheckFunc {
	return func() Check {
		expiry, ok := notAfter()
		if !ok {
			return Check{Status: StatusUnhealthy, Message: "no certificate loaded"}
		}
		remaining := expiry.Sub(now())
		switch {
		case remaining <= 0:
			return Check{Status: StatusUnhealthy, Message: fmt.Sprintf("certificate expired at %s", expiry.UTC().Format(time.RFC3339))}
		case remaining < warnWithin:
			return Check{Status: StatusDegraded, Message: fmt.Sprintf("certificate expires in %s", remaining.Round(time.Minute))}
		default:
			return Check{Status: StatusHealthy}
		}
	}
}
