package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecker_Health(t *testing.T) {
	t.Parallel()

	c := NewChecker("1.2.3", "edge")
	w := httptest.NewRecorder()
	c.HealthHandler()(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "edge", resp.Role)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestChecker_Readiness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		checks     map[string]Status
		draining   bool
		wantStatus Status
		wantCode   int
	}{
		{"no checks", nil, false, StatusHealthy, http.StatusOK},
		{"all healthy", map[string]Status{"a": StatusHealthy, "b": StatusHealthy}, false, StatusHealthy, http.StatusOK},
		{"degraded", map[string]Status{"a": StatusHealthy, "b": StatusDegraded}, false, StatusDegraded, http.StatusOK},
		{"unhealthy wins", map[string]Status{"a": StatusUnhealthy, "b": StatusDegraded}, false, StatusUnhealthy, http.StatusServiceUnavailable},
		{"draining", nil, true, StatusUnhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewChecker("v", "middleware")
			for name, status := range tt.checks {
				status := status
				c.RegisterCheck(name, func() Check { return Check{Status: status} })
			}
			c.SetDraining(tt.draining)

			w := httptest.NewRecorder()
			c.ReadinessHandler()(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.wantCode, w.Code)

			var resp ReadinessResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
		})
	}
}

func TestChecker_Liveness(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	NewChecker("v", "backend").LivenessHandler()(w, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())
}

func TestCertificateExpiryCheck(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	expiring := func(d time.Duration) func() (time.Time, bool) {
		return func() (time.Time, bool) { return now.Add(d), true }
	}

	assert.Equal(t, StatusHealthy, certificateExpiryCheck(expiring(90*24*time.Hour), 30*24*time.Hour, clock)().Status)
	assert.Equal(t, StatusDegraded, certificateExpiryCheck(expiring(24*time.Hour), 30*24*time.Hour, clock)().Status)

	expired := certificateExpiryCheck(expiring(-time.Hour), time.Hour, clock)()
	assert.Equal(t, StatusUnhealthy, expired.Status)
	assert.Contains(t, expired.Message, "2026-05-31T23:00:00Z")

	missing := CertificateExpiryCheck(func() (time.Time, bool) { return time.Time{}, false }, time.Hour)()
	assert.Equal(t, StatusUnhealthy, missing.Status)
}
