package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"emergency-triage/config"
	"emergency-triage/pkg/jwt"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJWT() *jwt.JWTService {
	return jwt.NewJWTService(config.JWTConfig{Secret: "test-secret", AccessExpiry: time.Hour})
}

func echoStaff(w http.ResponseWriter, r *http.Request) {
	if _, ok := GetStaffIDFromContext(r.Context()); !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	role, _ := GetRoleFromContext(r.Context())
	_, _ = w.Write([]byte(role))
}

func TestAuthenticate(t *testing.T) {
	svc := newJWT()
	token, _, err := svc.GenerateAccessToken(uuid.New(), "doc@er.local", "doctor")
	require.NoError(t, err)

	h := NewAuthMiddleware(svc).Authenticate(http.HandlerFunc(echoStaff))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK},
		{"query param", func(r *http.Request) { r.URL.RawQuery = "access_token=" + token }, http.StatusOK},
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized},
		{"bad scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic "+token) }, http.StatusUnauthorized},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/queue", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "doctor", rec.Body.String())
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	h := RequireAdmin(http.HandlerFunc(echoStaff))

	for role, status := range map[string]int{"admin": http.StatusOK, "nurse": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/rooms", nil)
		req = req.WithContext(WithStaff(req.Context(), uuid.New(), role))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, status, rec.Code, role)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/rooms", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := NewCORSMiddleware("").Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the handler")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/v1/patients", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
