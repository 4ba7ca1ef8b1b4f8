package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubValidator struct {
	claims *Claims
	err    error
	seen   string
}

func (s *stubValidator) ValidateToken(token string) (*Claims, error) {
	s.seen = token
	return s.claims, s.err
}

func (s *stubValidator) Close() {}

// captureSubject records the subject visible to the wrapped handler.
func captureSubject(subject *string, called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		*subject = Subject(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_Required(t *testing.T) {
	validClaims := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "analyst-1"}}

	tests := []struct {
		name        string
		header      string
		validator   *stubValidator
		wantStatus  int
		wantSubject string
	}{
		{"missing header", "", &stubValidator{claims: validClaims}, http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", &stubValidator{claims: validClaims}, http.StatusUnauthorized, ""},
		{"empty token", "Bearer ", &stubValidator{claims: validClaims}, http.StatusUnauthorized, ""},
		{"invalid token", "Bearer bad", &stubValidator{err: errors.New("bad signature")}, http.StatusUnauthorized, ""},
		{"valid token", "Bearer good", &stubValidator{claims: validClaims}, http.StatusOK, "analyst-1"},
		{"lowercase scheme", "bearer good", &stubValidator{claims: validClaims}, http.StatusOK, "analyst-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMiddleware(tt.validator, true, zap.NewNop())
			var subject string
			var called bool

			req := httptest.NewRequest(http.MethodGet, "/query/mysql", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			m.RequireAuth(captureSubject(&subject, &called)).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, called)
			assert.Equal(t, tt.wantSubject, subject)

			if rec.Code == http.StatusUnauthorized {
				var body map[string]string
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, "unauthorized", body["error"])
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestMiddleware_Optional(t *testing.T) {
	t.Run("anonymous request passes", func(t *testing.T) {
		m := NewMiddleware(&stubValidator{}, false, zap.NewNop())
		var subject string
		var called bool

		rec := httptest.NewRecorder()
		m.RequireAuth(captureSubject(&subject, &called)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.True(t, called)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, subject)
	})

	t.Run("unparseable token passes anonymously", func(t *testing.T) {
		m := NewMiddleware(&stubValidator{err: errors.New("garbage")}, false, zap.NewNop())
		var subject string
		var called bool

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		m.RequireAuth(captureSubject(&subject, &called)).ServeHTTP(rec, req)

		assert.True(t, called)
		assert.Empty(t, subject)
	})

	t.Run("token attributes request", func(t *testing.T) {
		v := &stubValidator{claims: &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "analyst-2"}}}
		m := NewMiddleware(v, false, zap.NewNop())
		var subject string
		var called bool

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer tok")
		rec := httptest.NewRecorder()
		m.RequireAuth(captureSubject(&subject, &called)).ServeHTTP(rec, req)

		assert.Equal(t, "tok", v.seen)
		assert.Equal(t, "analyst-2", subject)
	})
}
