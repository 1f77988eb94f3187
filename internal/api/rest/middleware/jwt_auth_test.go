package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func createTestToken(t *testing.T, secret []byte, claims *jwt.RegisteredClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	require.NoError(t, err)
	return tokenString
}

func createValidClaims(issuer, audience, subject string) *jwt.RegisteredClaims {
	return &jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		Audience:  []string{audience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
}

func newTestMiddleware() *JWTAuthMiddleware {
	return NewJWTAuthMiddleware(JWTConfig{
		Secret:   testSecret,
		Issuer:   "test-issuer",
		Audience: "test-audience",
	})
}

// echoUserHandler writes the caller id from context, or "anonymous".
func echoUserHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		if !ok {
			userID = "anonymous"
		}
		_, _ = w.Write([]byte(userID))
	})
}

func TestNewJWTAuthMiddleware(t *testing.T) {
	testCases := map[string]struct {
		config JWTConfig
		want   time.Duration
	}{
		"should use custom clock skew when provided": {
			config: JWTConfig{
				Secret:    testSecret,
				Issuer:    "test-issuer",
				Audience:  "test-audience",
				ClockSkew: 10 * time.Minute,
			},
			want: 10 * time.Minute,
		},
		"should use default clock skew when not provided": {
			config: JWTConfig{
				Secret:   testSecret,
				Issuer:   "test-issuer",
				Audience: "test-audience",
			},
			want: DefaultClockSkewTolerance,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			middleware := NewJWTAuthMiddleware(tc.config)
			assert.Equal(t, tc.want, middleware.clockSkew)
			assert.Equal(t, tc.config.Issuer, middleware.issuer)
			assert.Equal(t, tc.config.Audience, middleware.audience)
		})
	}
}

func TestJWTAuthMiddleware_Handler(t *testing.T) {
	testCases := map[string]struct {
		setupRequest   func(t *testing.T) *http.Request
		expectedStatus int
		expectedUserID string
	}{
		"should authenticate successfully with valid token": {
			setupRequest: func(t *testing.T) *http.Request {
				claims := createValidClaims("test-issuer", "test-audience", "userId")
				req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
				req.Header.Set("Authorization", "Bearer "+createTestToken(t, testSecret, claims))
				return req
			},
			expectedStatus: http.StatusOK,
			expectedUserID: "userId",
		},
		"should return unauthorized when authorization header is missing": {
			setupRequest: func(_ *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
			},
			expectedStatus: http.StatusUnauthorized,
		},
		"should return unauthorized for a malformed authorization header": {
			setupRequest: func(_ *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
				req.Header.Set("Authorization", "Token abc")
				return req
			},
			expectedStatus: http.StatusUnauthorized,
		},
		"should return unauthorized for a token signed with another secret": {
			setupRequest: func(t *testing.T) *http.Request {
				claims := createValidClaims("test-issuer", "test-audience", "userId")
				req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
				req.Header.Set("Authorization", "Bearer "+createTestToken(t, []byte("other-secret"), claims))
				return req
			},
			expectedStatus: http.StatusUnauthorized,
		},
		"should return unauthorized for an expired token": {
			setupRequest: func(t *testing.T) *http.Request {
				claims := createValidClaims("test-issuer", "test-audience", "userId")
				claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
				req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
				req.Header.Set("Authorization", "Bearer "+createTestToken(t, testSecret, claims))
				return req
			},
			expectedStatus: http.StatusUnauthorized,
		},
		"should return unauthorized for a wrong issuer": {
			setupRequest: func(t *testing.T) *http.Request {
				claims := createValidClaims("other-issuer", "test-audience", "userId")
				req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
				req.Header.Set("Authorization", "Bearer "+createTestToken(t, testSecret, claims))
				return req
			},
			expectedStatus: http.StatusUnauthorized,
		},
		"should return unauthorized for a wrong audience": {
			setupRequest: func(t *testing.T) *http.Request {
				claims := createValidClaims("test-issuer", "other-audience", "userId")
				req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
				req.Header.Set("Authorization", "Bearer "+createTestToken(t, testSecret, claims))
				return req
			},
			expectedStatus: http.StatusUnauthorized,
		},
		"should return unauthorized for a missing subject": {
			setupRequest: func(t *testing.T) *http.Request {
				claims := createValidClaims("test-issuer", "test-audience", "")
				req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
				req.Header.Set("Authorization", "Bearer "+createTestToken(t, testSecret, claims))
				return req
			},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			newTestMiddleware().Handler(echoUserHandler()).ServeHTTP(rec, tc.setupRequest(t))

			assert.Equal(t, tc.expectedStatus, rec.Code)
			if tc.expectedStatus == http.StatusOK {
				assert.Equal(t, tc.expectedUserID, rec.Body.String())
			}
		})
	}
}

func TestJWTAuthMiddleware_OptionalHandler(t *testing.T) {
	testCases := map[string]struct {
		setupRequest   func(t *testing.T) *http.Request
		expectedStatus int
		expectedBody   string
	}{
		"should let an anonymous request through": {
			setupRequest: func(_ *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "anonymous",
		},
		"should set the caller id for a valid token": {
			setupRequest: func(t *testing.T) *http.Request {
				claims := createValidClaims("test-issuer", "test-audience", "userId")
				req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
				req.Header.Set("Authorization", "Bearer "+createTestToken(t, testSecret, claims))
				return req
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "userId",
		},
		"should still reject an invalid token": {
			setupRequest: func(_ *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
				req.Header.Set("Authorization", "Bearer not-a-token")
				return req
			},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			newTestMiddleware().OptionalHandler(echoUserHandler()).ServeHTTP(rec, tc.setupRequest(t))

			assert.Equal(t, tc.expectedStatus, rec.Code)
			if tc.expectedBody != "" && tc.expectedStatus == http.StatusOK {
				assert.Equal(t, tc.expectedBody, rec.Body.String())
			}
		})
	}
}
