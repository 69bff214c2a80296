package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fabric-catalog/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

var testValidator = service.NewAuthService(nil, testSecret, 0)

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// Feature: catalog, Property 11: Protected endpoints reject missing tokens
func TestProperty_ProtectedEndpointsRejectMissingTokens(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("requests without authorization header are rejected", prop.ForAll(
		func(pathSuffix string, method string) bool {
			handler := AuthMiddleware(testValidator, zap.NewNop())(okHandler())

			req := httptest.NewRequest(method, "/products/"+pathSuffix, nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AlphaString(),
		gen.OneConstOf("POST", "PUT", "DELETE"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: catalog, Property 12: Expired tokens are rejected
func TestProperty_ExpiredTokensAreRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("expired tokens are rejected with 401", prop.ForAll(
		func(email string) bool {
			token := signToken(t, jwt.MapClaims{
				"sub":   "admin",
				"email": email,
				"role":  "admin",
				"exp":   time.Now().Add(-1 * time.Hour).Unix(),
			}, testSecret)

			handler := AuthMiddleware(testValidator, zap.NewNop())(okHandler())
			req := httptest.NewRequest("POST", "/categories", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: catalog, Property 13: Valid tokens put the admin on the context
func TestProperty_ValidTokensAllowProcessing(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("valid tokens expose subject, email and role", prop.ForAll(
		func(email string, role string) bool {
			token := signToken(t, jwt.MapClaims{
				"sub":   "admin",
				"email": email,
				"role":  role,
				"exp":   time.Now().Add(1 * time.Hour).Unix(),
			}, testSecret)

			handlerCalled := false
			handler := AuthMiddleware(testValidator, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true

				id, ok1 := GetAdminID(r.Context())
				ctxEmail, ok2 := GetAdminEmail(r.Context())
				ctxRole, ok3 := GetAdminRole(r.Context())
				if !ok1 || !ok2 || !ok3 || id != "admin" || ctxEmail != email || ctxRole != role {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}

				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("POST", "/categories", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			return handlerCalled && w.Code == http.StatusOK
		},
		gen.AnyString(),
		gen.OneConstOf("admin", "editor"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_InvalidTokenFormatRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("invalid token formats are rejected", prop.ForAll(
		func(invalidToken string) bool {
			handler := AuthMiddleware(testValidator, zap.NewNop())(okHandler())

			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", "Bearer "+invalidToken)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestAuthMiddleware_RejectsMalformedClaims(t *testing.T) {
	tests := []struct {
		name   string
		claims jwt.MapClaims
		secret string
	}{
		{
			name:   "missing subject",
			claims: jwt.MapClaims{"role": "admin", "exp": time.Now().Add(time.Hour).Unix()},
			secret: testSecret,
		},
		{
			name:   "non-string role",
			claims: jwt.MapClaims{"sub": "admin", "role": 7, "exp": time.Now().Add(time.Hour).Unix()},
			secret: testSecret,
		},
		{
			name:   "missing expiry",
			claims: jwt.MapClaims{"sub": "admin", "role": "admin"},
			secret: testSecret,
		},
		{
			name:   "foreign secret",
			claims: jwt.MapClaims{"sub": "admin", "role": "admin", "exp": time.Now().Add(time.Hour).Unix()},
			secret: "other-secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := AuthMiddleware(testValidator, zap.NewNop())(okHandler())

			req := httptest.NewRequest("POST", "/products", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, tt.claims, tt.secret))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name string
		role string
		want int
	}{
		{name: "admin", role: "admin", want: http.StatusOK},
		{name: "other role", role: "editor", want: http.StatusForbidden},
		{name: "empty role", role: "", want: http.StatusForbidden},
		{name: "missing role", role: "-", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := jwt.MapClaims{"sub": "admin", "exp": time.Now().Add(time.Hour).Unix()}
			if tt.role != "-" {
				claims["role"] = tt.role
			}
			token := signToken(t, claims, testSecret)

			handler := AuthMiddleware(testValidator, zap.NewNop())(RequireAdmin(zap.NewNop())(okHandler()))
			req := httptest.NewRequest("DELETE", "/categories/1", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestAuthMiddleware_ExpiredTokenMessage(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":  "admin",
		"role": "admin",
		"exp":  time.Now().Add(-time.Minute).Unix(),
	}, testSecret)

	handler := AuthMiddleware(testValidator, zap.NewNop())(okHandler())
	req := httptest.NewRequest("PUT", "/products/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "token expired") {
		t.Errorf("expected expiry message, got %s", w.Body.String())
	}
}
