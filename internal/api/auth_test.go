package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"checkout-builder/internal/checkout"
	"checkout-builder/internal/models"
	"checkout-builder/internal/service"
	"checkout-builder/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(testSecret), func(c *gin.Context) {
		c.String(http.StatusOK, currentUser(c))
	})
	return r
}

func callMe(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := authRouter()

	otherKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u1"}).
		SignedString([]byte("another-secret"))
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name          string
		authorization string
		wantCode      int
		wantBody      string
	}{
		{"valid token", "Bearer " + token(t, "user-42", time.Now().Add(time.Hour)), http.StatusOK, "user-42"},
		{"missing header", "", http.StatusUnauthorized, "missing bearer token"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, "missing bearer token"},
		{"expired", "Bearer " + token(t, "user-42", time.Now().Add(-time.Minute)), http.StatusUnauthorized, "token expired"},
		{"wrong key", "Bearer " + otherKey, http.StatusUnauthorized, "invalid token"},
		{"alg none", "Bearer " + unsigned, http.StatusUnauthorized, "invalid token"},
		{"no subject", "Bearer " + noSubject, http.StatusUnauthorized, "token has no subject"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := callMe(r, tt.authorization)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"validation list", checkout.PageViolations(&models.CheckoutPage{}), http.StatusBadRequest},
		{"invalid status", fmt.Errorf("%w: %q", service.ErrInvalidStatus, "x"), http.StatusBadRequest},
		{"conflict", fmt.Errorf("%w: checkout_pages_slug_key", store.ErrConflict), http.StatusConflict},
		{"order in progress", service.ErrOrderInProgress, http.StatusConflict},
		{"permission", store.ErrPermission, http.StatusForbidden},
		{"not found", fmt.Errorf("page p1: %w", store.ErrNotFound), http.StatusNotFound},
		{"network", store.ErrNetwork, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tt.err)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}
