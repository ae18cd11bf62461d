package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkedout/api-gateway/internal/auth"
	"github.com/linkedout/api-gateway/internal/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestCorrelationIDGenerated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(CorrelationID())

	var seen string
	engine.GET("/x", func(c *gin.Context) {
		seen = CorrelationIDFrom(c)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))

	require.NotEmpty(t, seen)
	_, err := uuid.Parse(seen)
	assert.NoError(t, err, "generated ids are UUIDs")
	assert.Equal(t, seen, w.Header().Get(domain.CorrelationIDHeader), "id echoes on the response")
}

func TestCorrelationIDReused(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(CorrelationID())
	engine.GET("/x", func(c *gin.Context) {
		assert.Equal(t, "given-id", CorrelationIDFrom(c))
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set(domain.CorrelationIDHeader, "given-id")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, "given-id", w.Header().Get(domain.CorrelationIDHeader))
}

func TestAccessLogRestoresBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(CorrelationID(), AccessLog())

	var got string
	engine.POST("/x", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		require.NoError(t, err)
		got = string(body)
		c.Status(http.StatusNoContent)
	})

	payload := strings.Repeat("a", 8192) // larger than the logged prefix
	req := httptest.NewRequest("POST", "/x", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, payload, got, "the handler sees the complete body after logging peeked at it")
}

func newAuthEngine(t *testing.T) (*gin.Engine, *auth.TokenProvider) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	provider, err := auth.NewTokenProvider(testSecret, time.Hour)
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(CorrelationID(), Auth(provider))
	capture := func(c *gin.Context) {
		if p := PrincipalFrom(c); p != nil {
			c.String(http.StatusOK, p.AccountID)
			return
		}
		c.String(http.StatusOK, "anonymous")
	}
	engine.GET("/api/recipes/42", capture)
	engine.GET("/api/auth/health", capture)
	engine.GET("/api/health", capture)
	return engine, provider
}

func TestAuthRejectsProtectedWithoutToken(t *testing.T) {
	engine, _ := newAuthEngine(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/recipes/42", nil))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t,
		`{"status":401,"message":"Unauthorized","data":null,"error":{"code":"ERR_401","detail":"authentication required"}}`,
		w.Body.String())
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	engine, _ := newAuthEngine(t)

	req := httptest.NewRequest("GET", "/api/recipes/42", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthAttachesPrincipal(t *testing.T) {
	engine, provider := newAuthEngine(t)

	token, err := provider.CreateToken(&domain.AuthPrincipal{AccountID: "acct-9", Roles: []string{"USER"}})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/recipes/42", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "acct-9", w.Body.String())
}

func TestAuthPermitsOpenPaths(t *testing.T) {
	engine, _ := newAuthEngine(t)

	for _, path := range []string{"/api/auth/health", "/api/health"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "anonymous", w.Body.String(), path)
	}
}

func TestAuthRequiresExactBearerPrefix(t *testing.T) {
	engine, provider := newAuthEngine(t)

	token, err := provider.CreateToken(&domain.AuthPrincipal{AccountID: "acct-9"})
	require.NoError(t, err)

	// Lower-case scheme is not the bearer prefix; the request stays anonymous.
	req := httptest.NewRequest("GET", "/api/recipes/42", nil)
	req.Header.Set("Authorization", "bearer "+token)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
