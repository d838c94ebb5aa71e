package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"pwani/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const authTestSecret = "test-secret-key-12345678901234567890123456789012"

// issueToken signs a token the way the login handler does, with an optional
// jti so revocation tests can target it.
func issueToken(t *testing.T, userID uint, jti string, ttl time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": tokenIssuer,
		"aud": tokenAudience,
		"exp": time.Now().Add(ttl).Unix(),
	}
	if jti != "" {
		claims["jti"] = jti
	}
	str, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(authTestSecret))
	require.NoError(t, err)
	return str
}

func newAuthTestApp(s *Server) *fiber.App {
	app := fiber.New()
	app.Get("/protected", s.AuthRequired(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": c.Locals("userID")})
	})
	return app
}

func TestServer_AuthRequired(t *testing.T) {
	s := &Server{config: &config.Config{JWTSecret: authTestSecret}}
	app := newAuthTestApp(s)

	doGet := func(t *testing.T, path, authHeader string) *http.Response {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	assertUserID := func(t *testing.T, resp *http.Response, want float64) {
		t.Helper()
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, want, body["userID"])
	}

	t.Run("bearer header authenticates", func(t *testing.T) {
		resp := doGet(t, "/protected", "Bearer "+issueToken(t, 123, "jti-1", time.Hour))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assertUserID(t, resp, 123)
	})

	t.Run("query param fallback on non-websocket paths", func(t *testing.T) {
		resp := doGet(t, "/protected?token="+issueToken(t, 123, "jti-2", time.Hour), "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assertUserID(t, resp, 123)
	})

	t.Run("no credentials", func(t *testing.T) {
		resp := doGet(t, "/protected", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("mangled bearer header", func(t *testing.T) {
		resp := doGet(t, "/protected", "BearerTokenOnly")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("expired token", func(t *testing.T) {
		resp := doGet(t, "/protected", "Bearer "+issueToken(t, 123, "jti-3", -time.Hour))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestServer_AuthRequired_RevokedJTI(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := &Server{config: &config.Config{JWTSecret: authTestSecret}, redis: rdb}
	app := newAuthTestApp(s)

	token := issueToken(t, 55, "jti-revoked", time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Logout-style revocation: the blacklist entry outlives the token.
	require.NoError(t, mr.Set("blacklist:jti-revoked", "1"))

	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
