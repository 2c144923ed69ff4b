package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(v *Verifier) *gin.Engine {
	r := gin.New()
	r.Use(Middleware(v))
	r.GET("/whoami", func(c *gin.Context) {
		actor, _ := ActorFrom(c)
		c.JSON(http.StatusOK, gin.H{"id": actor.ID, "role": actor.Role})
	})
	r.GET("/admin", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func call(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_ResolvesActor(t *testing.T) {
	v := NewVerifier("s3cret", "remesas")
	token, err := v.Issue(domain.Actor{ID: "alice", Role: domain.RoleSender}, time.Hour, time.Now())
	require.NoError(t, err)

	rec := call(newRouter(v), "/whoami", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"alice","role":"sender"}`, rec.Body.String())

	rec = call(newRouter(v), "/admin", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMiddleware_AdminPassesAdminGate(t *testing.T) {
	v := NewVerifier("s3cret", "")
	token, err := v.Issue(domain.Actor{ID: "ops-1", Role: domain.RoleAdmin}, time.Hour, time.Now())
	require.NoError(t, err)

	rec := call(newRouter(v), "/admin", token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMiddleware_RejectsBadTokens(t *testing.T) {
	v := NewVerifier("s3cret", "remesas")
	now := time.Now()
	expired, err := v.Issue(domain.Actor{ID: "alice", Role: domain.RoleSender}, time.Minute, now.Add(-time.Hour))
	require.NoError(t, err)
	foreign, err := NewVerifier("other", "remesas").Issue(domain.Actor{ID: "alice", Role: domain.RoleSender}, time.Hour, now)
	require.NoError(t, err)
	wrongIssuer, err := NewVerifier("s3cret", "elsewhere").Issue(domain.Actor{ID: "alice", Role: domain.RoleSender}, time.Hour, now)
	require.NoError(t, err)
	unknownRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: "auditor",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "eve",
			Issuer:    "remesas",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	cases := map[string]string{
		"missing":      "",
		"garbage":      "not-a-jwt",
		"expired":      expired,
		"wrong key":    foreign,
		"wrong issuer": wrongIssuer,
		"unknown role": unknownRole,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			rec := call(newRouter(v), "/whoami", token)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}
}
