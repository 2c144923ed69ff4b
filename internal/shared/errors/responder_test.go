package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errOrderGone = stderrors.New("order gone")

func serve(t *testing.T, h gin.HandlerFunc, middleware ...gin.HandlerFunc) (*httptest.ResponseRecorder, ProblemDetail) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware...)
	r.GET("/v1/orders/42", h)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/orders/42", nil))
	var p ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p), rec.Body.String())
	return rec, p
}

func TestChainedResponder_RespondError(t *testing.T) {
	responder := NewChainedResponder("https://errors.remesas.example", func(err error) (ProblemDetail, bool) {
		if stderrors.Is(err, errOrderGone) {
			return ErrNotFound.WithDetail("order not found"), true
		}
		return ProblemDetail{}, false
	})

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantDetail string
	}{
		{"mapped", errOrderGone, http.StatusNotFound, "https://errors.remesas.example/problems/not-found", "order not found"},
		{"problem passes through", ErrConflict.WithDetail("busy"), http.StatusConflict, "https://errors.remesas.example/problems/conflict", "busy"},
		{"unknown hides the cause", stderrors.New("pq: connection refused"), http.StatusInternalServerError, "https://errors.remesas.example/problems/internal-error", ErrInternal.Detail},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, p := serve(t, func(c *gin.Context) { responder.RespondError(c, tc.err) })
			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, ContentTypeProblemJSON, rec.Header().Get("Content-Type"))
			assert.Equal(t, tc.wantType, p.Type)
			assert.Equal(t, tc.wantDetail, p.Detail)
			assert.Equal(t, "/v1/orders/42", p.Instance)
		})
	}
}

func TestWithExtension_DoesNotMutateTemplate(t *testing.T) {
	p := NewRejectedTransitionProblem(http.StatusConflict, TypeStaleState, "Stale Order State", "stale_state", "refresh")
	withStatus := p.WithExtension("currentStatus", "validated")

	assert.Equal(t, "stale_state", withStatus.Extensions["reason"])
	assert.NotContains(t, p.Extensions, "currentStatus")
	assert.Nil(t, ErrConflict.Extensions)
}

func TestAbortStopsChain(t *testing.T) {
	reached := false
	rec, p := serve(t, func(c *gin.Context) { reached = true }, func(c *gin.Context) {
		Abort(c, ErrUnauthorized.WithDetail("missing bearer token"))
	})
	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing bearer token", p.Detail)
}

func TestRecovery(t *testing.T) {
	rec, p := serve(t, func(c *gin.Context) { panic("boom") }, Recovery(nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, TypeInternal, p.Type)
}
