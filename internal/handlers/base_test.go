package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledgehub/internal/services"
	"knowledgehub/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func render(t *testing.T, err error) (*httptest.ResponseRecorder, utils.JSONResponse) {
	t.Helper()
	r := gin.New()
	r.GET("/", func(c *gin.Context) { RenderError(c, err) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var body utils.JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestRenderError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    error
		status int
	}{
		{services.ErrUnauthorized, http.StatusUnauthorized},
		{services.ErrNotAuthor, http.StatusForbidden},
		{services.ErrCommentNotFound, http.StatusNotFound},
		{services.ErrSlugConflict, http.StatusConflict},
		{services.ErrRateLimited, http.StatusTooManyRequests},
		{services.ErrInvalidTarget, http.StatusBadRequest},
		{fmt.Errorf("toggle: %w", services.ErrPostNotFound), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			t.Parallel()
			w, body := render(t, tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.status*100+int(services.KindOf(tt.err)), body.Code)
		})
	}
}

func TestRenderErrorHidesStoreFailures(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp 10.0.0.5:5432: connection refused")
	w, body := render(t, &services.Error{Kind: services.KindTransientStoreFailure, Msg: "failed to toggle vote", Err: cause})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, body.Message, "10.0.0.5")

	w, body = render(t, errors.New("unexpected"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 50000, body.Code)
}

func TestIDParam(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.GET("/posts/:id", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		utils.Success(c, id)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/posts/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/posts/12", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
