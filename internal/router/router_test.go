package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"knowledgehub/internal/config"
	"knowledgehub/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestEngine() *gin.Engine {
	cfg := config.Defaults()
	cfg.SiteURL = "https://hub.example"
	return New(Deps{
		Config: cfg,
		Logger: zap.NewNop(),
		Posts:  services.NewPostService(nil, nil, nil, zap.NewNop()),
	})
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	t.Parallel()
	r := newTestEngine()

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/posts"},
		{http.MethodPost, "/api/vote/post/1"},
		{http.MethodPost, "/api/posts/1/accept/2"},
		{http.MethodDelete, "/api/comments/2/accept"},
		{http.MethodPost, "/api/posts/1/follow"},
		{http.MethodGet, "/api/notifications"},
		{http.MethodGet, "/api/moderation/queue"},
	}
	for _, rt := range routes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(rt.method, rt.path, strings.NewReader("{}")))
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", rt.method, rt.path)
	}
}

func TestRobotsTxt(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	newTestEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/robots.txt", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Sitemap: https://hub.example/sitemap.xml")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCORSConfig(t *testing.T) {
	t.Parallel()

	all := corsConfig([]string{"*"})
	assert.True(t, all.AllowAllOrigins)
	assert.False(t, all.AllowCredentials)

	some := corsConfig([]string{"https://hub.example"})
	assert.False(t, some.AllowAllOrigins)
	assert.True(t, some.AllowCredentials)
	assert.Equal(t, []string{"https://hub.example"}, some.AllowOrigins)
}
