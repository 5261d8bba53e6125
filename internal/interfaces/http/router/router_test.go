package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestMount(t *testing.T) {
	engine := gin.New()
	ping := NewDomainGroup("test", "/test").GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	other := NewDomainGroup("other", "/other").Use(func(c *gin.Context) {
		c.Header("X-Group", "other")
		c.Next()
	})
	other.GET("", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	Mount(engine, "v2", zap.NewNop(), ping, other)

	w := serve(engine, http.MethodGet, "/api/v2/test/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Empty(t, w.Header().Get("X-Group"))

	w = serve(engine, http.MethodGet, "/api/v2/other")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "other", w.Header().Get("X-Group"))

	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/test/ping").Code)
}

func TestDomainGroup_Methods(t *testing.T) {
	engine := gin.New()
	group := NewDomainGroup("catalog", "/catalog")
	respond := func(c *gin.Context) {
		c.String(http.StatusOK, c.Request.Method)
	}
	group.GET("/products", respond).
		POST("/products", respond).
		PUT("/products/:id", respond).
		DELETE("/products/:id", respond)

	group.RegisterRoutes(&engine.RouterGroup)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/catalog/products"},
		{http.MethodPost, "/catalog/products"},
		{http.MethodPut, "/catalog/products/1"},
		{http.MethodDelete, "/catalog/products/1"},
	} {
		t.Run(tc.method, func(t *testing.T) {
			w := serve(engine, tc.method, tc.path)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tc.method, w.Body.String())
		})
	}

	assert.Equal(t, 4, group.count())
}

func TestDomainGroup_MiddlewareReachesSubgroups(t *testing.T) {
	engine := gin.New()
	var order []string
	mark := func(name string) gin.HandlerFunc {
		return func(c *gin.Context) {
			order = append(order, name)
			c.Next()
		}
	}

	parent := NewDomainGroup("stores", "/stores").Use(mark("parent"))
	child := parent.Group("members", "/:storeId/members").Use(mark("child"))
	child.GET("", func(c *gin.Context) {
		order = append(order, "handler")
		c.String(http.StatusOK, c.Param("storeId"))
	})

	parent.RegisterRoutes(&engine.RouterGroup)

	w := serve(engine, http.MethodGet, "/stores/s1/members")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", w.Body.String())
	assert.Equal(t, []string{"parent", "child", "handler"}, order)
}

func TestDomainGroup_EmptyPrefixSharesParentPath(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("auth", "/auth")
	g.Group("public", "").POST("/login", func(c *gin.Context) { c.String(http.StatusOK, "public") })
	g.Group("session", "").Use(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusUnauthorized)
	}).GET("/me", func(c *gin.Context) { c.String(http.StatusOK, "me") })

	g.RegisterRoutes(&engine.RouterGroup)

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodPost, "/auth/login").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(engine, http.MethodGet, "/auth/me").Code)
}
