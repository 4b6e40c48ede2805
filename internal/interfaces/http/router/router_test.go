package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesinsight/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Equal(t, "/api/v1", r.BasePath())
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))

	assert.Equal(t, "v2", r.apiVersion)
	assert.Equal(t, "/api/v2", r.BasePath())
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	system := NewDomainGroup("system", "/system")
	system.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.Register(system).Setup()

	w := serve(engine, http.MethodGet, "/api/v1/system/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestDomainGroup(t *testing.T) {
	t.Run("name and prefix", func(t *testing.T) {
		g := NewDomainGroup("analytics", "/analytics")
		assert.Equal(t, "analytics", g.Name())
		assert.Equal(t, "/analytics", g.Prefix())
	})

	t.Run("GET and POST", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("analytics", "/analytics").
			GET("/revenue", func(c *gin.Context) { c.String(http.StatusOK, "revenue") }).
			POST("/exports", func(c *gin.Context) { c.String(http.StatusCreated, "export") })
		g.RegisterRoutes(engine.Group("/api/v1"))

		assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/analytics/revenue").Code)
		assert.Equal(t, http.StatusCreated, serve(engine, http.MethodPost, "/api/v1/analytics/exports").Code)
		assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodPost, "/api/v1/analytics/revenue").Code)
	})

	t.Run("applies middleware", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("analytics", "/analytics").Use(func(c *gin.Context) {
			c.Header("X-Group", "analytics")
			c.Next()
		})
		g.GET("/brands", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodGet, "/api/v1/analytics/brands")
		assert.Equal(t, "analytics", w.Header().Get("X-Group"))
	})

	t.Run("subgroups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("analytics", "/analytics")
		rfm := g.Group("rfm", "/rfm")
		rfm.GET("/summary", func(c *gin.Context) { c.String(http.StatusOK, "summary") })
		rfm.GET("/customers", func(c *gin.Context) { c.String(http.StatusOK, "customers") })
		g.RegisterRoutes(engine.Group("/api/v1"))

		assert.Equal(t, "summary", serve(engine, http.MethodGet, "/api/v1/analytics/rfm/summary").Body.String())
		assert.Equal(t, "customers", serve(engine, http.MethodGet, "/api/v1/analytics/rfm/customers").Body.String())
	})

	t.Run("mounts a registrar under the prefix and group middleware", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("analytics", "/analytics").Use(func(c *gin.Context) {
			c.Header("X-Group", "analytics")
			c.Next()
		})
		g.Mount(RegistrarFunc(func(rg *gin.RouterGroup) {
			rg.GET("/lifecycle", func(c *gin.Context) { c.String(http.StatusOK, "lifecycle") })
		}))
		NewRouter(engine).Register(g).Setup()

		w := serve(engine, http.MethodGet, "/api/v1/analytics/lifecycle")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "lifecycle", w.Body.String())
		assert.Equal(t, "analytics", w.Header().Get("X-Group"))
	})
}

func TestMultipleDomainGroups(t *testing.T) {
	engine := gin.New()

	analytics := NewDomainGroup("analytics", "/analytics")
	analytics.GET("/options", func(c *gin.Context) { c.String(http.StatusOK, "options") })
	system := NewDomainGroup("system", "/system")
	system.GET("/info", func(c *gin.Context) { c.String(http.StatusOK, "info") })

	NewRouter(engine).Register(analytics).Register(system).Setup()

	assert.Equal(t, "options", serve(engine, http.MethodGet, "/api/v1/analytics/options").Body.String())
	assert.Equal(t, "info", serve(engine, http.MethodGet, "/api/v1/system/info").Body.String())
}

func newTestEngine(t *testing.T, cfg EngineConfig) *gin.Engine {
	t.Helper()
	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	engine.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	engine.GET("/panic", func(c *gin.Context) { panic("boom") })
	engine.POST("/upload", func(c *gin.Context) {
		if _, err := c.GetRawData(); err != nil {
			return
		}
		c.String(http.StatusOK, "ok")
	})
	return engine
}

func TestNewEngine_Middleware(t *testing.T) {
	engine := newTestEngine(t, EngineConfig{
		CORS:           middleware.DefaultCORSConfig(),
		RequestTimeout: 30 * time.Second,
	})

	w := serve(engine, http.MethodGet, "/ok")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDKey))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "30s", w.Header().Get("X-Request-Timeout"))
}

func TestNewEngine_RecoversPanics(t *testing.T) {
	engine := newTestEngine(t, EngineConfig{CORS: middleware.DefaultCORSConfig()})

	w := serve(engine, http.MethodGet, "/panic")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestNewEngine_BodyLimit(t *testing.T) {
	engine := newTestEngine(t, EngineConfig{CORS: middleware.DefaultCORSConfig(), MaxBodySize: 16})

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(strings.Repeat("x", 64)))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestNewEngine_InvalidTrustedProxy(t *testing.T) {
	_, err := NewEngine(EngineConfig{TrustedProxies: []string{"not-an-ip"}})
	assert.Error(t, err)
}
