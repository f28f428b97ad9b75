package web

import (
	"net/http"
	"strings"

	"github.com/deemkeen/minipub/util"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// NewRouter wires all routes. The engine is returned unstarted so tests
// can drive it with httptest.
func NewRouter(conf *util.AppConfig, h *Handlers) *gin.Engine {
	g := gin.Default()
	g.Use(gzip.Gzip(gzip.DefaultCompression))

	// Global rate limiter: 10 requests per second per IP, burst of 20
	globalLimiter := NewRateLimiter(rate.Limit(10), 20)
	g.Use(RateLimitMiddleware(globalLimiter))

	// Stricter rate limit for ActivityPub endpoints: 5 req/sec per IP
	apLimiter := NewRateLimiter(rate.Limit(5), 10)

	// Max 1MB request body size for ActivityPub activities
	maxBodySize := MaxBytesMiddleware(1 * 1024 * 1024)

	g.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	// Discovery
	g.GET("/.well-known/host-meta", h.HostMeta)
	g.GET("/.well-known/webfinger", h.WebFinger)
	g.GET("/.well-known/nodeinfo", h.NodeInfoLinks)
	g.GET("/nodeinfo/2.1", h.NodeInfo)

	// Actors and federation
	g.GET("/users/:id", h.RedirectToActor)
	g.POST("/users/:id/inbox", RateLimitMiddleware(apLimiter), maxBodySize, h.Inbox)
	g.GET("/users/:id/outbox", h.OutboxCollection)

	// RSS feed
	g.GET("/feed/:username", h.Feed)

	// Gin cannot route "/@:username" as a literal-prefixed parameter, so
	// the human-readable actor URL falls through to NoRoute.
	g.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if c.Request.Method == http.MethodGet && strings.HasPrefix(path, "/@") {
			username := strings.TrimPrefix(path, "/@")
			if username != "" && !strings.Contains(username, "/") {
				h.Actor(c, username)
				return
			}
		}
		c.String(http.StatusNotFound, "")
	})

	// Admin API, gated by the configured key
	api := g.Group("/api", AdminAuthMiddleware(conf))
	{
		api.POST("/admin/users", h.CreateUser)
		api.GET("/admin/users", h.ListUsers)
		api.GET("/admin/users/:id", h.GetUser)
		api.PUT("/admin/users/:id", h.UpdateUser)
		api.DELETE("/admin/users/:id", h.DeleteUser)

		api.POST("/users/:id/notes", h.CreateNote)
		api.GET("/users/:id/notes", h.ListNotes)
		api.GET("/users/:id/notes/:noteId", h.GetNote)
		api.DELETE("/users/:id/notes/:noteId", h.DeleteNote)
	}

	return g
}
