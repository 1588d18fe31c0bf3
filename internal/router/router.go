// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/njoroge/inventory-allocation/internal/config"
	"github.com/njoroge/inventory-allocation/internal/handler"
	"github.com/njoroge/inventory-allocation/internal/middleware"
)

// RegisterRoutes registers routes that require no authentication: the
// health probe and the public, cached reference-table reads.
func RegisterRoutes(e *echo.Echo, refs PublicReferences, cacheCfg config.CacheConfig, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	// Reference data is identical for every caller, so the public
	// reads sit behind the Redis response cache.
	cached := e.Group("/v1", middleware.NewRedisCache(cacheCfg, rdb))
	for path, h := range map[string]*handler.ReferenceHandler{
		"/categories": refs.Categories,
		"/counties":   refs.Counties,
		"/models":     refs.Models,
	} {
		cached.GET(path, h.List)
		cached.GET(path+"/:id", h.Get)
	}
}

// PublicReferences carries the reference handlers whose reads are
// public. Departments are not listed here; their reads require auth.
type PublicReferences struct {
	Categories *handler.ReferenceHandler
	Counties   *handler.ReferenceHandler
	Models     *handler.ReferenceHandler
}

// RegisterAuth registers the credential endpoints under /v1/auth plus
// the authenticated /v1/me profile route.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}
