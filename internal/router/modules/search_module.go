package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/sape-server/internal/interface/http"
	"github.com/oksasatya/sape-server/internal/interface/middleware"
	"github.com/oksasatya/sape-server/internal/security"
)

// SearchModule exposes GET /api/search and PUT /api/persons/:id/photo.
// Both are optional: a nil handler leaves its route unregistered.
type SearchModule struct {
	Search   *handlers.SearchHandler
	Photo    *handlers.PhotoHandler
	Security *security.MethodSecurity
	Authn    gin.HandlerFunc
	Redis    *redis.Client
}

func (m *SearchModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/")
	if m.Authn != nil {
		g.Use(m.Authn)
	}
	if m.Search != nil {
		limiter := middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByPrincipal(), middleware.AllowServiceCalls())
		g.GET("/search", limiter, middleware.Authorize(m.Security, "search.query"), m.Search.Search)
	}
	if m.Photo != nil {
		g.PUT("/persons/:id/photo", middleware.Authorize(m.Security, "persons.photo"), m.Photo.Upload)
	}
}
