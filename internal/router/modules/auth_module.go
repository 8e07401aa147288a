package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/sape-server/internal/interface/http"
	"github.com/oksasatya/sape-server/internal/interface/middleware"
)

// AuthModule wires the token endpoint and logout.
// Public: POST /api/oauth/token
// Authenticated: POST /api/logout
type AuthModule struct {
	Handler *handlers.AuthHandler
	Authn   gin.HandlerFunc
	Redis   *redis.Client
}

func NewAuthModule(h *handlers.AuthHandler, authn gin.HandlerFunc, rdb *redis.Client) *AuthModule {
	return &AuthModule{Handler: h, Authn: authn, Redis: rdb}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	// Token issuance is brute-force sensitive; internal callers skip the limiter.
	tokenLimiter := middleware.RateLimit(m.Redis, 20, time.Minute, middleware.KeyByIPAndPath(), middleware.AllowPrivateIP())
	rg.POST("/oauth/token", tokenLimiter, m.Handler.Token)

	auth := rg.Group("/")
	if m.Authn != nil {
		auth.Use(m.Authn)
	}
	{
		auth.POST("/logout", m.Handler.Logout)
	}
}
