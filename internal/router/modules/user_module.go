package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/sape-server/internal/interface/http"
	"github.com/oksasatya/sape-server/internal/interface/middleware"
	"github.com/oksasatya/sape-server/internal/security"
)

// UserModule exposes GET /api/me, the identity resolution of the caller.
type UserModule struct {
	Handler  *handlers.UserHandler
	Security *security.MethodSecurity
	Authn    gin.HandlerFunc
}

func NewUserModule(h *handlers.UserHandler, ms *security.MethodSecurity, authn gin.HandlerFunc) *UserModule {
	return &UserModule{Handler: h, Security: ms, Authn: authn}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	chain := []gin.HandlerFunc{}
	if m.Authn != nil {
		chain = append(chain, m.Authn)
	}
	chain = append(chain, middleware.Authorize(m.Security, "identity.me"), m.Handler.Me)
	rg.GET("/me", chain...)
}
