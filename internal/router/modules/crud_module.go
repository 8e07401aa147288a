package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/sape-server/internal/application/dto"
	handlers "github.com/oksasatya/sape-server/internal/interface/http"
	"github.com/oksasatya/sape-server/internal/interface/middleware"
	"github.com/oksasatya/sape-server/internal/security"
)

// CRUDModule mounts the five generic endpoints of one resource:
// POST, PUT and DELETE ?id= on /{resource}, GET /{resource}/:id and GET /{resource}.
// Every route is guarded by the "<resource>.<action>" rule.
type CRUDModule[E any, D dto.Identified] struct {
	Resource string
	Handler  *handlers.CRUDHandler[E, D]
	Security *security.MethodSecurity
	Authn    gin.HandlerFunc
}

func NewCRUDModule[E any, D dto.Identified](resource string, h *handlers.CRUDHandler[E, D], ms *security.MethodSecurity, authn gin.HandlerFunc) *CRUDModule[E, D] {
	return &CRUDModule[E, D]{Resource: resource, Handler: h, Security: ms, Authn: authn}
}

func (m *CRUDModule[E, D]) Register(rg *gin.RouterGroup) {
	g := rg.Group("/" + m.Resource)
	if m.Authn != nil {
		g.Use(m.Authn)
	}
	{
		g.POST("", m.guard(security.ActionCreate), m.Handler.Create)
		g.PUT("", m.guard(security.ActionUpdate), m.Handler.Update)
		g.DELETE("", m.guard(security.ActionDelete), m.Handler.DeleteByID)
		g.GET("/:id", m.guard(security.ActionRead), m.Handler.Read)
		g.GET("", m.guard(security.ActionList), m.Handler.List)
	}
}

func (m *CRUDModule[E, D]) guard(action string) gin.HandlerFunc {
	return middleware.Authorize(m.Security, security.Op(m.Resource, action))
}
