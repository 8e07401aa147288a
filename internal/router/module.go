package router

import "github.com/gin-gonic/gin"

// Module registers one feature's routes on the /api group. Modules apply
// their own authentication and Authorize guards per route.
type Module interface {
	Register(rg *gin.RouterGroup)
}
