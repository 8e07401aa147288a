package middleware

import (
	"net"

	"github.com/gin-gonic/gin"
)

// AllowPrivateIP bypasses the limiter for loopback and private addresses.
func AllowPrivateIP() AllowFunc {
	return func(c *gin.Context) bool {
		parsed := net.ParseIP(ipFromCtx(c))
		if parsed == nil {
			return false
		}
		return parsed.IsLoopback() || parsed.IsPrivate()
	}
}

// AllowServiceCalls bypasses the limiter for requests authenticated with the
// internal API key.
func AllowServiceCalls() AllowFunc {
	return func(c *gin.Context) bool {
		return c.GetHeader(APIKeyHeader) != "" && c.GetString("principal") != ""
	}
}

// AnyOf combines allow functions.
func AnyOf(fns ...AllowFunc) AllowFunc {
	return func(c *gin.Context) bool {
		for _, f := range fns {
			if f != nil && f(c) {
				return true
			}
		}
		return false
	}
}
