package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/sape-server/internal/security"
	"github.com/oksasatya/sape-server/pkg/helpers"
	"github.com/oksasatya/sape-server/pkg/response"
)

const APIKeyHeader = "X-API-Key"

// Authenticator resolves credentials presented by a request.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*security.OAuth2Authentication, error)
	AuthenticateAPIKey(key string) (*security.ServiceAuthentication, bool)
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return ""
	}
	if tok, err := c.Cookie(helpers.AccessCookie); err == nil {
		return tok
	}
	return ""
}

// Authenticate establishes the request-scoped authentication from a bearer
// token (header or access_token cookie) or the internal API key. Requests
// without credentials continue anonymously; Authorize decides whether that
// is enough. Presented but invalid credentials are rejected with 401.
func Authenticate(authn Authenticator, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var auth security.Authentication

		if key := c.GetHeader(APIKeyHeader); key != "" {
			svc, ok := authn.AuthenticateAPIKey(key)
			if !ok {
				response.Abort(c, http.StatusUnauthorized, "invalid api key", nil)
				return
			}
			auth = svc
		} else if token := bearerToken(c); token != "" {
			oa, err := authn.Authenticate(c.Request.Context(), token)
			if err != nil {
				if logger != nil {
					logger.WithError(err).WithField("request_id", c.GetString("request_id")).Debug("bearer authentication failed")
				}
				response.Abort(c, http.StatusUnauthorized, "invalid access token", nil)
				return
			}
			auth = oa
		}

		if auth != nil {
			c.Request = c.Request.WithContext(security.WithAuthentication(c.Request.Context(), auth))
			c.Set("principal", auth.GetName())
		}
		c.Next()
	}
}

// Authorize enforces the method security rule of op.
func Authorize(ms *security.MethodSecurity, op security.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch err := ms.Check(c.Request.Context(), op); {
		case err == nil:
			c.Next()
		case errors.Is(err, security.ErrUnauthenticated):
			response.Abort(c, http.StatusUnauthorized, "unauthorized", string(op))
		default:
			response.Abort(c, http.StatusForbidden, "forbidden", string(op))
		}
	}
}
