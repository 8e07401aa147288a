package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/sape-server/internal/application"
	"github.com/oksasatya/sape-server/internal/security"
	"github.com/oksasatya/sape-server/pkg/helpers"
	"github.com/oksasatya/sape-server/pkg/response"
	"github.com/oksasatya/sape-server/pkg/validation"
)

type AuthHandler struct {
	Auth    *application.AuthService
	Cookies *helpers.Cookies
	Logger  *logrus.Logger
}

func NewAuthHandler(auth *application.AuthService, cookieDomain string, cookieSecure bool, logger *logrus.Logger) *AuthHandler {
	if logger == nil {
		logger = helpers.NopLogger()
	}
	return &AuthHandler{Auth: auth, Cookies: helpers.NewCookies(cookieDomain, cookieSecure), Logger: logger}
}

type tokenRequest struct {
	GrantType    string `form:"grant_type" json:"grant_type" binding:"required"`
	ClientID     string `form:"client_id" json:"client_id"`
	ClientSecret string `form:"client_secret" json:"client_secret"`
	Username     string `form:"username" json:"username"`
	Password     string `form:"password" json:"password"`
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
	Scope        string `form:"scope" json:"scope"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// Token POST /api/oauth/token
// Client credentials may come as HTTP basic auth or as form fields.
func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_request", validation.ToDetails(err))
		return
	}
	if id, secret, ok := c.Request.BasicAuth(); ok {
		req.ClientID, req.ClientSecret = id, secret
	}
	if req.GrantType == application.GrantRefreshToken && req.RefreshToken == "" {
		if cookie, err := c.Cookie(helpers.RefreshCookie); err == nil {
			req.RefreshToken = cookie
		}
	}

	pair, err := h.Auth.Token(c.Request.Context(), application.TokenRequest{
		GrantType:    req.GrantType,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		Username:     req.Username,
		Password:     req.Password,
		RefreshToken: req.RefreshToken,
		Scopes:       strings.Fields(req.Scope),
	})
	if err != nil {
		status, code := oauthError(err)
		if status == http.StatusInternalServerError {
			h.Logger.WithError(err).WithField("grant_type", req.GrantType).Error("token issuance failed")
		}
		response.Error(c, status, code, nil)
		return
	}

	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(time.Until(pair.AccessTokenExpiry).Seconds()),
		RefreshToken: pair.RefreshToken,
		Scope:        strings.Join(pair.Scopes, " "),
	}, "token issued", nil)
}

// Logout POST /api/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if auth, ok := security.FromContext(c.Request.Context()); ok {
		if oa, ok := auth.(*security.OAuth2Authentication); ok {
			if err := h.Auth.Revoke(c.Request.Context(), oa.SessionID); err != nil {
				h.Logger.WithError(err).WithField("sid", oa.SessionID).Warn("revoke session failed")
			}
		}
	}
	h.Cookies.Clear(c)
	response.Success(c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
}

// oauthError maps token endpoint failures to RFC 6749 error codes.
func oauthError(err error) (int, string) {
	switch {
	case errors.Is(err, application.ErrInvalidClient):
		return http.StatusUnauthorized, "invalid_client"
	case errors.Is(err, application.ErrInvalidCredentials), errors.Is(err, application.ErrInvalidGrant):
		return http.StatusBadRequest, "invalid_grant"
	case errors.Is(err, application.ErrInvalidScope):
		return http.StatusBadRequest, "invalid_scope"
	case errors.Is(err, application.ErrUnsupportedGrant):
		return http.StatusBadRequest, "unsupported_grant_type"
	}
	return http.StatusInternalServerError, "server_error"
}
