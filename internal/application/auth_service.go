package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/sape-server/internal/domain/entity"
	"github.com/oksasatya/sape-server/internal/security"
	"github.com/oksasatya/sape-server/pkg/helpers"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidClient      = errors.New("invalid client")
	ErrInvalidGrant       = errors.New("invalid grant")
	ErrInvalidScope       = errors.New("invalid scope")
	ErrUnsupportedGrant   = errors.New("unsupported grant type")
)

const (
	GrantPassword          = "password"
	GrantClientCredentials = "client_credentials"
	GrantRefreshToken      = "refresh_token"
)

// OAuthClient is the single registered client. Secret may be a bcrypt hash.
type OAuthClient struct {
	ID     string
	Secret string
	Scopes []string
}

func (c OAuthClient) verify(id, secret string) bool {
	if c.ID == "" || id != c.ID {
		return false
	}
	if strings.HasPrefix(c.Secret, "$2") {
		return helpers.CompareHashAndPassword(c.Secret, secret)
	}
	return subtle.ConstantTimeCompare([]byte(c.Secret), []byte(secret)) == 1
}

type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	RefreshToken string
	Scopes       []string
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
	Scopes             []string
	SessionID          string
}

// SessionStore keeps one record per issued token pair so tokens can be
// revoked before they expire. Get returns nil, nil for unknown sessions.
type SessionStore interface {
	Create(ctx context.Context, sid string, s helpers.Session, ttl time.Duration) error
	Get(ctx context.Context, sid string) (*helpers.Session, error)
	Delete(ctx context.Context, sid string) error
}

type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (*entity.User, error)
}

// AuthService issues and validates bearer tokens. A nil Sessions store makes
// tokens stateless: they stay valid until expiry and Revoke is a no-op.
type AuthService struct {
	Users    UserLookup
	JWT      *helpers.JWTManager
	Sessions SessionStore
	Client   OAuthClient
	APIKey   string
	Logger   *logrus.Logger
	now      func() time.Time
}

func NewAuthService(users UserLookup, jwt *helpers.JWTManager, sessions SessionStore, client OAuthClient, apiKey string, logger *logrus.Logger) *AuthService {
	if logger == nil {
		logger = helpers.NopLogger()
	}
	return &AuthService{Users: users, JWT: jwt, Sessions: sessions, Client: client, APIKey: apiKey, Logger: logger, now: time.Now}
}

// Token implements the token endpoint for the supported grants.
func (s *AuthService) Token(ctx context.Context, req TokenRequest) (TokenPair, error) {
	if !s.Client.verify(req.ClientID, req.ClientSecret) {
		return TokenPair{}, ErrInvalidClient
	}
	switch req.GrantType {
	case GrantPassword:
		return s.passwordGrant(ctx, req)
	case GrantClientCredentials:
		scopes, err := s.grantedScopes(req.Scopes)
		if err != nil {
			return TokenPair{}, err
		}
		return s.issue(ctx, helpers.TokenSubject{ClientID: s.Client.ID, Scopes: scopes}, false)
	case GrantRefreshToken:
		return s.refreshGrant(ctx, req)
	}
	return TokenPair{}, fmt.Errorf("%w: %q", ErrUnsupportedGrant, req.GrantType)
}

func (s *AuthService) passwordGrant(ctx context.Context, req TokenRequest) (TokenPair, error) {
	scopes, err := s.grantedScopes(req.Scopes)
	if err != nil {
		return TokenPair{}, err
	}
	u, err := s.Users.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			helpers.BurnPasswordCheck(req.Password)
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, req.Password) {
		return TokenPair{}, ErrInvalidCredentials
	}
	sub := helpers.TokenSubject{Username: u.Username, ClientID: s.Client.ID, Scopes: scopes, Authorities: u.Roles}
	return s.issue(ctx, sub, true)
}

func (s *AuthService) refreshGrant(ctx context.Context, req TokenRequest) (TokenPair, error) {
	claims, err := s.JWT.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		return TokenPair{}, ErrInvalidGrant
	}
	if s.Sessions != nil {
		sess, err := s.Sessions.Get(ctx, claims.SessionID)
		if err != nil {
			return TokenPair{}, err
		}
		if sess == nil {
			return TokenPair{}, ErrInvalidGrant
		}
		if err := s.Sessions.Delete(ctx, claims.SessionID); err != nil {
			return TokenPair{}, err
		}
	}
	sub := claims.Subject()
	if sub.Username != "" {
		// roles may have changed since the pair was issued
		u, err := s.Users.GetUserByUsername(ctx, sub.Username)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return TokenPair{}, ErrInvalidGrant
			}
			return TokenPair{}, err
		}
		sub.Authorities = u.Roles
	}
	return s.issue(ctx, sub, true)
}

func (s *AuthService) grantedScopes(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return append([]string(nil), s.Client.Scopes...), nil
	}
	for _, r := range requested {
		allowed := false
		for _, c := range s.Client.Scopes {
			if r == c {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %q", ErrInvalidScope, r)
		}
	}
	return requested, nil
}

func (s *AuthService) issue(ctx context.Context, sub helpers.TokenSubject, withRefresh bool) (TokenPair, error) {
	sid := uuid.NewString()
	pair := TokenPair{Scopes: sub.Scopes, SessionID: sid}

	var err error
	pair.AccessToken, pair.AccessTokenExpiry, err = s.JWT.GenerateAccessToken(sub, sid)
	if err != nil {
		s.Logger.WithError(err).WithField("client_id", sub.ClientID).Error("generate access token failed")
		return TokenPair{}, err
	}
	ttl := s.JWT.AccessTTL
	if withRefresh {
		pair.RefreshToken, pair.RefreshTokenExpiry, err = s.JWT.GenerateRefreshToken(sub, sid)
		if err != nil {
			s.Logger.WithError(err).WithField("client_id", sub.ClientID).Error("generate refresh token failed")
			return TokenPair{}, err
		}
		ttl = s.JWT.RefreshTTL
	}

	if s.Sessions != nil {
		sess := helpers.Session{Subject: sub.Username, ClientID: sub.ClientID, Scopes: sub.Scopes, CreatedAt: s.now().UTC()}
		if err := s.Sessions.Create(ctx, sid, sess, ttl); err != nil {
			return TokenPair{}, fmt.Errorf("store session: %w", err)
		}
	}
	return pair, nil
}

// Authenticate turns a valid access token into a request authentication.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*security.OAuth2Authentication, error) {
	claims, err := s.JWT.ParseAccessToken(token)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if s.Sessions != nil {
		sess, err := s.Sessions.Get(ctx, claims.SessionID)
		if err != nil {
			return nil, err
		}
		if sess == nil {
			return nil, ErrInvalidCredentials
		}
	}
	auth := &security.OAuth2Authentication{
		ClientID:    claims.ClientID,
		Scopes:      claims.Scope,
		Authorities: claims.Authorities,
		SessionID:   claims.SessionID,
	}
	if claims.Username != "" {
		auth.Principal = security.UserPrincipal{Username: claims.Username}
	} else {
		auth.Principal = security.ClientPrincipal{ClientID: claims.ClientID}
	}
	return auth, nil
}

// AuthenticateAPIKey accepts the internal API key as an admin service caller.
func (s *AuthService) AuthenticateAPIKey(key string) (*security.ServiceAuthentication, bool) {
	if s.APIKey == "" || subtle.ConstantTimeCompare([]byte(s.APIKey), []byte(key)) != 1 {
		return nil, false
	}
	return &security.ServiceAuthentication{Service: "internal", Authorities: []string{entity.RoleAdmin}}, true
}

// Revoke ends the session behind sid.
func (s *AuthService) Revoke(ctx context.Context, sid string) error {
	if s.Sessions == nil || sid == "" {
		return nil
	}
	return s.Sessions.Delete(ctx, sid)
}
