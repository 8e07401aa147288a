package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/sape-server/internal/domain/entity"
	"github.com/oksasatya/sape-server/internal/infrastructure/memory"
	"github.com/oksasatya/sape-server/internal/security"
	"github.com/oksasatya/sape-server/pkg/helpers"
)

type memSessions struct {
	mu   sync.Mutex
	data map[string]helpers.Session
}

func newMemSessions() *memSessions { return &memSessions{data: map[string]helpers.Session{}} }

func (m *memSessions) Create(_ context.Context, sid string, s helpers.Session, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sid] = s
	return nil
}

func (m *memSessions) Get(_ context.Context, sid string) (*helpers.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[sid]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memSessions) Delete(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sid)
	return nil
}

func newAuthService(t *testing.T) (*AuthService, *memSessions) {
	t.Helper()
	hash, err := helpers.HashPassword("s3cret-pass")
	require.NoError(t, err)
	users := memory.NewUserRepository(entity.User{Username: "ana", PasswordHash: hash, Roles: []string{entity.RoleUser}})
	sessions := newMemSessions()
	jwt := helpers.NewJWTManager("access", "refresh", time.Minute, time.Hour)
	client := OAuthClient{ID: "web", Secret: "web-secret", Scopes: []string{"read", "write"}}
	return NewAuthService(NewUserQueryService(users), jwt, sessions, client, "internal-key", nil), sessions
}

func passwordRequest() TokenRequest {
	return TokenRequest{GrantType: GrantPassword, ClientID: "web", ClientSecret: "web-secret", Username: "ana", Password: "s3cret-pass"}
}

func TestPasswordGrantAndAuthenticate(t *testing.T) {
	s, sessions := newAuthService(t)
	ctx := context.Background()

	pair, err := s.Token(ctx, passwordRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, []string{"read", "write"}, pair.Scopes)
	assert.Len(t, sessions.data, 1)

	auth, err := s.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "ana", auth.GetName())
	assert.Equal(t, []string{entity.RoleUser}, auth.GetAuthorities())
	assert.True(t, auth.HasScope("write"))
	_, isUser := auth.Principal.(security.UserDetails)
	assert.True(t, isUser)

	require.NoError(t, s.Revoke(ctx, auth.SessionID))
	_, err = s.Authenticate(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordGrantRejections(t *testing.T) {
	s, _ := newAuthService(t)
	ctx := context.Background()

	req := passwordRequest()
	req.Password = "wrong"
	_, err := s.Token(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	req = passwordRequest()
	req.Username = "nobody"
	_, err = s.Token(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	req = passwordRequest()
	req.ClientSecret = "bad"
	_, err = s.Token(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidClient)

	req = passwordRequest()
	req.Scopes = []string{"admin"}
	_, err = s.Token(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidScope)

	req = passwordRequest()
	req.GrantType = "implicit"
	_, err = s.Token(ctx, req)
	assert.ErrorIs(t, err, ErrUnsupportedGrant)
}

func TestClientCredentialsGrant(t *testing.T) {
	s, _ := newAuthService(t)
	ctx := context.Background()
	pair, err := s.Token(ctx, TokenRequest{GrantType: GrantClientCredentials, ClientID: "web", ClientSecret: "web-secret", Scopes: []string{"read"}})
	require.NoError(t, err)
	assert.Empty(t, pair.RefreshToken)

	auth, err := s.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, security.ClientPrincipal{ClientID: "web"}, auth.Principal)
	assert.False(t, auth.HasScope("write"))
}

func TestRefreshGrantRotatesSession(t *testing.T) {
	s, sessions := newAuthService(t)
	ctx := context.Background()
	first, err := s.Token(ctx, passwordRequest())
	require.NoError(t, err)

	second, err := s.Token(ctx, TokenRequest{GrantType: GrantRefreshToken, ClientID: "web", ClientSecret: "web-secret", RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Len(t, sessions.data, 1)

	_, err = s.Token(ctx, TokenRequest{GrantType: GrantRefreshToken, ClientID: "web", ClientSecret: "web-secret", RefreshToken: first.RefreshToken})
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestHashedClientSecret(t *testing.T) {
	hash, err := helpers.HashPassword("hashed-secret")
	require.NoError(t, err)
	c := OAuthClient{ID: "web", Secret: hash}
	assert.True(t, c.verify("web", "hashed-secret"))
	assert.False(t, c.verify("web", "other"))
	assert.False(t, OAuthClient{}.verify("", ""))
}

func TestAuthenticateAPIKey(t *testing.T) {
	s, _ := newAuthService(t)
	auth, ok := s.AuthenticateAPIKey("internal-key")
	require.True(t, ok)
	assert.Equal(t, []string{entity.RoleAdmin}, auth.GetAuthorities())

	_, ok = s.AuthenticateAPIKey("wrong")
	assert.False(t, ok)
	s.APIKey = ""
	_, ok = s.AuthenticateAPIKey("")
	assert.False(t, ok)
}
