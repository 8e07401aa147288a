// Package security holds the request-scoped authentication model and the
// method security policy table.
//
// Authentication is established once per request by the HTTP middleware and
// travels in context.Context; nothing here reads global state.
package security

import "context"

// Authentication is the resolved credential of a request.
type Authentication interface {
	GetName() string
	GetAuthorities() []string
	IsAuthenticated() bool
}

// UserDetails is the principal shape that exposes a username.
type UserDetails interface {
	GetUsername() string
}

// UserPrincipal is carried by tokens issued to an end user.
type UserPrincipal struct {
	Username string
}

func (p UserPrincipal) GetUsername() string { return p.Username }

// ClientPrincipal is carried by client-credentials tokens. It has no username.
type ClientPrincipal struct {
	ClientID string
}

// OAuth2Authentication is built from a validated bearer token.
type OAuth2Authentication struct {
	Principal   any
	ClientID    string
	Scopes      []string
	Authorities []string
	SessionID   string
}

func (a *OAuth2Authentication) GetName() string {
	switch p := a.Principal.(type) {
	case UserDetails:
		return p.GetUsername()
	case ClientPrincipal:
		return p.ClientID
	}
	return a.ClientID
}

func (a *OAuth2Authentication) GetAuthorities() []string { return a.Authorities }

func (a *OAuth2Authentication) IsAuthenticated() bool { return a.Principal != nil }

func (a *OAuth2Authentication) HasScope(scope string) bool {
	return contains(a.Scopes, scope)
}

// ServiceAuthentication identifies trusted internal callers using the API key.
type ServiceAuthentication struct {
	Service     string
	Authorities []string
}

func (a *ServiceAuthentication) GetName() string { return a.Service }

func (a *ServiceAuthentication) GetAuthorities() []string { return a.Authorities }

func (a *ServiceAuthentication) IsAuthenticated() bool { return true }

type ctxKey struct{}

// WithAuthentication returns a copy of ctx carrying a.
func WithAuthentication(ctx context.Context, a Authentication) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext returns the authentication stored in ctx, if any.
func FromContext(ctx context.Context) (Authentication, bool) {
	a, ok := ctx.Value(ctxKey{}).(Authentication)
	if !ok || a == nil {
		return nil, false
	}
	return a, true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
