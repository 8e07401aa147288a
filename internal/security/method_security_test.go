package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oksasatya/sape-server/internal/domain/entity"
)

func userAuth(roles ...string) *OAuth2Authentication {
	return &OAuth2Authentication{Principal: UserPrincipal{Username: "ana"}, Authorities: roles}
}

func TestCheckDisabledAllowsEverything(t *testing.T) {
	ms := NewMethodSecurity(false, DefaultPolicies("persons"))
	assert.NoError(t, ms.Check(context.Background(), Op("persons", ActionDelete)))

	var nilMS *MethodSecurity
	assert.NoError(t, nilMS.Check(context.Background(), "anything"))
}

func TestCheckAnonymous(t *testing.T) {
	ms := NewMethodSecurity(true, map[Operation]Rule{"health": PermitAll()})
	assert.NoError(t, ms.Check(context.Background(), "health"))
	assert.ErrorIs(t, ms.Check(context.Background(), "unknown.op"), ErrUnauthenticated)
}

func TestCheckRolesAndScopes(t *testing.T) {
	ms := NewMethodSecurity(true, DefaultPolicies("persons"))
	del := Op("persons", ActionDelete)
	create := Op("persons", ActionCreate)
	list := Op("persons", ActionList)

	userCtx := WithAuthentication(context.Background(), userAuth(entity.RoleUser))
	assert.NoError(t, ms.Check(userCtx, create))
	assert.ErrorIs(t, ms.Check(userCtx, del), ErrAccessDenied)

	adminCtx := WithAuthentication(context.Background(), userAuth(entity.RoleAdmin))
	assert.NoError(t, ms.Check(adminCtx, del))

	readClient := WithAuthentication(context.Background(), &OAuth2Authentication{
		Principal: ClientPrincipal{ClientID: "reporting"},
		Scopes:    []string{"read"},
	})
	assert.NoError(t, ms.Check(readClient, list))
	assert.ErrorIs(t, ms.Check(readClient, create), ErrAccessDenied)

	service := WithAuthentication(context.Background(), &ServiceAuthentication{
		Service:     "internal",
		Authorities: []string{entity.RoleAdmin},
	})
	assert.NoError(t, ms.Check(service, del))
}

func TestPoliciesAreCopied(t *testing.T) {
	policies := map[Operation]Rule{"x.read": PermitAll()}
	ms := NewMethodSecurity(true, policies)
	policies["x.read"] = AnyRole("nobody")
	assert.True(t, ms.Rule("x.read").Permit)
}

func TestAuthenticationNames(t *testing.T) {
	assert.Equal(t, "ana", userAuth().GetName())
	assert.Equal(t, "cli", (&OAuth2Authentication{Principal: ClientPrincipal{ClientID: "cli"}}).GetName())

	_, ok := FromContext(context.Background())
	assert.False(t, ok)
}
