package security

import (
	"context"
	"errors"

	"github.com/oksasatya/sape-server/internal/domain/entity"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrAccessDenied    = errors.New("access denied")
)

// Operation names a guarded entry point as "<resource>.<action>".
type Operation string

func Op(resource, action string) Operation { return Operation(resource + "." + action) }

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionRead   = "read"
	ActionList   = "list"
)

// Rule is a pre-invocation check. A caller passes when the rule permits
// everyone, or when it is authenticated and either no roles/scopes are
// required or at least one required role or scope is held.
type Rule struct {
	Permit bool
	Roles  []string
	Scopes []string
}

func PermitAll() Rule { return Rule{Permit: true} }

func Authenticated() Rule { return Rule{} }

func AnyRole(roles ...string) Rule { return Rule{Roles: roles} }

func AnyScope(scopes ...string) Rule { return Rule{Scopes: scopes} }

// OrScope returns a copy of r that also accepts the given scopes.
func (r Rule) OrScope(scopes ...string) Rule {
	r.Scopes = append(append([]string(nil), r.Scopes...), scopes...)
	return r
}

func (r Rule) allows(a Authentication) bool {
	if len(r.Roles) == 0 && len(r.Scopes) == 0 {
		return true
	}
	for _, role := range r.Roles {
		if contains(a.GetAuthorities(), role) {
			return true
		}
	}
	if oa, ok := a.(*OAuth2Authentication); ok {
		for _, s := range r.Scopes {
			if oa.HasScope(s) {
				return true
			}
		}
	}
	return false
}

// MethodSecurity is configured once at startup and read-only afterwards.
// Operations without a policy fall back to Authenticated.
type MethodSecurity struct {
	PrePostEnabled bool
	policies       map[Operation]Rule
}

func NewMethodSecurity(prePostEnabled bool, policies map[Operation]Rule) *MethodSecurity {
	copied := make(map[Operation]Rule, len(policies))
	for op, r := range policies {
		copied[op] = r
	}
	return &MethodSecurity{PrePostEnabled: prePostEnabled, policies: copied}
}

// Rule returns the rule guarding op.
func (m *MethodSecurity) Rule(op Operation) Rule {
	if r, ok := m.policies[op]; ok {
		return r
	}
	return Authenticated()
}

// Check evaluates op for the authentication carried by ctx.
// It returns nil, ErrUnauthenticated or ErrAccessDenied.
func (m *MethodSecurity) Check(ctx context.Context, op Operation) error {
	if m == nil || !m.PrePostEnabled {
		return nil
	}
	rule := m.Rule(op)
	if rule.Permit {
		return nil
	}
	a, ok := FromContext(ctx)
	if !ok || !a.IsAuthenticated() {
		return ErrUnauthenticated
	}
	if !rule.allows(a) {
		return ErrAccessDenied
	}
	return nil
}

// CRUDPolicies returns the default rules for one CRUD resource: readers need
// a role or the read scope, writers a role or the write scope, and deletion
// is reserved to admins.
func CRUDPolicies(resource string) map[Operation]Rule {
	reader := AnyRole(entity.RoleAdmin, entity.RoleUser).OrScope("read", "write")
	writer := AnyRole(entity.RoleAdmin, entity.RoleUser).OrScope("write")
	return map[Operation]Rule{
		Op(resource, ActionRead):   reader,
		Op(resource, ActionList):   reader,
		Op(resource, ActionCreate): writer,
		Op(resource, ActionUpdate): writer,
		Op(resource, ActionDelete): AnyRole(entity.RoleAdmin),
	}
}

// DefaultPolicies is the policy table used by the server. identity.me is open
// so anonymous callers get their resolution outcome instead of a 401.
func DefaultPolicies(resources ...string) map[Operation]Rule {
	out := map[Operation]Rule{
		"identity.me":   PermitAll(),
		"search.query":  AnyRole(entity.RoleAdmin, entity.RoleUser).OrScope("read", "write"),
		"persons.photo": AnyRole(entity.RoleAdmin, entity.RoleUser).OrScope("write"),
	}
	for _, r := range resources {
		for op, rule := range CRUDPolicies(r) {
			out[op] = rule
		}
	}
	return out
}
