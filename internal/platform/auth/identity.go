package auth

import (
	"context"
	"slices"
	"strings"
	"time"
)

// RoleAdmin is the only role the till issues. It unlocks price edits and the ledger.
const RoleAdmin = "admin"

// Identity is a verified admin token attached to the request.
type Identity struct {
	Subject   string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasRole matches role case-insensitively. A nil identity has no roles.
func (i *Identity) HasRole(role string) bool {
	role = normaliseRole(role)
	if i == nil || role == "" {
		return false
	}
	return slices.ContainsFunc(i.Roles, func(r string) bool { return normaliseRole(r) == role })
}

// HasAnyRole reports whether any of roles is held.
func (i *Identity) HasAnyRole(roles ...string) bool {
	return slices.ContainsFunc(roles, i.HasRole)
}

type identityKey struct{}

// WithIdentity attaches identity for downstream handlers and request logs.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity set by the admin guard.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	identity, _ := ctx.Value(identityKey{}).(*Identity)
	return identity, identity != nil
}

func normaliseRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
