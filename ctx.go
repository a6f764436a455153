package account

import (
	"context"

	"github.com/goliatone/go-router"
)

var userCtxKey = &contextKey{"user"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithClaimsContext sets the SessionClaims in the given context
func WithClaimsContext(r context.Context, claims *SessionClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the SessionClaims from the standard context
func GetClaims(ctx context.Context) (*SessionClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*SessionClaims)
	return raw, ok
}

// GetRouterClaims extracts the SessionClaims from the router context
func GetRouterClaims(ctx router.Context, key string) (*SessionClaims, bool) {
	if key == "" {
		key = DefaultCookieName
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(*SessionClaims)
	return claims, ok
}

// StageFromContext reports the onboarding stage of the session in the
// context, degrading to StageUnverified when no claims are present.
func StageFromContext(ctx context.Context) Stage {
	claims, ok := GetClaims(ctx)
	if !ok {
		return StageUnverified
	}
	return claims.Stage()
}
