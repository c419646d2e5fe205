// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// Actor contains the authenticated identity that stock movements and
// purchase order transitions are attributed to. It is populated by the
// authentication layer and read by domain services.
type Actor struct {
	UserID   string
	Username string
	IsAdmin  bool
}

type actorContextKey struct{}

// WithActor adds Actor to context.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// GetActor returns Actor from context.
func GetActor(ctx context.Context) *Actor {
	if v, ok := ctx.Value(actorContextKey{}).(*Actor); ok {
		return v
	}
	return nil
}

// ActorName returns the username from context, or "system" when the call
// did not pass through the authentication layer (seeding, tests).
func ActorName(ctx context.Context) string {
	if a := GetActor(ctx); a != nil && a.Username != "" {
		return a.Username
	}
	return "system"
}

// IsAdmin reports whether the context carries an administrative actor.
// Administrative overrides (movement corrections) require this.
func IsAdmin(ctx context.Context) bool {
	a := GetActor(ctx)
	return a != nil && a.IsAdmin
}
