// Package guard protects admin API routes with permission checks evaluated
// through the engine's own resolver. The acting user is supplied by the
// upstream identity layer via the X-Actor-ID header; this service trusts
// that input and performs no authentication itself.
package guard

import "context"

type contextKey struct{}

// Actor identifies the authenticated user performing the request.
type Actor struct {
	ID int64
}

// ContextWithActor stores the actor in the context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, actor)
}

// ActorFromContext retrieves the actor placed by the identity middleware.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(contextKey{}).(Actor)
	return actor, ok
}
