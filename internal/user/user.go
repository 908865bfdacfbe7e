package user

import (
	"context"

	"github.com/google/uuid"
)

// Actor is the authenticated identity performing an operation. Authentication
// itself happens upstream; the gateway forwards the identity via headers and
// the transport middleware places it in the request context.
type Actor struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  string    `json:"role,omitempty"`
}

// System is the actor recorded for machine-initiated events such as
// auto-triggered top-ups. Its nil-ness maps to a NULL triggered_by in the
// transaction log.
func System() *Actor {
	return nil
}

// IsSystem reports whether the actor represents the system itself.
func IsSystem(a *Actor) bool {
	return a == nil
}

type ctxKey string

const actorKey ctxKey = "actor"

func FromContext(ctx context.Context) (*Actor, bool) {
	a, ok := ctx.Value(actorKey).(*Actor)
	return a, ok && a != nil
}

func ContextWithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}
