package auth

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-staff-go/internal/staff/entity"
)

type ctxKey string

// identityKey contains *entity.Identity.
// Set by: Gate.Authenticate. Required by: every protected handler and RequireRole.
const identityKey ctxKey = "auth_identity"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *entity.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the authenticated identity, or nil when the request
// did not pass the gate.
func IdentityFrom(ctx context.Context) *entity.Identity {
	id, _ := ctx.Value(identityKey).(*entity.Identity)
	return id
}
