package auth

import (
	"context"

	"github.com/fzheng/homepoints/internal/model"
)

type contextKey struct{}

// AuthContext carries the authenticated identity through a request. The
// role is the user's role in the session's active family, resolved once by
// the auth middleware.
type AuthContext struct {
	UserID    int64
	FamilyID  int64
	Role      model.Role
	SessionID int64
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func FamilyID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.FamilyID
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

func IsAdmin(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.Role.AtLeast(model.RoleAdmin)
}
