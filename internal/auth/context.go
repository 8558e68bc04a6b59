package auth

import (
	"context"

	"github.com/invoicepilot/backend/internal/common"
)

type contextKey string

const userClaimsKey contextKey = "user_claims"

// WithUserClaims adds user claims to the context.
func WithUserClaims(ctx context.Context, claims *UserClaims) context.Context {
	return context.WithValue(ctx, userClaimsKey, claims)
}

// GetUserClaims extracts user claims from the context.
func GetUserClaims(ctx context.Context) (*UserClaims, bool) {
	claims, ok := ctx.Value(userClaimsKey).(*UserClaims)
	return claims, ok
}

// RequireAuth returns the caller's claims or an Unauthenticated error.
func RequireAuth(ctx context.Context) (*UserClaims, error) {
	claims, ok := GetUserClaims(ctx)
	if !ok {
		return nil, common.Unauthenticated("user not authenticated")
	}
	return claims, nil
}
