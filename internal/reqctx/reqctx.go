package reqctx

import (
	"context"

	"github.com/kjanat/gpg-signing-service/domain/oidc"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	claimsKey
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the request correlation id, or "" outside a request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func WithClaims(ctx context.Context, claims *oidc.ValidatedClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// Claims returns the validated OIDC claims attached by the auth middleware.
func Claims(ctx context.Context) (*oidc.ValidatedClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*oidc.ValidatedClaims)
	return claims, ok
}
