// Package requestctx carries per-request caller identity through context.
package requestctx

import "context"

// identityContextKey is the context key for the authenticated caller identity.
type identityContextKey struct{}

// WithIdentity stores a caller identity in context.
func WithIdentity(ctx context.Context, identity string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext returns the caller identity stored in context.
func IdentityFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(identityContextKey{}).(string)
	return value
}
