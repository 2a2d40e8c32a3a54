package auth

import "context"

type securityContextKey struct{}

// WithSecurityContext stores the resolved security context on ctx for downstream handlers.
func WithSecurityContext(ctx context.Context, sc *SecurityContext) context.Context {
	return context.WithValue(ctx, securityContextKey{}, sc)
}

// FromContext retrieves the security context stored by WithSecurityContext.
func FromContext(ctx context.Context) (*SecurityContext, bool) {
	sc, ok := ctx.Value(securityContextKey{}).(*SecurityContext)
	return sc, ok && sc != nil
}
