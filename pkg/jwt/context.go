package jwt

import "context"

type claimsCtxKey struct{}

// SetClaimsToContext stores validated claims on ctx.
func SetClaimsToContext(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey{}, claims)
}

// GetClaimsFromContext returns the claims stored by SetClaimsToContext.
func GetClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsCtxKey{}).(*Claims)
	return claims, ok && claims != nil
}

// GetUserIDFromContext returns the subject of the stored claims.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	claims, ok := GetClaimsFromContext(ctx)
	if !ok {
		return "", false
	}
	return claims.UserID(), true
}
