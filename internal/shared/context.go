package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// AccessTokenFromContext returns the bearer token of the current session.
func AccessTokenFromContext(ctx context.Context) string {
	return SessionFromContext(ctx).AccessToken()
}

// IdentityFromContext returns the signed-in user of the current session.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	return SessionFromContext(ctx).Identity()
}
