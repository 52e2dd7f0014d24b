// Package ctxutil provides context utilities that can be safely imported anywhere.
// This package has no internal dependencies to avoid import cycles.
package ctxutil

import "context"

// AuthorityKey is the context key for the acting authority identity.
// Exported so it can be used consistently across packages.
type AuthorityKey struct{}

// WithAuthority returns a context with the authority identity embedded.
func WithAuthority(ctx context.Context, authorityIdentity string) context.Context {
	return context.WithValue(ctx, AuthorityKey{}, authorityIdentity)
}

// AuthorityFromContext returns the authority identity from context, or empty
// string if not set.
func AuthorityFromContext(ctx context.Context) string {
	if v := ctx.Value(AuthorityKey{}); v != nil {
		return v.(string)
	}
	return ""
}
