// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services read them without importing net/http.
// The request time accessor lets tests pin "now" for deterministic
// state-transition timestamps.
package requestcontext

import (
	"context"
	"time"

	id "givers/pkg/domain"
)

type (
	userIDKey      struct{}
	hostKey        struct{}
	donorTokenKey  struct{}
	sessionIDKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// WithUserID records the authenticated account id.
func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID returns the authenticated account id, or the zero id when anonymous.
func UserID(ctx context.Context) id.UserID {
	v, _ := ctx.Value(userIDKey{}).(id.UserID)
	return v
}

// WithHost marks the caller as holding the host role.
func WithHost(ctx context.Context, isHost bool) context.Context {
	return context.WithValue(ctx, hostKey{}, isHost)
}

// IsHost reports whether the caller holds the host role.
func IsHost(ctx context.Context) bool {
	v, _ := ctx.Value(hostKey{}).(bool)
	return v
}

// WithDonorToken records the caller's anonymous browser token.
func WithDonorToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, donorTokenKey{}, token)
}

// DonorToken returns the anonymous browser token, or "" when absent.
func DonorToken(ctx context.Context) string {
	v, _ := ctx.Value(donorTokenKey{}).(string)
	return v
}

// WithSessionID records the browser session identifier.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

// SessionID returns the browser session identifier, or "" when absent.
func SessionID(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey{}).(string)
	return v
}

// WithRequestID records the request correlation id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request correlation id, or "" when absent.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// WithTime pins the request time, mainly for tests.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Now returns the pinned request time, falling back to time.Now.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
