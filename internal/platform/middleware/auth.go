package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "givers/pkg/domain"
	"givers/pkg/requestcontext"
)

// DonorTokenCookie carries the anonymous browser token across visits.
const DonorTokenCookie = "givers_donor_token"

// Claims are the session token claims this service understands.
type Claims struct {
	UserID    id.UserID
	SessionID string
	Host      bool
}

// Validator validates HMAC-signed session tokens.
type Validator struct {
	key []byte
}

// NewValidator creates a Validator with the given signing key.
func NewValidator(signingKey string) *Validator {
	return &Validator{key: []byte(signingKey)}
}

// ValidateToken parses and verifies a session token.
func (v *Validator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type")
	}

	sub, err := mapClaims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("read subject: %w", err)
	}
	userID, err := id.ParseUserID(sub)
	if err != nil {
		return nil, fmt.Errorf("parse subject: %w", err)
	}

	claims := &Claims{UserID: userID}
	if sid, ok := mapClaims["sid"].(string); ok {
		claims.SessionID = sid
	}
	if host, ok := mapClaims["host"].(bool); ok {
		claims.Host = host
	}
	return claims, nil
}

// Attach populates the request context with the caller's identity: the
// session token when present and valid, plus the anonymous donor token
// cookie. It never rejects; route-level middleware enforces requirements.
func Attach(validator *Validator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if cookie, err := r.Cookie(DonorTokenCookie); err == nil && cookie.Value != "" {
				ctx = requestcontext.WithDonorToken(ctx, cookie.Value)
			}

			authHeader := r.Header.Get("Authorization")
			if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
				claims, err := validator.ValidateToken(token)
				if err != nil {
					logger.WarnContext(ctx, "invalid session token",
						slog.Any("error", err),
						slog.String("request_id", requestcontext.RequestID(ctx)),
					)
				} else {
					ctx = requestcontext.WithUserID(ctx, claims.UserID)
					ctx = requestcontext.WithSessionID(ctx, claims.SessionID)
					ctx = requestcontext.WithHost(ctx, claims.Host)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests with no authenticated account.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestcontext.UserID(r.Context()).IsNil() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Missing or invalid Authorization header"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireHost rejects requests from callers without the host role.
func RequireHost(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requestcontext.IsHost(r.Context()) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"Host role required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
