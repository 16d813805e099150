package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/georgemunganga/storefront/internal/modules/user"
	"github.com/google/uuid"
)

type contextKey struct{}

type identity struct {
	id   uuid.UUID
	role string
}

// WithUserID returns a copy of ctx carrying a customer identity.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return WithIdentity(ctx, id, user.RoleCustomer)
}

// WithIdentity returns a copy of ctx carrying the authenticated user id and role.
func WithIdentity(ctx context.Context, id uuid.UUID, role string) context.Context {
	return context.WithValue(ctx, contextKey{}, identity{id: id, role: role})
}

// UserID reads the authenticated user id stored by Middleware.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	ident, ok := ctx.Value(contextKey{}).(identity)
	return ident.id, ok
}

// IsAdmin reports whether the authenticated caller holds the admin role.
func IsAdmin(ctx context.Context) bool {
	ident, ok := ctx.Value(contextKey{}).(identity)
	return ok && ident.role == user.RoleAdmin
}

// ParseToken validates an HS256 token and returns its subject as a user id
// along with the role claim.
func ParseToken(secret []byte, tokenString string) (uuid.UUID, string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, "", ErrUnauthenticated
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", ErrUnauthenticated
	}
	role := claims.Role
	if role == "" {
		role = user.RoleCustomer
	}
	return id, role, nil
}

// Middleware rejects requests without a valid "Authorization: Bearer" token.
func Middleware(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString := strings.TrimPrefix(header, "Bearer ")
			if header == "" || tokenString == header {
				unauthorized(w)
				return
			}
			id, role, err := ParseToken(key, tokenString)
			if err != nil {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id, role)))
		})
	}
}

// RequireAdmin must run after Middleware. Callers without the admin role get 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserID(r.Context()); !ok {
			unauthorized(w)
			return
		}
		if !IsAdmin(r.Context()) {
			respond(w, http.StatusForbidden, map[string]string{"error": ErrForbidden.Error()})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	respond(w, http.StatusUnauthorized, map[string]string{"error": ErrUnauthenticated.Error()})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
