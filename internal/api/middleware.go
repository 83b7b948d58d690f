/**
 * @description
 * This file contains custom middleware for the HTTP router. The auth
 * middleware is the service's caller identity provider: it validates the
 * bearer JWT and threads the token subject through the request context as
 * the opaque caller identity every ledger operation authorizes against.
 *
 * @dependencies
 * - context, net/http, strings: Standard Go libraries.
 * - github.com/golang-jwt/jwt/v5: JWT parsing and validation.
 */

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/openfund/campaign-service/internal/domain"
)

// IdentityContextKey is a custom type for the context key to avoid collisions.
type IdentityContextKey string

const callerIdentityKey IdentityContextKey = "callerIdentity"

// AuthMiddleware creates a middleware that validates HS256 bearer tokens
// signed with the shared secret and stores the subject claim as the caller
// identity in the request context.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "Invalid token claims", http.StatusUnauthorized)
				return
			}
			subject, ok := claims["sub"].(string)
			if !ok || subject == "" {
				http.Error(w, "Caller identity not found in token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), callerIdentityKey, domain.Identity(subject))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCallerIdentity retrieves the authenticated caller identity from the
// request context. Handlers use this for every authorization-gated operation.
func GetCallerIdentity(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(callerIdentityKey).(domain.Identity)
	return identity, ok
}
