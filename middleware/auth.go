package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	jwt "github.com/golang-jwt/jwt/v4"

	"github.com/zonkedw/project-shop-sub001/logger"
)

type contextKey string

const UserContextKey contextKey = "user_id"

// Authenticate verifies "Authorization: Bearer <token>" as an HS256 JWT signed
// with secret and stores the user id from its claims in the request context.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "Authorization header is missing")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w, "Invalid Authorization format")
				return
			}

			token, err := jwt.Parse(strings.TrimSpace(parts[1]), func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				logger.Debug("Rejected token", "error", err)
				unauthorized(w, "Invalid or expired token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				unauthorized(w, "Invalid token claims")
				return
			}
			userID, ok := userIDFromClaims(claims)
			if !ok {
				unauthorized(w, "Invalid token claims")
				return
			}

			ctx := WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, UserContextKey, userID)
}

// UserID returns the authenticated user id stored by Authenticate.
func UserID(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(UserContextKey).(uint)
	return id, ok && id != 0
}

// userIDFromClaims reads "user_id" (number or numeric string), then "sub".
func userIDFromClaims(claims jwt.MapClaims) (uint, bool) {
	for _, key := range []string{"user_id", "sub"} {
		raw, present := claims[key]
		if !present {
			continue
		}
		switch v := raw.(type) {
		case float64:
			if v > 0 && v == float64(uint(v)) {
				return uint(v), true
			}
		case string:
			n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
			if err == nil && n > 0 {
				return uint(n), true
			}
		}
	}
	return 0, false
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
