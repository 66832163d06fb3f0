package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/taskhive/tasks-api/internal"
)

type contextKey string

const ownerContextKey contextKey = "owner"

// UserResolver turns an authenticated user id into an active account; the
// middleware rejects deactivated or unknown accounts before any handler runs.
type UserResolver interface {
	Resolve(ctx context.Context, id uuid.UUID) (internal.User, error)
}

// BearerAuth verifies the Authorization header and injects the resolved
// owner identity into the request context. Handlers behind it can assume an
// active owner.
func BearerAuth(secret []byte, resolver UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				renderErrorResponse(r.Context(), w, "authorization header is missing",
					internal.NewErrorf(internal.ErrorCodeUnauthorized, "authorization header is missing"))
				return
			}

			fields := strings.Fields(header)
			if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
				renderErrorResponse(r.Context(), w, "invalid authorization header",
					internal.NewErrorf(internal.ErrorCodeUnauthorized, "invalid authorization header"))
				return
			}

			userID, err := parseAccessToken(secret, fields[1])
			if err != nil {
				renderErrorResponse(r.Context(), w, "invalid token", err)
				return
			}

			user, err := resolver.Resolve(r.Context(), userID)
			if err != nil {
				renderErrorResponse(r.Context(), w, "account unavailable", err)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerContextKey, user)))
		})
	}
}

func parseAccessToken(secret []byte, tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, internal.WrapErrorf(err, internal.ErrorCodeUnauthorized, "token expired")
		}

		return uuid.Nil, internal.WrapErrorf(err, internal.ErrorCodeUnauthorized, "invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, internal.NewErrorf(internal.ErrorCodeUnauthorized, "invalid token claims")
	}

	sub, ok := claims["userId"].(string)
	if !ok {
		return uuid.Nil, internal.NewErrorf(internal.ErrorCodeUnauthorized, "invalid token claims")
	}

	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, internal.WrapErrorf(err, internal.ErrorCodeUnauthorized, "invalid token claims")
	}

	return userID, nil
}

// ownerFromContext returns the identity injected by BearerAuth.
func ownerFromContext(ctx context.Context) (internal.User, bool) {
	user, ok := ctx.Value(ownerContextKey).(internal.User)
	return user, ok
}
