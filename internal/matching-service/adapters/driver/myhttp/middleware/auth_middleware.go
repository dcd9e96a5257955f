package middleware

import (
	"errors"
	"net/http"

	"tujane/internal/auth"
	"tujane/internal/matching-service/adapters/driver/myhttp/handle"
)

type AuthMiddleware struct {
	accessSecret string
	role         string
}

func NewAuthMiddleware(accessSecret, role string) *AuthMiddleware {
	return &AuthMiddleware{
		accessSecret: accessSecret,
		role:         role,
	}
}

func (am *AuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := auth.VerifyRole(am.accessSecret, r.Header.Get("Authorization"), am.role)
		switch {
		case errors.Is(err, auth.ErrWrongRole):
			handle.JsonError(w, http.StatusForbidden, err)
			return
		case err != nil:
			handle.JsonError(w, http.StatusUnauthorized, err)
			return
		}

		r.Header.Set("X-UserId", claims.Subject)
		next.ServeHTTP(w, r)
	})
}
