package handler

import (
	"context"
	"net/http"
	"strings"

	authservice "github.com/ibtikar-org-tr/membership-app/internal/service/auth"
	"github.com/ibtikar-org-tr/membership-app/pkg/response"
	"github.com/ibtikar-org-tr/membership-app/pkg/xerrors"
)

type contextKey string

const claimsContextKey contextKey = "auth_claims"

// ClaimsFromContext extracts the token claims stored by RequireMember.
func ClaimsFromContext(ctx context.Context) (*authservice.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*authservice.Claims)
	return claims, ok
}

// RequireMember validates the Bearer token and stores its claims on the
// request context.
func RequireMember(auth *authservice.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := verifyBearer(auth, r)
			if err != nil {
				response.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin accepts either an admin-scoped Bearer token or the
// X-Admin-Password header.
func RequireAdmin(auth *authservice.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if password := r.Header.Get("X-Admin-Password"); password != "" {
				if !auth.AuthenticateAdmin(password) {
					response.Error(w, http.StatusUnauthorized, "unauthorized")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifyBearer(auth, r)
			if err != nil || claims.MembershipNumber != "admin" {
				response.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func verifyBearer(auth *authservice.Service, r *http.Request) (*authservice.Claims, error) {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		return nil, xerrors.ErrInvalidToken
	}
	return auth.Tokens().Verify(token)
}
