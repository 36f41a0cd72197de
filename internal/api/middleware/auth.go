// Package middleware authenticates admin requests with OIDC bearer tokens.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// AdminScope grants access to the admin routes.
const AdminScope = "tally.admin"

// ctxKey is the key for accessing Claims data stored in a Context.
var ctxKey struct{}

type Claims struct {
	Subject string   `json:"sub"`
	Email   string   `json:"email"`
	Scopes  []string `json:"scope"`
}

func (c Claims) HasScope(scope string) bool {
	return scope == "" || slices.Contains(c.Scopes, scope)
}

// BearerToken returns the token of an "Authorization: Bearer" header. The scheme is case-insensitive.
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// NewHasScope rejects requests without a valid token carrying scope. Verified claims are available to handlers through [ClaimsFrom].
func NewHasScope(logger *slog.Logger, verifier *oidc.IDTokenVerifier, scope string) func(http.Handler) http.Handler {
	logger = logger.WithGroup("auth")
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := BearerToken(r)
			if !ok {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			idTok, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				logger.DebugContext(r.Context(), "auth: rejected token", "err", err)
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			var c Claims
			if err := idTok.Claims(&c); err != nil {
				http.Error(w, "cannot parse claims", http.StatusUnauthorized)
				return
			}
			if !c.HasScope(scope) {
				logger.InfoContext(r.Context(), "auth: missing scope", "sub", c.Subject, "scope", scope)
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			h.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey, c)))
		})
	}
}

func ClaimsFrom(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(ctxKey).(Claims)
	return c, ok
}
