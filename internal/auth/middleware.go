package auth

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

// TokenParser is satisfied by *Service.
type TokenParser interface {
	ParseToken(token string) (Principal, error)
}

// Deny writes the error response for a rejected request.
type Deny func(w http.ResponseWriter, r *http.Request, err error)

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// RequireUser rejects requests without a valid bearer token and stores the
// principal in the request context.
func RequireUser(tp TokenParser, deny Deny) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearer(r)
			if tok == "" {
				deny(w, r, ErrInvalidToken)
				return
			}
			p, err := tp.ParseToken(tok)
			if err != nil {
				deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAdmin must run after RequireUser.
func RequireAdmin(deny Deny) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := FromContext(r.Context())
			if !ok {
				deny(w, r, ErrInvalidToken)
				return
			}
			if !p.IsAdmin() {
				deny(w, r, ErrAdminOnly)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
