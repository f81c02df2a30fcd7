package auth

import (
	"net/http"
	"strings"

	"github.com/faciam-dev/guidecms/internal/domain/capability"
)

// CookieName carries the access token for the admin screens.
const CookieName = "guide_cms_token"

// TokenFromRequest returns the bearer token, falling back to the cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// Middleware resolves the request principal. Requests without a valid
// token continue as the anonymous principal; access decisions are left to
// the RBAC layer and capability checks.
func Middleware(j *JWT) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := capability.Anonymous()
			if tok := TokenFromRequest(r); tok != "" {
				if claims, err := j.Validate(tok); err == nil {
					p = claims.Principal()
				}
			}
			next.ServeHTTP(w, r.WithContext(capability.WithPrincipal(r.Context(), p)))
		})
	}
}
