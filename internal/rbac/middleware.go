package rbac

import (
	"net/http"

	"github.com/casbin/casbin/v2"

	"github.com/faciam-dev/guidecms/internal/domain/capability"
)

// Middleware enforces route access where either the principal or any of its
// roles is allowed. Anonymous callers get 401, authenticated ones 403.
func Middleware(e *casbin.Enforcer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := capability.FromContext(r.Context())
			if allowed(e, p, r.URL.Path, r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			if p.IsAnonymous() {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
}
