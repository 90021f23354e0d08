package middleware

import (
	"net/http"

	"github.com/angelmondragon/raamul-storefront/api/responses"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/angelmondragon/raamul-storefront/pkg/logger"
)

// RequireAdmin admits admins and super admins.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !RoleFromContext(r.Context()).IsAdmin() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "Admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
