// Package controllers holds the HTTP handlers of the sandbox storefront API.
package controllers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/raamul-storefront/api/middleware"
	"github.com/angelmondragon/raamul-storefront/internal/sandbox"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/angelmondragon/raamul-storefront/pkg/pagination"
)

func actorFrom(r *http.Request) sandbox.Actor {
	return sandbox.Actor{
		UserID: middleware.UserIDFromContext(r.Context()),
		Role:   middleware.RoleFromContext(r.Context()),
	}
}

// pathParam returns a required, trimmed chi URL parameter.
func pathParam(r *http.Request, name string) (string, error) {
	value := strings.TrimSpace(chi.URLParam(r, name))
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	if unescaped, err := url.PathUnescape(value); err == nil {
		value = unescaped
	}
	return value, nil
}

func pageParams(r *http.Request) pagination.Params {
	return pagination.FromQuery(r.URL.Query())
}

func queryValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

func errAccessDenied() error {
	return pkgerrors.New(pkgerrors.CodeForbidden, "Access denied")
}
