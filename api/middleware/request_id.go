package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/raamul-storefront/pkg/apiclient"
	"github.com/angelmondragon/raamul-storefront/pkg/logger"
)

const maxRequestIDLen = 128

// RequestID adopts the caller's X-Request-Id so client and sandbox logs share one id,
// minting a fresh one when the header is missing or unusable.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	if logg == nil {
		logg = logger.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := strings.TrimSpace(r.Header.Get(apiclient.HeaderRequestID))
			if !usableRequestID(reqID) {
				reqID = uuid.NewString()
			}
			w.Header().Set(apiclient.HeaderRequestID, reqID)
			next.ServeHTTP(w, r.WithContext(logg.WithRequestID(r.Context(), reqID)))
		})
	}
}

func usableRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, c := range id {
		if c < '!' || c > '~' {
			return false
		}
	}
	return true
}
