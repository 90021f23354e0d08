package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/raamul-storefront/api/responses"
	"github.com/angelmondragon/raamul-storefront/pkg/apiclient"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/angelmondragon/raamul-storefront/pkg/logger"
	pkgredis "github.com/angelmondragon/raamul-storefront/pkg/redis"
)

const headerReplayed = "Idempotent-Replayed"

// replayWindows lists the requests that honour Idempotency-Key, by "METHOD pattern".
// Orders carry their client-minted order id as the key; an STK push is only worth
// replaying while the customer could still be looking at the prompt.
var replayWindows = map[string]time.Duration{
	http.MethodPost + " /api/orders":            24 * time.Hour,
	http.MethodPost + " /api/payments/initiate": 10 * time.Minute,
}

// storedResponse is what a first successful attempt leaves behind for its retries.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	RequestHash string `json:"request_hash"`
}

// Idempotency makes order creation and payment initiation safe to retry. A repeat with
// the same key and body gets the stored response; the same key with a different body is
// rejected with IDEMPOTENCY_KEY_REUSED. 5xx outcomes are not stored so a retry runs again.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	if logg == nil {
		logg = logger.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, covered := routeTTL(r.Method, routePattern(r))
			clientKey := strings.TrimSpace(r.Header.Get(apiclient.HeaderIdempotencyKey))
			if !covered || store == nil || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			hash := requestHash(body)
			key := store.IdempotencyKey(UserIDFromContext(r.Context())+"|"+r.URL.Path, clientKey)

			prior, err := lookupResponse(r.Context(), store, key)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if prior != nil {
				if prior.RequestHash != hash {
					responses.WriteError(r.Context(), logg, w,
						pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
					return
				}
				prior.replay(w)
				return
			}

			rec := &responseRecorder{ResponseWriter: w, capture: true}
			next.ServeHTTP(rec, r)
			if rec.Status() >= http.StatusInternalServerError {
				return
			}
			saved := storedResponse{
				Status:      rec.Status(),
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
				RequestHash: hash,
			}
			if err := saveResponse(r.Context(), store, key, saved, ttl); err != nil {
				logg.WarnErr(logg.WithField(r.Context(), "idempotency_key", clientKey), "idempotent response not stored", err)
			}
		})
	}
}

func routeTTL(method, pattern string) (time.Duration, bool) {
	ttl, ok := replayWindows[method+" "+pattern]
	return ttl, ok
}

func requestHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func lookupResponse(ctx context.Context, store pkgredis.IdempotencyStore, key string) (*storedResponse, error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, pkgredis.ErrNil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency key")
	}
	var prior storedResponse
	if err := json.Unmarshal([]byte(raw), &prior); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode stored response")
	}
	return &prior, nil
}

func saveResponse(ctx context.Context, store pkgredis.IdempotencyStore, key string, saved storedResponse, ttl time.Duration) error {
	payload, err := json.Marshal(saved)
	if err != nil {
		return err
	}
	_, err = store.SetNX(ctx, key, string(payload), ttl)
	return err
}

func (s *storedResponse) replay(w http.ResponseWriter) {
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	w.Header().Set(headerReplayed, "true")
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}
