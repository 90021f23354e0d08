package responses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/angelmondragon/raamul-storefront/pkg/logger"
	"github.com/angelmondragon/raamul-storefront/pkg/types"
)

// WriteJSON writes payload as the bare response body. The storefront API does not wrap
// successful responses in an envelope.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteSuccess(w http.ResponseWriter, payload any) {
	WriteJSON(w, http.StatusOK, payload)
}

// WriteMessage writes the {message} acknowledgement used by mutating endpoints.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"message": message})
}

// WriteError maps err onto its status code and writes the {message, errors} body.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	switch typed.Code() {
	case pkgerrors.CodeValidation,
		pkgerrors.CodeForbidden,
		pkgerrors.CodeUnauthorized,
		pkgerrors.CodeNotFound,
		pkgerrors.CodeConflict,
		pkgerrors.CodeStateConflict,
		pkgerrors.CodeIdempotency,
		pkgerrors.CodeRateLimit:
		if m := typed.Message(); m != "" {
			msg = m
		}
	}

	payload := types.ErrorEnvelope{Message: msg, Errors: []string{}}
	if meta.DetailsAllowed {
		payload.Errors = detailLines(typed.Details())
	}

	if logg != nil {
		fields := map[string]any{
			"error_code": string(typed.Code()),
			"status":     meta.HTTPStatus,
		}
		ctx = logg.WithFields(ctx, fields)
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.WarnErr(ctx, "request.rejected", err)
		}
	}

	WriteJSON(w, meta.HTTPStatus, payload)
}

// detailLines flattens error details into the errors array, sorted for stable output.
func detailLines(details any) []string {
	lines := []string{}
	switch d := details.(type) {
	case nil:
	case []string:
		lines = append(lines, d...)
	case map[string]string:
		for field, problem := range d {
			lines = append(lines, fmt.Sprintf("%s %s", field, problem))
		}
		sort.Strings(lines)
	case map[string]any:
		for field, problem := range d {
			lines = append(lines, fmt.Sprintf("%s: %v", field, problem))
		}
		sort.Strings(lines)
	default:
		lines = append(lines, fmt.Sprint(d))
	}
	return lines
}
