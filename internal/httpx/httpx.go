// Package httpx holds the JSON helpers shared by all handlers and the single
// place where errors are translated into HTTP responses.
package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-staff-go/internal/apperr"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

// WithRequestID stores the request id in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteMessage writes {"message": msg}.
func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"message": msg})
}

// WriteError maps err to a status via its apperr kind. Internal errors are
// logged with the request context and answered with a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, logger *zap.SugaredLogger, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if kind == apperr.KindInternal {
		logger.Errorw("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestID(r.Context()),
			"err", err,
		)
	} else {
		logger.Debugw("request rejected",
			"method", r.Method,
			"path", r.URL.Path,
			"kind", kind.String(),
			"err", err,
		)
	}
	WriteMessage(w, status, apperr.MessageOf(err))
}

// DecodeJSON decodes the request body into dst. Decode failures are
// classified as invalid input.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "Invalid request body", fmt.Errorf("decode json: %w", err))
	}
	return nil
}

// BaseURL returns scheme://host for the request, honouring X-Forwarded-Proto.
func BaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + r.Host
}
