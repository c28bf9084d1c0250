package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/hareeshworks/wishaday/internal/app"
	"github.com/hareeshworks/wishaday/internal/domain"
)

// errorBody is the JSON shape of every error response. Reason is set only
// for 410 Gone, naming which limit destroyed the wish.
type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// writeJSON encodes v with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body with the given status code.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code int, msg string) {
	h.writeJSON(w, code, errorBody{Error: msg})
	if cid, ok := GetCorrelationID(ctx); ok {
		slog.Debug("wrote error response", "cid", cid, "status", code, "msg", msg)
	}
}

// mapServiceError maps domain/store/service errors to HTTP responses.
func (h *Handler) mapServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	cid, _ := GetCorrelationID(ctx)
	var gone *domain.GoneError
	var vErrs validator.ValidationErrors
	switch {
	case errors.As(err, &gone):
		slog.Info("service error", "cid", cid, "code", "gone", "reason", string(gone.Reason))
		h.writeJSON(w, http.StatusGone, errorBody{Error: "gone", Reason: string(gone.Reason)})
	case errors.Is(err, domain.ErrGone):
		slog.Info("service error", "cid", cid, "code", "gone")
		h.writeJSON(w, http.StatusGone, errorBody{Error: "gone"})
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidSlug):
		slog.Info("service error", "cid", cid, "code", "not_found")
		h.writeError(ctx, w, http.StatusNotFound, "not found")
	case errors.Is(err, app.ErrNoExpiryLimit):
		slog.Warn("service error", "cid", cid, "code", "no_expiry_limit")
		h.writeError(ctx, w, http.StatusBadRequest, "either expires_at or max_views must be set")
	case errors.As(err, &vErrs):
		slog.Warn("service error", "cid", cid, "code", "validation")
		h.writeError(ctx, w, http.StatusBadRequest, "invalid request")
	default:
		// Internal / unexpected: do not echo the raw error string.
		slog.Error("unhandled service error", "cid", cid, "code", "unhandled")
		h.writeError(ctx, w, http.StatusInternalServerError, "internal")
	}
}
