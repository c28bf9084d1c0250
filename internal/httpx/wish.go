package httpx

import (
	"net/http"
	"strings"
	"time"
)

// viewResponse is the body of a successful GET /api/wishes/{slug}.
type viewResponse struct {
	Title          string   `json:"title"`
	Message        string   `json:"message"`
	Theme          string   `json:"theme"`
	Images         []string `json:"images,omitempty"`
	RemainingViews *int     `json:"remaining_views,omitempty"`
}

// statusResponse is the body of GET /api/wishes/{slug}/status.
type statusResponse struct {
	Status         string     `json:"status"`
	ExpiryReason   string     `json:"expiry_reason,omitempty"`
	RemainingViews *int       `json:"remaining_views,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

// handleWish dispatches /api/wishes/{slug} and /api/wishes/{slug}/status.
func (h *Handler) handleWish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rest := strings.TrimPrefix(r.URL.Path, "/api/wishes/")
	slug, sub, hasSub := strings.Cut(rest, "/")
	if slug == "" || (hasSub && sub != "status") {
		h.writeError(ctx, w, http.StatusNotFound, "not found")
		return
	}
	switch {
	case hasSub: // /api/wishes/{slug}/status
		if r.Method != http.MethodGet {
			h.writeError(ctx, w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleStatus(w, r, slug)
	case r.Method == http.MethodGet:
		h.handleView(w, r, slug)
	case r.Method == http.MethodDelete:
		h.handleDelete(w, r, slug)
	default:
		h.writeError(ctx, w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleView runs the view protocol: a 200 response consumes one view; an
// expired wish answers 410 with the reason that destroyed it.
func (h *Handler) handleView(w http.ResponseWriter, r *http.Request, slug string) {
	payload, err := h.Service.View(r.Context(), slug)
	if err != nil {
		h.mapServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, viewResponse{
		Title:          payload.Title,
		Message:        payload.Message,
		Theme:          payload.Theme,
		Images:         payload.Images,
		RemainingViews: payload.RemainingViews,
	})
}

// handleDelete tombstones the wish on the owner's request.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, slug string) {
	if err := h.Service.Delete(r.Context(), slug); err != nil {
		h.mapServiceError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStatus reports lifecycle state without consuming a view.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request, slug string) {
	st, err := h.Service.Status(r.Context(), slug)
	if err != nil {
		h.mapServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, statusResponse{
		Status:         string(st.Status),
		ExpiryReason:   string(st.ExpiryReason),
		RemainingViews: st.RemainingViews,
		ExpiresAt:      st.ExpiresAt,
		DeletedAt:      st.DeletedAt,
	})
}
