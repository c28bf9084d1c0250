package httpx

import (
	"net/http"
	"time"
)

// cleanupResponse reports the outcome of one manually triggered sweep.
type cleanupResponse struct {
	WishesDeleted int `json:"wishes_deleted"`
	ImagesDeleted int `json:"images_deleted"`
	Errors        int `json:"errors"`
}

// summaryResponse is the read-only reclamation snapshot.
type summaryResponse struct {
	ReadyForPurge int    `json:"ready_for_purge"`
	InGracePeriod int    `json:"in_grace_period"`
	TotalWishes   int    `json:"total_wishes"`
	TotalImages   int    `json:"total_images"`
	GracePeriod   string `json:"grace_period"`
	SweepInterval string `json:"sweep_interval"`
}

// authorizeAdmin enforces the admin bearer token. An empty configured token
// leaves the routes open, for single-operator deployments behind a firewall.
func (h *Handler) authorizeAdmin(w http.ResponseWriter, r *http.Request) bool {
	if h.AdminToken == "" {
		return true
	}
	if bearerToken(r) != h.AdminToken {
		h.writeError(r.Context(), w, http.StatusUnauthorized, "unauthorized")
		return false
	}
	return true
}

// handleCleanup implements POST /api/admin/cleanup: run one sweep now,
// regardless of the janitor schedule.
func (h *Handler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodPost {
		h.writeError(ctx, w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !h.authorizeAdmin(w, r) {
		return
	}
	report, err := h.Service.RunSweep(ctx)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cleanupResponse{
		WishesDeleted: report.WishesDeleted,
		ImagesDeleted: report.ImagesDeleted,
		Errors:        report.Errors,
	})
}

// handleCleanupSummary implements GET /api/admin/cleanup/summary.
func (h *Handler) handleCleanupSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodGet {
		h.writeError(ctx, w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !h.authorizeAdmin(w, r) {
		return
	}
	sum, err := h.Service.Summary(ctx)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summaryResponse{
		ReadyForPurge: sum.ReadyForPurge,
		InGracePeriod: sum.InGracePeriod,
		TotalWishes:   sum.TotalWishes,
		TotalImages:   sum.TotalImages,
		GracePeriod:   sum.GracePeriod.String(),
		SweepInterval: formatInterval(sum.SweepInterval),
	})
}

// formatInterval renders the sweep interval, naming the disabled state.
func formatInterval(d time.Duration) string {
	if d <= 0 {
		return "disabled"
	}
	return d.String()
}
