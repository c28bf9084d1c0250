package httpx

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hareeshworks/wishaday/internal/app"
)

// createRequest is the JSON body of POST /api/wishes. At least one of
// expires_at and max_views must be set; the service re-checks that rule.
type createRequest struct {
	Title     string     `json:"title" validate:"required,max=120"`
	Message   string     `json:"message" validate:"required,max=4000"`
	Theme     string     `json:"theme" validate:"omitempty,alphanum,max=32"`
	ExpiresAt *time.Time `json:"expires_at"`
	MaxViews  *int       `json:"max_views" validate:"omitempty,gte=1,lte=1000"`
	Images    []string   `json:"images" validate:"omitempty,max=5,dive,required,max=255"`
}

// createResponse is returned on 201 Created.
type createResponse struct {
	Slug      string `json:"slug"`
	PublicURL string `json:"public_url"`
}

// handleCreateWish implements POST /api/wishes.
func (h *Handler) handleCreateWish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodPost {
		h.writeError(ctx, w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if r.URL.Path != "/api/wishes" { // disallow trailing slash variants
		h.writeError(ctx, w, http.StatusNotFound, "not found")
		return
	}
	ip := clientIP(r)
	if h.Limiter != nil {
		ok, resetAt := h.Limiter.Allow(ip)
		if !ok {
			w.Header().Set("Retry-After", strconv.FormatInt(int64(time.Until(resetAt).Seconds())+1, 10))
			h.writeError(ctx, w, http.StatusTooManyRequests, "daily creation limit reached")
			return
		}
	}
	body := r.Body
	if h.MaxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, h.MaxBody)
	}
	defer body.Close()
	var req createRequest
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now()) {
		h.writeError(ctx, w, http.StatusBadRequest, "expires_at must be in the future")
		return
	}
	res, err := h.Service.Create(ctx, app.CreateInput{
		Title:     req.Title,
		Message:   req.Message,
		Theme:     req.Theme,
		ExpiresAt: req.ExpiresAt,
		MaxViews:  req.MaxViews,
		IPHash:    hashIP(ip),
		Images:    req.Images,
	})
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, createResponse{Slug: res.Slug, PublicURL: res.PublicURL})
}

// clientIP resolves the requesting client's IP, honoring the first entry of
// X-Forwarded-For when a proxy set it.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// hashIP stores only a digest of the creator's IP, never the raw address.
func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])
}
