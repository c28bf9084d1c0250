package httpx

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hareeshworks/wishaday/internal/app"
	"github.com/hareeshworks/wishaday/internal/domain"
)

func TestViewWishSuccess(t *testing.T) {
	remaining := 2
	svc := &mockService{viewFn: func(_ context.Context, slug string) (*app.ViewPayload, error) {
		if slug != "aB3dE5fG" {
			t.Fatalf("slug = %q", slug)
		}
		return &app.ViewPayload{
			Title:          "Happy Birthday",
			Message:        "Make a wish!",
			Theme:          "confetti",
			Images:         []string{"http://localhost:8080/media/1/cake.jpg"},
			RemainingViews: &remaining,
		}, nil
	}}
	h := newTestHandler(svc)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/wishes/aB3dE5fG", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp viewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Title != "Happy Birthday" || resp.RemainingViews == nil || *resp.RemainingViews != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if len(resp.Images) != 1 {
		t.Fatalf("images = %v", resp.Images)
	}
}

func TestViewWishGone(t *testing.T) {
	svc := &mockService{viewFn: func(context.Context, string) (*app.ViewPayload, error) {
		return nil, &domain.GoneError{Reason: domain.ExpiredByViews}
	}}
	h := newTestHandler(svc)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/wishes/aB3dE5fG", nil))
	if rec.Code != 410 {
		t.Fatalf("status = %d", rec.Code)
	}
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Reason != "views" {
		t.Fatalf("reason = %q", body.Reason)
	}
}

func TestViewWishNotFound(t *testing.T) {
	svc := &mockService{viewFn: func(context.Context, string) (*app.ViewPayload, error) {
		return nil, domain.ErrNotFound
	}}
	h := newTestHandler(svc)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/wishes/aB3dE5fG", nil))
	if rec.Code != 404 {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestDeleteWish(t *testing.T) {
	deleted := ""
	svc := &mockService{deleteFn: func(_ context.Context, slug string) error {
		deleted = slug
		return nil
	}}
	h := newTestHandler(svc)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/wishes/aB3dE5fG", nil))
	if rec.Code != 204 {
		t.Fatalf("status = %d", rec.Code)
	}
	if deleted != "aB3dE5fG" {
		t.Fatalf("deleted slug = %q", deleted)
	}
}

func TestDeleteWishAlreadyGone(t *testing.T) {
	svc := &mockService{deleteFn: func(context.Context, string) error { return domain.ErrNotFound }}
	h := newTestHandler(svc)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/wishes/aB3dE5fG", nil))
	if rec.Code != 404 {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStatusWish(t *testing.T) {
	remaining := 1
	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	svc := &mockService{statusFn: func(context.Context, string) (*app.StatusPayload, error) {
		return &app.StatusPayload{
			Status:         app.StatusActive,
			RemainingViews: &remaining,
			ExpiresAt:      &exp,
		}, nil
	}}
	h := newTestHandler(svc)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/wishes/aB3dE5fG/status", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "active" || resp.RemainingViews == nil || *resp.RemainingViews != 1 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestStatusWishDeleted(t *testing.T) {
	when := time.Now().UTC().Truncate(time.Second)
	svc := &mockService{statusFn: func(context.Context, string) (*app.StatusPayload, error) {
		return &app.StatusPayload{Status: app.StatusDeleted, DeletedAt: &when}, nil
	}}
	h := newTestHandler(svc)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/wishes/aB3dE5fG/status", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "deleted" || resp.DeletedAt == nil {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestWishBadSubpath(t *testing.T) {
	h := newTestHandler(&mockService{})
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/wishes/aB3dE5fG/extra", nil))
	if rec.Code != 404 {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestWishMethodNotAllowed(t *testing.T) {
	h := newTestHandler(&mockService{})
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("PUT", "/api/wishes/aB3dE5fG", nil))
	if rec.Code != 405 {
		t.Fatalf("status = %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("POST", "/api/wishes/aB3dE5fG/status", nil))
	if rec.Code != 405 {
		t.Fatalf("status = %d", rec.Code)
	}
}
