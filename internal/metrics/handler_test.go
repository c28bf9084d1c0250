package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
)

type fakeProvider struct {
	counters  map[string]int64
	summaries map[string]SummaryView
	err       error
}

func (f *fakeProvider) Snapshot(_ context.Context) (map[string]int64, map[string]SummaryView, error) {
	return f.counters, f.summaries, f.err
}

func TestHandlerWritesSnapshot(t *testing.T) {
	p := &fakeProvider{
		counters:  map[string]int64{"wishes_created_total": 7},
		summaries: map[string]SummaryView{"sweep_deleted_per_run": {Count: 2, Sum: 5, Min: 1, Max: 4}},
	}
	rec := httptest.NewRecorder()
	Handler(p, "")(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Counters  map[string]int64       `json:"counters"`
		Summaries map[string]SummaryView `json:"summaries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Counters["wishes_created_total"] != 7 {
		t.Fatalf("counters = %+v", body.Counters)
	}
	if body.Summaries["sweep_deleted_per_run"].Sum != 5 {
		t.Fatalf("summaries = %+v", body.Summaries)
	}
}

func TestHandlerTokenRequired(t *testing.T) {
	p := &fakeProvider{counters: map[string]int64{}}
	h := Handler(p, "s3cret")

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 401 {
		t.Fatalf("missing token: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	h(rec, req)
	if rec.Code != 401 {
		t.Fatalf("wrong token: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/metrics", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	h(rec, req)
	if rec.Code != 200 {
		t.Fatalf("good token: status = %d", rec.Code)
	}
}

func TestHandlerProviderError(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler(&fakeProvider{err: errors.New("db down")}, "")(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 500 {
		t.Fatalf("status = %d", rec.Code)
	}
}
