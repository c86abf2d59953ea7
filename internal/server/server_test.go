package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/docsections/internal/aggregate"
)

type stubService struct {
	resp *aggregate.Response
	err  error
	got  string
}

func (s *stubService) ProductDocuments(_ context.Context, model string) (*aggregate.Response, error) {
	s.got = model
	return s.resp, s.err
}

func TestProductDocuments_OK(t *testing.T) {
	svc := &stubService{resp: &aggregate.Response{
		ModelNumber:    "RT-10",
		TotalDocuments: 1,
		DocumentsByType: []aggregate.Group{{
			TypeID: 7, TypeName: "Key Features", Slug: "key-features",
			Documents: []aggregate.DocumentView{{ID: 1, FileName: "kf.pdf", URL: "https://cdn/kf.pdf"}},
		}},
	}}
	var logs bytes.Buffer
	h := New(svc, zerolog.New(&logs))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/RT-10/documents", nil))
	resp := rec.Result()
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		t.Fatalf("status=%d ct=%q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["model_number"] != "RT-10" || body["total_documents"] != float64(1) {
		t.Fatalf("unexpected body %v", body)
	}
	groups := body["documents_by_type"].([]any)
	g := groups[0].(map[string]any)
	if _, ok := g["formatted_sections"]; ok {
		t.Fatalf("absent sections must be omitted: %v", g)
	}
	if svc.got != "RT-10" {
		t.Fatalf("model param = %q", svc.got)
	}
	if !strings.Contains(logs.String(), `"status":200`) {
		t.Fatalf("access log missing: %s", logs.String())
	}
}

func TestProductDocuments_StoreFailure(t *testing.T) {
	srv := httptest.NewServer(New(&stubService{err: errors.New("db down")}, zerolog.Nop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/products/RT-10/documents")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var body map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["error"] == "" || strings.Contains(body["error"], "db down") {
		t.Fatalf("unexpected error body %v", body)
	}
}

func TestHealthzAndNotFound(t *testing.T) {
	h := New(&stubService{}, zerolog.Nop())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
