// Package server exposes the product documents query over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/hyperifyio/docsections/internal/aggregate"
)

// DocumentService is the query the HTTP layer serves.
type DocumentService interface {
	ProductDocuments(ctx context.Context, modelNumber string) (*aggregate.Response, error)
}

// New returns the router. Every request is logged through logger.
func New(svc DocumentService, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(hlog.NewHandler(logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/products/{model_number}/documents", func(w http.ResponseWriter, req *http.Request) {
		model := strings.TrimSpace(chi.URLParam(req, "model_number"))
		if model == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "model number required"})
			return
		}
		resp, err := svc.ProductDocuments(req.Context(), model)
		if err != nil {
			hlog.FromRequest(req).Error().Err(err).Str("model_number", model).Msg("product documents failed")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch documents"})
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
