// Copyright 2026 Origin Steward Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/origin-steward/steward/search"
	"github.com/origin-steward/steward/storage"
)

const (
	defaultSearchHits    = 10
	maxSearchHits        = 100
	defaultRecentLimit   = 20
	maxRecentLimit       = 200
	statsHistogramDays   = 30
	defaultReadTimeout   = 10 * time.Second
	defaultWriteTimeout  = 30 * time.Second
	defaultRequestBodyKB = 256
)

// Server serves the search and stats HTTP API.
type Server struct {
	searcher  *search.Searcher
	drops     storage.DropRepository
	artifacts storage.ArtifactRepository
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets the logger used for request handling.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// NewServer creates the HTTP API server.
func NewServer(
	searcher *search.Searcher,
	drops storage.DropRepository,
	artifacts storage.ArtifactRepository,
	opts ...Option,
) (*Server, error) {
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if drops == nil {
		return nil, ErrDropRepositoryRequired
	}
	if artifacts == nil {
		return nil, ErrArtifactRepositoryRequired
	}

	s := &Server{
		searcher:  searcher,
		drops:     drops,
		artifacts: artifacts,
		logger:    slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Router builds the chi router with all API routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Post("/search", s.handleSearch)
	r.Get("/stats", s.handleStats)
	r.Get("/artifacts/recent", s.handleRecentArtifacts)
	r.Get("/healthz", s.handleHealthz)

	return r
}

// ListenAndServe runs the API on addr until the server errors.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}
	s.logger.Info("http api listening", "addr", addr)
	return srv.ListenAndServe()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// handleSearch handles POST /search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	body := http.MaxBytesReader(w, r.Body, defaultRequestBodyKB*1024)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	k := req.K
	if k <= 0 {
		k = defaultSearchHits
	}
	if k > maxSearchHits {
		k = maxSearchHits
	}

	filters := req.Filters.toDomain()
	results, err := s.searcher.Search(r.Context(), req.Query, k, &filters)
	if err != nil {
		s.logger.Error("search failed", "err", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	hits := make([]SearchHit, 0, len(results))
	for _, result := range results {
		hits = append(hits, SearchHit{
			Artifact: exportArtifact(result.Artifact),
			Score:    result.Score,
		})
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: hits})
}

// handleStats handles GET /stats. Every value is computed from the store at
// request time; there is no cached pipeline state to go stale.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	statusCounts, err := s.drops.CountDropsByStatus(ctx)
	if err != nil {
		s.logger.Error("counting drops failed", "err", err)
		writeError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}

	artifactCount, err := s.artifacts.CountArtifacts(ctx)
	if err != nil {
		s.logger.Error("counting artifacts failed", "err", err)
		writeError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}

	daily, err := s.drops.GetDailyDropCounts(ctx, statsHistogramDays)
	if err != nil {
		s.logger.Error("daily counts failed", "err", err)
		writeError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}

	lastReceived, err := s.drops.LastReceivedAt(ctx)
	if err != nil {
		s.logger.Error("last received lookup failed", "err", err)
		writeError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}

	newest, err := s.artifacts.ListRecentArtifacts(ctx, 1)
	if err != nil {
		s.logger.Error("newest artifact lookup failed", "err", err)
		writeError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}

	resp := StatsResponse{
		Drops:     make(map[string]int, len(statusCounts)),
		Artifacts: artifactCount,
		Daily:     make([]DailyBucket, 0, len(daily)),
	}
	for status, count := range statusCounts {
		resp.Drops[status.String()] = count
	}
	for _, bucket := range daily {
		resp.Daily = append(resp.Daily, DailyBucket{Date: bucket.Date, Count: bucket.Count})
	}
	if !lastReceived.IsZero() {
		resp.LastReceivedAt = &lastReceived
	}
	if len(newest) > 0 {
		resp.LastArtifactAt = &newest[0].CreatedAt
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleRecentArtifacts handles GET /artifacts/recent.
func (s *Server) handleRecentArtifacts(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	artifacts, err := s.artifacts.ListRecentArtifacts(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing artifacts failed", "err", err)
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}

	exports := make([]ArtifactExport, 0, len(artifacts))
	for _, artifact := range artifacts {
		exports = append(exports, exportArtifact(artifact))
	}
	writeJSON(w, http.StatusOK, exports)
}

// handleHealthz handles GET /healthz.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.artifacts.CountArtifacts(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
