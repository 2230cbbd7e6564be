package chi

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/request"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/result"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/strategy"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/weights"
	"github.com/kailas-cloud/prodsearch/internal/logger"
	"github.com/kailas-cloud/prodsearch/internal/metrics"
	healthuc "github.com/kailas-cloud/prodsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/prodsearch/internal/usecase/search"
	suggestuc "github.com/kailas-cloud/prodsearch/internal/usecase/suggest"
)

// maxBodyBytes bounds the POST /search body.
const maxBodyBytes = 64 << 10

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server holds the HTTP handlers.
type Server struct {
	search        *searchuc.Service
	suggest       *suggestuc.Service
	health        *healthuc.Service
	policy        request.Policy
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. policy bounds incoming search requests.
func NewServer(
	search *searchuc.Service,
	suggest *suggestuc.Service,
	health *healthuc.Service,
	policy request.Policy,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:  search,
		suggest: suggest,
		health:  health,
		policy:  policy,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		deadlineHandler,
		sentinelHandler(domain.ErrDatastore, http.StatusServiceUnavailable, CodeSearchUnavailable, "search service unavailable"),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound, "not found"),
		sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, CodeNotImplemented, "not implemented"),
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Post("/search", s.Search)
	r.Get("/search/metrics", s.SearchMetrics)
	r.Delete("/search/cache", s.ClearCache)
	r.Get("/suggest", s.Suggest)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req, err := s.searchRequestFromAPI(&body)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	page, err := s.search.Search(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if page.Cached() {
		w.Header().Set(metrics.CacheHeader, metrics.CacheHit)
	} else {
		w.Header().Set(metrics.CacheHeader, metrics.CacheMiss)
	}
	writeJSON(w, http.StatusOK, searchResponseFromPage(&page))
}

// Suggest handles GET /suggest?q=&limit=&popular=.
func (s *Server) Suggest(w http.ResponseWriter, r *http.Request) {
	var (
		q       string
		limit   *int
		popular *bool
	)
	params := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "q", params, &q); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter q: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", params, &limit); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter limit: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "popular", params, &popular); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter popular: "+err.Error())
		return
	}

	includePopular := popular != nil && *popular
	res, err := s.suggest.Suggest(r.Context(), q, derefInt(limit), includePopular)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := SuggestResponse{Suggestions: res.Suggestions}
	if includePopular {
		resp.Popular = &res.Popular
	}
	writeJSON(w, http.StatusOK, resp)
}

// SearchMetrics handles GET /search/metrics?slow_threshold_ms=.
func (s *Server) SearchMetrics(w http.ResponseWriter, r *http.Request) {
	var threshold *float64
	if err := runtime.BindQueryParameter("form", true, false, "slow_threshold_ms", r.URL.Query(), &threshold); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter slow_threshold_ms: "+err.Error())
		return
	}
	th := -1.0
	if threshold != nil {
		if *threshold < 0 || math.IsNaN(*threshold) || math.IsInf(*threshold, 0) {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "slow_threshold_ms must be a non-negative number")
			return
		}
		th = *threshold
	}

	rep := s.search.Metrics(th)
	writeJSON(w, http.StatusOK, MetricsResponse{
		Snapshot:        rep.Snapshot,
		SlowThresholdMs: rep.SlowThresholdMs,
		SlowSearches:    rep.SlowSearches,
	})
}

// ClearCache handles DELETE /search/cache?pattern=.
func (s *Server) ClearCache(w http.ResponseWriter, r *http.Request) {
	var pattern string
	if err := runtime.BindQueryParameter("form", true, false, "pattern", r.URL.Query(), &pattern); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter pattern: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, CacheClearResponse{Cleared: s.search.ClearCache(r.Context(), pattern)})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// validationHandler exposes the field and reason, which never carry internals.
func validationHandler(w http.ResponseWriter, err error) bool {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	writeError(w, http.StatusBadRequest, CodeValidationFailed, ve.Error())
	return true
}

func deadlineHandler(w http.ResponseWriter, err error) bool {
	if !domain.IsDeadline(err) {
		return false
	}
	writeError(w, http.StatusGatewayTimeout, CodeSearchTimeout, "search timed out")
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode, msg string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func (s *Server) searchRequestFromAPI(body *SearchRequest) (request.Request, error) {
	filters, err := filter.New(body.Filters)
	if err != nil {
		return request.Request{}, domain.NewValidationError("filters", "%v", err)
	}

	var w weights.Partial
	if body.Weights != nil {
		w = *body.Weights
	}

	r, err := request.New(
		s.policy,
		body.Query,
		filters,
		derefInt(body.Limit),
		derefInt(body.Offset),
		strategy.Strategy(derefString(body.Strategy)),
		mode.Mode(derefString(body.Mode)),
		w,
	)
	if err != nil {
		return request.Request{}, err //nolint:wrapcheck // ValidationError is mapped to 400 as is
	}
	return r, nil
}

func searchResponseFromPage(p *result.Page) SearchResponse {
	items := make([]SearchResultItem, len(p.Items()))
	for i, sc := range p.Items() {
		item := SearchResultItem{
			ID:    sc.ID(),
			Name:  sc.Name(),
			Score: sc.Score(),
		}
		if d := sc.Description(); d != "" {
			item.Description = &d
		}
		if sc.KeywordCount() > 0 {
			item.Keywords = sc.Keywords()
		}
		if v, ok := sc.TrendScore(); ok {
			item.TrendScore = &v
		}
		if v, ok := sc.RecommendationScore(); ok {
			item.RecommendationScore = &v
		}
		if v, ok := sc.SalesRank(); ok {
			item.SalesRank = &v
		}
		if v, ok := sc.Price(); ok {
			item.Price = &v
		}
		if v, ok := sc.CreatedAt(); ok {
			t := v.UTC()
			item.CreatedAt = &t
		}
		items[i] = item
	}
	return SearchResponse{
		Results: items,
		Total:   p.Total(),
		Count:   p.Count(),
		Limit:   p.Limit(),
		Offset:  p.Offset(),
		Cached:  p.Cached(),
	}
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
