package search

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	domprod "github.com/kailas-cloud/prodsearch/internal/domain/product"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/request"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/result"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/weights"
	"github.com/kailas-cloud/prodsearch/internal/logger"
	"github.com/kailas-cloud/prodsearch/internal/metrics"
	"github.com/kailas-cloud/prodsearch/internal/normalize"
	"github.com/kailas-cloud/prodsearch/internal/perfmon"
	"github.com/kailas-cloud/prodsearch/internal/ranking"
)

// Reserved cache-key entries. User filter names cannot start with '_'.
const (
	keyLimit    = "_limit"
	keyOffset   = "_offset"
	keyStrategy = "_strategy"
	keyMode     = "_mode"
	keyWeights  = "_weights"
)

// Service runs the search pipeline: normalize, cache lookup, datastore
// search, rank, cache store, record.
type Service struct {
	exec         Executor
	cache        ResultCache
	monitor      Monitor
	tracker      Tracker
	weights      weights.Ranking
	fieldWeights weights.Field
	now          func() time.Time
}

// New creates a search service. cache and monitor can be nil.
func New(exec Executor, cache ResultCache, monitor Monitor) *Service {
	return &Service{
		exec:         exec,
		cache:        cache,
		monitor:      monitor,
		weights:      weights.Default(),
		fieldWeights: weights.DefaultField(),
		now:          time.Now,
	}
}

// WithTracker sets the fire-and-forget query tracker.
func (s *Service) WithTracker(t Tracker) *Service {
	s.tracker = t
	return s
}

// WithWeights replaces the base ranking and multi-field coefficients.
func (s *Service) WithWeights(r weights.Ranking, f weights.Field) *Service {
	s.weights = r
	s.fieldWeights = f
	return s
}

// WithClock overrides the reference time used for recency scoring.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Search returns a ranked page. Validation failures are *domain.ValidationError,
// datastore failures are *domain.DatastoreError; both are returned as is.
func (s *Service) Search(ctx context.Context, req *request.Request) (result.Page, error) {
	start := time.Now()
	var stop func() float64
	if s.monitor != nil {
		stop = s.monitor.StartTimer()
	}

	q := normalize.Query(req.Query())
	if q == "" {
		countRequest(req, "invalid")
		return result.Page{}, domain.NewValidationError("query", "is required")
	}
	ctx, log := logger.With(ctx, zap.String("query", q))

	ranked := s.weights.Apply(req.Weights())
	key := cacheFilters(req, ranked)

	if s.cache != nil {
		if page, ok := s.cache.Get(q, key); ok {
			hit := page.FromCache()
			s.finish(ctx, q, req, &hit, start, stop)
			return hit, nil
		}
	}

	items, total, err := s.exec.Search(ctx, q, req.Strategy(), req.Filters(), req.Limit(), req.Offset())
	if err != nil {
		countRequest(req, errorStatus(err))
		log.Warn("search failed",
			zap.String("strategy", string(req.Strategy())),
			zap.Error(err),
		)
		return result.Page{}, err //nolint:wrapcheck // DatastoreError is caller-visible unmodified
	}

	page := result.New(s.rank(items, q, req.Mode(), ranked), total, req.Limit(), req.Offset())

	if s.cache != nil {
		s.cache.Set(q, key, page)
	}
	s.finish(ctx, q, req, &page, start, stop)
	return page, nil
}

func (s *Service) rank(items []domprod.Item, q string, m mode.Mode, w weights.Ranking) []domprod.Scored {
	if m == mode.Weighted {
		return ranking.RankWeighted(items, q, s.fieldWeights)
	}
	return ranking.Rank(items, q, w, s.now())
}

// finish records the sample and dispatches tracking. Runs for cache hits too.
func (s *Service) finish(
	ctx context.Context, q string, req *request.Request,
	page *result.Page, start time.Time, stop func() float64,
) {
	if stop != nil {
		s.monitor.RecordSearch(q, stop(), page.Count())
	}

	cacheLabel := "miss"
	if page.Cached() {
		cacheLabel = "hit"
	}
	metrics.SearchDuration.WithLabelValues(string(req.Mode()), cacheLabel).Observe(time.Since(start).Seconds())
	countRequest(req, "ok")

	if s.tracker != nil {
		s.tracker.Track(ctx, q, page.Total())
	}

	logger.FromContext(ctx).Debug("search completed",
		zap.String("mode", string(req.Mode())),
		zap.Bool("cached", page.Cached()),
		zap.Int("count", page.Count()),
		zap.Int("total", page.Total()),
	)
}

// ClearCache removes every cached page, or only keys containing pattern.
func (s *Service) ClearCache(ctx context.Context, pattern string) int {
	if s.cache == nil {
		return 0
	}
	n := s.cache.Clear(pattern)
	logger.FromContext(ctx).Info("search cache cleared",
		zap.String("pattern", pattern),
		zap.Int("removed", n),
	)
	return n
}

// Report is the performance monitor view exposed to operators.
type Report struct {
	perfmon.Snapshot
	SlowThresholdMs float64
	SlowSearches    []perfmon.Sample
}

// Metrics returns the monitor snapshot. A negative or NaN thresholdMs uses the configured threshold.
func (s *Service) Metrics(thresholdMs float64) Report {
	if s.monitor == nil {
		return Report{Snapshot: perfmon.Snapshot{RecentSearches: []perfmon.Sample{}}, SlowSearches: []perfmon.Sample{}}
	}
	if thresholdMs < 0 || math.IsNaN(thresholdMs) {
		thresholdMs = s.monitor.SlowThreshold()
	}
	return Report{
		Snapshot:        s.monitor.Metrics(),
		SlowThresholdMs: thresholdMs,
		SlowSearches:    s.monitor.SlowSearches(thresholdMs),
	}
}

// cacheFilters extends the user filters with everything else that changes the page.
func cacheFilters(req *request.Request, w weights.Ranking) filter.Filters {
	f := req.Filters().
		With(keyLimit, filter.String(strconv.Itoa(req.Limit()))).
		With(keyOffset, filter.String(strconv.Itoa(req.Offset()))).
		With(keyStrategy, filter.String(string(req.Strategy()))).
		With(keyMode, filter.String(string(req.Mode())))
	if req.Mode() == mode.Ranked {
		f = f.With(keyWeights, filter.String(w.Encode()))
	}
	return f
}

func countRequest(req *request.Request, status string) {
	metrics.SearchRequestsTotal.WithLabelValues(string(req.Mode()), string(req.Strategy()), status).Inc()
}

func errorStatus(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case domain.IsDeadline(err):
		return "timeout"
	case errors.Is(err, domain.ErrDatastore):
		return "unavailable"
	default:
		return "error"
	}
}
