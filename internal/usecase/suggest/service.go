package suggest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	domprod "github.com/kailas-cloud/prodsearch/internal/domain/product"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/strategy"
	"github.com/kailas-cloud/prodsearch/internal/logger"
	"github.com/kailas-cloud/prodsearch/internal/metrics"
	"github.com/kailas-cloud/prodsearch/internal/normalize"
)

// Defaults.
const (
	DefaultLimit        = 10
	DefaultMaxLimit     = 20
	DefaultWorkers      = 8
	DefaultTrackTimeout = time.Second

	// MinQueryLength is the shortest normalized query, in runes, that reaches the catalog.
	MinQueryLength = 2

	// candidateFactor widens the catalog page so dedup still fills the limit.
	candidateFactor = 3
)

// Config holds suggestion limits and the tracking pool size.
type Config struct {
	MaxLimit     int
	Workers      int
	TrackTimeout time.Duration
}

// Suggestions is the autocomplete response. Popular is nil unless requested.
type Suggestions struct {
	Suggestions []string
	Popular     []string
}

// Service provides completions, popular queries and fire-and-forget tracking.
type Service struct {
	catalog      Catalog
	analytics    Analytics
	monitor      Monitor
	pool         *ants.Pool
	maxLimit     int
	trackTimeout time.Duration
}

// New creates a Service. analytics can be nil: popular is then empty and Track is a no-op.
func New(catalog Catalog, analytics Analytics, cfg Config) (*Service, error) {
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = DefaultMaxLimit
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.TrackTimeout <= 0 {
		cfg.TrackTimeout = DefaultTrackTimeout
	}
	pool, err := ants.NewPool(cfg.Workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create track pool: %w", err)
	}
	return &Service{
		catalog:      catalog,
		analytics:    analytics,
		pool:         pool,
		maxLimit:     cfg.MaxLimit,
		trackTimeout: cfg.TrackTimeout,
	}, nil
}

// WithMonitor records the latency of every successful Suggest call.
func (s *Service) WithMonitor(m Monitor) *Service {
	s.monitor = m
	return s
}

// Close waits up to timeout for in-flight tracking writes, then releases the pool.
func (s *Service) Close(timeout time.Duration) error {
	if err := s.pool.ReleaseTimeout(timeout); err != nil {
		return fmt.Errorf("release track pool: %w", err)
	}
	return nil
}

// Suggest returns up to limit completions for raw. Queries shorter than
// MinQueryLength return no completions without touching the catalog.
// Popular queries are fetched concurrently when includePopular is set.
func (s *Service) Suggest(ctx context.Context, raw string, limit int, includePopular bool) (Suggestions, error) {
	var elapsed func() float64
	if s.monitor != nil {
		elapsed = s.monitor.StartTimer()
	}
	limit = s.clamp(limit)
	q := normalize.Query(raw)

	out := Suggestions{Suggestions: []string{}}
	g, gctx := errgroup.WithContext(ctx)

	if utf8.RuneCountInString(q) >= MinQueryLength {
		g.Go(func() error {
			items, _, err := s.catalog.Search(gctx, q, strategy.Fuzzy, filter.Filters{}, limit*candidateFactor, 0)
			if err != nil {
				return err //nolint:wrapcheck // DatastoreError is caller-visible unmodified
			}
			out.Suggestions = completions(items, q, limit)
			return nil
		})
	}
	if includePopular {
		g.Go(func() error {
			out.Popular = s.Popular(gctx, limit)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Suggestions{}, err //nolint:wrapcheck // see above
	}
	if elapsed != nil {
		s.monitor.RecordSearch(q, elapsed(), len(out.Suggestions))
	}
	return out, nil
}

// Popular returns the most frequent historical queries. Failures degrade to an empty list.
func (s *Service) Popular(ctx context.Context, limit int) []string {
	limit = s.clamp(limit)
	if s.analytics == nil {
		return []string{}
	}
	top, err := s.analytics.TopQueries(ctx, limit)
	if err != nil {
		logger.FromContext(ctx).Warn("popular queries unavailable", zap.Error(err))
		return []string{}
	}
	if len(top) > limit {
		top = top[:limit]
	}
	return top
}

// Track records a completed search in the background. It never blocks:
// when all workers are busy the write is dropped.
func (s *Service) Track(ctx context.Context, query string, resultCount int) {
	if s.analytics == nil || query == "" {
		return
	}
	log := logger.FromContext(ctx)
	detached := context.WithoutCancel(ctx)

	err := s.pool.Submit(func() {
		tctx, cancel := context.WithTimeout(detached, s.trackTimeout)
		defer cancel()
		if err := s.analytics.RecordQuery(tctx, query, resultCount); err != nil {
			metrics.SuggestTrackTotal.WithLabelValues("error").Inc()
			log.Warn("track query failed", zap.String("query", query), zap.Error(err))
			return
		}
		metrics.SuggestTrackTotal.WithLabelValues("ok").Inc()
	})
	if err != nil {
		metrics.SuggestTrackTotal.WithLabelValues("dropped").Inc()
		if !errors.Is(err, ants.ErrPoolOverload) {
			log.Warn("track query not dispatched", zap.Error(err))
		}
	}
}

func (s *Service) clamp(limit int) int {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return min(limit, s.maxLimit)
}

// completions orders prefix matches before substring matches, names before
// keywords, and drops case-insensitive duplicates.
func completions(items []domprod.Item, q string, limit int) []string {
	seen := make(map[string]struct{}, limit)
	out := make([]string, 0, limit)
	add := func(text string, prefix bool) {
		if len(out) >= limit {
			return
		}
		lower := strings.ToLower(text)
		if !strings.Contains(lower, q) || strings.HasPrefix(lower, q) != prefix {
			return
		}
		if _, dup := seen[lower]; dup {
			return
		}
		seen[lower] = struct{}{}
		out = append(out, text)
	}

	for _, prefix := range []bool{true, false} {
		for _, it := range items {
			add(it.Name(), prefix)
		}
		for _, it := range items {
			for i := range it.KeywordCount() {
				add(it.Keyword(i), prefix)
			}
		}
	}
	return out
}
