package search

import (
	"context"

	domprod "github.com/kailas-cloud/prodsearch/internal/domain/product"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/result"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/strategy"
	"github.com/kailas-cloud/prodsearch/internal/perfmon"
)

// Executor fetches one page of candidate products and the total match count.
type Executor interface {
	Search(
		ctx context.Context, query string, strat strategy.Strategy,
		filters filter.Filters, limit, offset int,
	) ([]domprod.Item, int, error)
}

// ResultCache stores ranked pages keyed by normalized query and filters.
type ResultCache interface {
	Get(query string, filters filter.Filters) (result.Page, bool)
	Set(query string, filters filter.Filters, page result.Page)
	Clear(pattern string) int
}

// Monitor records per-search latency samples.
type Monitor interface {
	StartTimer() func() float64
	RecordSearch(query string, durationMs float64, resultCount int)
	Metrics() perfmon.Snapshot
	SlowSearches(thresholdMs float64) []perfmon.Sample
	SlowThreshold() float64
}

// Tracker records completed searches for popularity ranking. Must not block.
type Tracker interface {
	Track(ctx context.Context, query string, resultCount int)
}
