package suggest

import (
	"context"

	domprod "github.com/kailas-cloud/prodsearch/internal/domain/product"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/strategy"
)

// Catalog looks up candidate products for completions.
type Catalog interface {
	Search(
		ctx context.Context, query string, strat strategy.Strategy,
		filters filter.Filters, limit, offset int,
	) ([]domprod.Item, int, error)
}

// Monitor records per-request latency samples. Shared with the search pipeline.
type Monitor interface {
	StartTimer() func() float64
	RecordSearch(query string, durationMs float64, resultCount int)
}

// Analytics is the query popularity collaborator.
type Analytics interface {
	RecordQuery(ctx context.Context, query string, resultCount int) error
	TopQueries(ctx context.Context, limit int) ([]string, error)
}
