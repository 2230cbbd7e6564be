package db

import (
	"context"
	"time"

	"github.com/kailas-cloud/prodsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/strategy"
)

// Pinger checks datastore connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProductStore is the read-only product datastore facade.
type ProductStore interface {
	Pinger
	SearchProducts(ctx context.Context, q *ProductQuery) (*ProductPage, error)
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// ProductQuery is a text predicate ANDed with equality filters, paginated.
type ProductQuery struct {
	Text     string
	Strategy strategy.Strategy
	Filters  filter.Filters
	Limit    int
	Offset   int
}

// ProductRow is one raw product row. Nil pointers are NULL columns.
type ProductRow struct {
	ID                  string
	Name                string
	Description         *string
	Keywords            []string
	TrendScore          *float64
	RecommendationScore *float64
	SalesRank           *int64
	Price               *float64
	CreatedAt           *time.Time
}

// ProductPage is one page of matches. Total counts all matches before pagination.
type ProductPage struct {
	Rows  []ProductRow
	Total int
}

// AnalyticsSink stores query popularity.
type AnalyticsSink interface {
	Pinger
	RecordQuery(ctx context.Context, query string, resultCount int, at time.Time) error
	TopQueries(ctx context.Context, limit int) ([]string, error)
	Close()
}
