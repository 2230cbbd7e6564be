package product

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/prodsearch/internal/db"
	"github.com/kailas-cloud/prodsearch/internal/domain"
	domprod "github.com/kailas-cloud/prodsearch/internal/domain/product"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/strategy"
)

const opSearch = "search products"

// store is the consumer interface for product reads (ISP).
type store interface {
	SearchProducts(ctx context.Context, q *db.ProductQuery) (*db.ProductPage, error)
}

// Repo implements usecase/search.Executor.
type Repo struct {
	store   store
	timeout time.Duration
}

// New creates a product repository. A positive timeout bounds every datastore call.
func New(s store, timeout time.Duration) *Repo {
	return &Repo{store: s, timeout: timeout}
}

// Search fetches one page of matching products and the total match count.
// Zero matches is an empty slice with total 0; every failure is a *domain.DatastoreError.
func (r *Repo) Search(
	ctx context.Context, query string, strat strategy.Strategy,
	filters filter.Filters, limit, offset int,
) ([]domprod.Item, int, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	page, err := r.store.SearchProducts(ctx, &db.ProductQuery{
		Text:     query,
		Strategy: strat,
		Filters:  filters,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, 0, domain.NewDatastoreError(opSearch, classify(err), err)
	}

	items := make([]domprod.Item, 0, len(page.Rows))
	for i := range page.Rows {
		it, err := toItem(&page.Rows[i])
		if err != nil {
			return nil, 0, domain.NewDatastoreError(opSearch, domain.DatastoreQueryFailed, fmt.Errorf("malformed row: %w", err))
		}
		items = append(items, it)
	}
	return items, page.Total, nil
}

func classify(err error) domain.DatastoreClass {
	if errors.Is(err, db.ErrUnavailable) {
		return domain.DatastoreUnavailable
	}
	return domain.DatastoreQueryFailed
}

func toItem(row *db.ProductRow) (domprod.Item, error) {
	opts := make([]domprod.Option, 0, 7)
	if row.Description != nil {
		opts = append(opts, domprod.WithDescription(*row.Description))
	}
	if len(row.Keywords) > 0 {
		opts = append(opts, domprod.WithKeywords(row.Keywords...))
	}
	if row.TrendScore != nil {
		opts = append(opts, domprod.WithTrendScore(*row.TrendScore))
	}
	if row.RecommendationScore != nil {
		opts = append(opts, domprod.WithRecommendationScore(*row.RecommendationScore))
	}
	if row.SalesRank != nil {
		opts = append(opts, domprod.WithSalesRank(*row.SalesRank))
	}
	if row.Price != nil {
		opts = append(opts, domprod.WithPrice(*row.Price))
	}
	if row.CreatedAt != nil {
		opts = append(opts, domprod.WithCreatedAt(*row.CreatedAt))
	}
	return domprod.New(row.ID, row.Name, opts...)
}
