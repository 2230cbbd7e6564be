package product

import (
	"context"
	"testing"

	"github.com/kailas-cloud/prodsearch/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchFn func(ctx context.Context, q *db.ProductQuery) (*db.ProductPage, error)
	calls    int
}

func (m *mockStore) SearchProducts(ctx context.Context, q *db.ProductQuery) (*db.ProductPage, error) {
	m.calls++
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &db.ProductPage{Rows: []db.ProductRow{}}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, 0), ms
}

func ptr[T any](v T) *T { return &v }
