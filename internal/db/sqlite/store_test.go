package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/prodsearch/internal/db"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/strategy"
)

func ptr[T any](v T) *T { return &v }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(context.Background(), Config{DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Upsert(context.Background(),
		Product{
			ProductRow: db.ProductRow{
				ID: "p1", Name: "Wireless Mouse", Description: ptr("Ergonomic 2.4GHz mouse"),
				Keywords: []string{"wireless", "mouse"}, TrendScore: ptr(90.0), SalesRank: ptr(int64(12)),
				CreatedAt: &created,
			},
			Attrs: map[string]any{"platform": "amazon", "in_stock": true},
		},
		Product{
			ProductRow: db.ProductRow{ID: "p2", Name: "USB Mouse", Keywords: []string{"usb"}, TrendScore: ptr(40.0)},
			Attrs:      map[string]any{"platform": "ebay", "in_stock": false},
		},
		Product{
			ProductRow: db.ProductRow{ID: "p3", Name: "Mechanical Keyboard", Description: ptr("Pairs with any mouse")},
			Attrs:      map[string]any{"platform": "amazon", "in_stock": true},
		},
		Product{
			ProductRow: db.ProductRow{ID: "p4", Name: "100% Cotton Pad"},
		},
	))
	return s
}

func search(t *testing.T, s *Store, q db.ProductQuery) *db.ProductPage {
	t.Helper()
	page, err := s.SearchProducts(context.Background(), &q)
	require.NoError(t, err)
	return page
}

func pageIDs(p *db.ProductPage) []string {
	out := make([]string, len(p.Rows))
	for i, r := range p.Rows {
		out[i] = r.ID
	}
	return out
}

func TestSearchProducts_FuzzyMatchesNameOrDescription(t *testing.T) {
	s := newTestStore(t)
	page := search(t, s, db.ProductQuery{Text: "mouse", Strategy: strategy.Fuzzy, Limit: 10})
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, []string{"p1", "p2", "p3"}, pageIDs(page))
}

func TestSearchProducts_FuzzyIsCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	page := search(t, s, db.ProductQuery{Text: "wireless mouse", Limit: 10})
	assert.Equal(t, []string{"p1"}, pageIDs(page))
}

func TestSearchProducts_FuzzyEscapesWildcards(t *testing.T) {
	s := newTestStore(t)
	page := search(t, s, db.ProductQuery{Text: "100%", Limit: 10})
	assert.Equal(t, []string{"p4"}, pageIDs(page))

	page = search(t, s, db.ProductQuery{Text: "_", Limit: 10})
	assert.Equal(t, 0, page.Total)
}

func TestSearchProducts_FullText(t *testing.T) {
	s := newTestStore(t)
	page := search(t, s, db.ProductQuery{Text: "mouse wireless", Strategy: strategy.FullText, Limit: 10})
	assert.Equal(t, []string{"p1"}, pageIDs(page))

	page = search(t, s, db.ProductQuery{Text: "usb", Strategy: strategy.FullText, Limit: 10})
	assert.Equal(t, []string{"p2"}, pageIDs(page))
}

func TestSearchProducts_FullTextOperatorsAreLiterals(t *testing.T) {
	s := newTestStore(t)
	page := search(t, s, db.ProductQuery{Text: "mouse OR keyboard", Strategy: strategy.FullText, Limit: 10})
	assert.Equal(t, 0, page.Total)
}

func TestSearchProducts_Filters(t *testing.T) {
	s := newTestStore(t)
	f := filter.Of(map[string]filter.Value{
		"platform": filter.String("amazon"),
		"in_stock": filter.Bool(true),
	})
	page := search(t, s, db.ProductQuery{Text: "mouse", Filters: f, Limit: 10})
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, []string{"p1", "p3"}, pageIDs(page))
}

func TestSearchProducts_Pagination(t *testing.T) {
	s := newTestStore(t)
	page := search(t, s, db.ProductQuery{Text: "mouse", Limit: 2, Offset: 1})
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, []string{"p2", "p3"}, pageIDs(page))

	page = search(t, s, db.ProductQuery{Text: "mouse", Limit: 2, Offset: 10})
	assert.Equal(t, 3, page.Total)
	assert.Empty(t, page.Rows)
}

func TestSearchProducts_ZeroMatchesIsNotAnError(t *testing.T) {
	s := newTestStore(t)
	page := search(t, s, db.ProductQuery{Text: "monitor", Limit: 10})
	assert.Equal(t, 0, page.Total)
	assert.NotNil(t, page.Rows)
}

func TestSearchProducts_DecodesOptionalColumns(t *testing.T) {
	s := newTestStore(t)
	page := search(t, s, db.ProductQuery{Text: "wireless", Limit: 10})
	require.Len(t, page.Rows, 1)
	r := page.Rows[0]
	assert.Equal(t, "Ergonomic 2.4GHz mouse", *r.Description)
	assert.Equal(t, []string{"wireless", "mouse"}, r.Keywords)
	assert.InDelta(t, 90.0, *r.TrendScore, 1e-9)
	assert.Nil(t, r.RecommendationScore)
	assert.Equal(t, int64(12), *r.SalesRank)
	assert.True(t, r.CreatedAt.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)))
}

func TestSearchProducts_UnknownColumnFails(t *testing.T) {
	s := newTestStore(t)
	f := filter.Of(map[string]filter.Value{"color": filter.String("red")})
	_, err := s.SearchProducts(context.Background(), &db.ProductQuery{Text: "mouse", Filters: f, Limit: 10})
	require.Error(t, err)
	var dbErr *db.Error
	require.True(t, errors.As(err, &dbErr))
	assert.Equal(t, db.OpCount, dbErr.Op)
}

func TestUpsert_UpdatesIndex(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Upsert(context.Background(), Product{
		ProductRow: db.ProductRow{ID: "p2", Name: "USB Trackball", Keywords: []string{"usb"}},
	}))

	page := search(t, s, db.ProductQuery{Text: "trackball", Strategy: strategy.FullText, Limit: 10})
	assert.Equal(t, []string{"p2"}, pageIDs(page))

	page = search(t, s, db.ProductQuery{Text: "usb mouse", Strategy: strategy.FullText, Limit: 10})
	assert.Equal(t, 0, page.Total)
}

func TestUpsert_RejectsBadAttr(t *testing.T) {
	s := newTestStore(t)
	err := s.Upsert(context.Background(), Product{
		ProductRow: db.ProductRow{ID: "x", Name: "x"},
		Attrs:      map[string]any{"bad col": 1},
	})
	assert.ErrorIs(t, err, db.ErrBadQuery)
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, Migrate(context.Background(), s.conn))

	var n int
	require.NoError(t, s.conn.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&n))
	assert.Equal(t, len(Migrations), n)
}

func TestPingAndReady(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.WaitForReady(context.Background(), time.Second))
}

func TestMatchExpr(t *testing.T) {
	assert.Equal(t, `"usb" "mouse"`, matchExpr("usb  mouse"))
	assert.Equal(t, `"a""b"`, matchExpr(`a"b`))
}
