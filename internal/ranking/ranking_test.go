package ranking

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/kailas-cloud/prodsearch/internal/domain/product"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/weights"
)

var refTime = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func item(t *testing.T, id, name string, opts ...product.Option) product.Item {
	t.Helper()
	it, err := product.New(id, name, opts...)
	if err != nil {
		t.Fatalf("product.New: %v", err)
	}
	return it
}

func ids(s []product.Scored) []string {
	out := make([]string, len(s))
	for i, it := range s {
		out[i] = it.ID()
	}
	return out
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestScore_Rules(t *testing.T) {
	w := weights.Default()
	tests := []struct {
		name string
		it   product.Item
		q    string
		want float64
	}{
		{"exact also counts partial and prefix", item(t, "1", "Mouse"), "mouse", 100 + 50 + 25},
		{"prefix", item(t, "1", "Mouse Pad"), "mouse", 50 + 25},
		{"contains", item(t, "1", "Gaming Mouse"), "mouse", 50},
		{"keywords accumulate", item(t, "1", "Pad", product.WithKeywords("mouse", "MousePad", "desk")), "mouse", 2 * 15},
		{"trend", item(t, "1", "x", product.WithTrendScore(50)), "mouse", 15},
		{"recommendation", item(t, "1", "x", product.WithRecommendationScore(100)), "mouse", 20},
		{"sales rank zero is full weight", item(t, "1", "x", product.WithSalesRank(0)), "mouse", 15},
		{"sales rank linear", item(t, "1", "x", product.WithSalesRank(5000)), "mouse", 7.5},
		{"sales rank past horizon", item(t, "1", "x", product.WithSalesRank(25000)), "mouse", 0},
		{"recency today", item(t, "1", "x", product.WithCreatedAt(refTime)), "mouse", 10},
		{"recency half year", item(t, "1", "x", product.WithCreatedAt(refTime.Add(-182*24*time.Hour-12*time.Hour))), "mouse", 5},
		{"recency older than a year", item(t, "1", "x", product.WithCreatedAt(refTime.AddDate(-2, 0, 0))), "mouse", 0},
		{"future creation clamps", item(t, "1", "x", product.WithCreatedAt(refTime.Add(48*time.Hour))), "mouse", 10},
		{"no signal", item(t, "1", "Keyboard"), "mouse", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.it, tt.q, w, refTime); !approx(got, tt.want) {
				t.Errorf("Score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRank_WirelessMouseScenario(t *testing.T) {
	a := item(t, "A", "Wireless Mouse", product.WithTrendScore(90))
	b := item(t, "B", "USB Mouse", product.WithKeywords("wireless", "mouse"), product.WithTrendScore(40))

	got := Rank([]product.Item{b, a}, "Wireless Mouse", weights.Default(), refTime)
	if got[0].ID() != "A" {
		t.Fatalf("order = %v, want A first", ids(got))
	}
	if !approx(got[0].Score(), 202) {
		t.Errorf("A score = %v, want 202", got[0].Score())
	}
	if !approx(got[1].Score(), 12) {
		t.Errorf("B score = %v, want 12", got[1].Score())
	}
}

func TestRank_ZeroSignalIncludedLast(t *testing.T) {
	items := []product.Item{
		item(t, "none", "Keyboard"),
		item(t, "hit", "Mouse"),
	}
	got := Rank(items, "mouse", weights.Default(), refTime)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[1].ID() != "none" || got[1].Score() != 0 {
		t.Errorf("zero-signal item should be last with score 0, got %v", ids(got))
	}
}

func TestRank_StableTies(t *testing.T) {
	items := []product.Item{
		item(t, "1", "Red Mouse"),
		item(t, "2", "Blue Mouse"),
		item(t, "3", "Green Mouse"),
	}
	got := Rank(items, "mouse", weights.Default(), refTime)
	if want := []string{"1", "2", "3"}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("order = %v, want %v", ids(got), want)
	}
}

func TestRank_Deterministic(t *testing.T) {
	items := []product.Item{
		item(t, "1", "Wireless Mouse", product.WithTrendScore(10), product.WithSalesRank(900)),
		item(t, "2", "Mouse", product.WithKeywords("mouse", "wireless mouse")),
		item(t, "3", "Keyboard", product.WithRecommendationScore(99)),
		item(t, "4", "Mouse Pad", product.WithCreatedAt(refTime.AddDate(0, -1, 0))),
		item(t, "5", "Mouse", product.WithTrendScore(0)),
	}
	first := Rank(items, "mouse", weights.Default(), refTime)
	for range 50 {
		again := Rank(items, "mouse", weights.Default(), refTime)
		if !reflect.DeepEqual(ids(first), ids(again)) {
			t.Fatalf("order changed: %v vs %v", ids(first), ids(again))
		}
		for i := range first {
			if first[i].Score() != again[i].Score() {
				t.Fatalf("score changed at %d", i)
			}
		}
	}
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	items := []product.Item{item(t, "1", "Keyboard"), item(t, "2", "Mouse")}
	_ = Rank(items, "mouse", weights.Default(), refTime)
	if items[0].ID() != "1" || items[1].ID() != "2" {
		t.Error("input slice reordered")
	}
}

func TestRank_TrendWeightMonotonic(t *testing.T) {
	low := item(t, "low", "Mouse", product.WithTrendScore(40))
	high := item(t, "high", "Mouse", product.WithTrendScore(80))
	for _, tw := range []float64{1, 10, 30, 60, 200, 1e6} {
		w := weights.Default().Apply(weights.Partial{TrendScore: &tw})
		got := Rank([]product.Item{low, high}, "mouse", w, refTime)
		if got[0].ID() != "high" {
			t.Errorf("trend weight %v: order = %v", tw, ids(got))
		}
	}
}

func TestRank_Empty(t *testing.T) {
	if got := Rank(nil, "mouse", weights.Default(), refTime); len(got) != 0 {
		t.Errorf("got %d results", len(got))
	}
}

func TestRankWeighted_PositionSensitive(t *testing.T) {
	fw := weights.DefaultField()
	early := item(t, "early", "mouse pad xl")
	late := item(t, "late", "xl pad mouse")

	got := RankWeighted([]product.Item{late, early}, "mouse", fw)
	if want := []string{"early", "late"}; !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("order = %v, want %v", ids(got), want)
	}
	if !approx(got[0].Score(), 10) {
		t.Errorf("early score = %v, want 10", got[0].Score())
	}
	// "mouse" starts at byte 7 of a 12-byte name
	if !approx(got[1].Score(), 10*(1-7.0/12.0)) {
		t.Errorf("late score = %v", got[1].Score())
	}
}

func TestRankWeighted_FlatFieldContributions(t *testing.T) {
	fw := weights.DefaultField()
	it := item(t, "1", "Trackball",
		product.WithDescription("An ergonomic mouse alternative"),
		product.WithKeywords("mouse", "mouse-like"),
	)
	got := RankWeighted([]product.Item{it}, "mouse", fw)
	if len(got) != 1 {
		t.Fatalf("len = %d", len(got))
	}
	if !approx(got[0].Score(), fw.Description+fw.Keywords) {
		t.Errorf("score = %v, want %v", got[0].Score(), fw.Description+fw.Keywords)
	}
}

func TestRankWeighted_ExcludesZeroSignal(t *testing.T) {
	items := []product.Item{
		item(t, "none", "Keyboard", product.WithTrendScore(100)),
		item(t, "hit", "Mouse"),
	}
	got := RankWeighted(items, "mouse", weights.DefaultField())
	if want := []string{"hit"}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("ids = %v, want %v", ids(got), want)
	}
}

func TestWeightedScore_PositionCountsRunes(t *testing.T) {
	fw := weights.Field{Name: 10}
	tests := []struct {
		name string
		want float64
	}{
		{"Café Mouse", 5},   // "mouse" at rune 5 of 10
		{"Ñandú Mouse", 10 * (1 - 6.0/11)},
		{"日本語 mouse", 10 * (1 - 4.0/9)},
		{"Mouse", 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeightedScore(item(t, "1", tt.name), "mouse", fw)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRankWeighted_EmptyQuery(t *testing.T) {
	got := RankWeighted([]product.Item{item(t, "1", "Mouse")}, "", weights.DefaultField())
	if len(got) != 0 {
		t.Errorf("empty query should match nothing, got %v", ids(got))
	}
}
