package product

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// Item is a snapshot of one product candidate (immutable value object).
// Score and rank fields are optional; an absent field contributes nothing to ranking.
type Item struct {
	id                  string
	name                string
	description         string
	keywords            []string
	trendScore          *float64
	recommendationScore *float64
	salesRank           *int64
	price               *float64
	createdAt           *time.Time
}

// Option sets an optional field on an Item.
type Option func(*Item)

// WithDescription sets the description.
func WithDescription(d string) Option {
	return func(it *Item) { it.description = d }
}

// WithKeywords sets the free-text keywords.
func WithKeywords(kw ...string) Option {
	return func(it *Item) { it.keywords = slices.Clone(kw) }
}

// WithTrendScore sets the trend score (0-100).
func WithTrendScore(v float64) Option {
	return func(it *Item) { it.trendScore = &v }
}

// WithRecommendationScore sets the recommendation score (0-100).
func WithRecommendationScore(v float64) Option {
	return func(it *Item) { it.recommendationScore = &v }
}

// WithSalesRank sets the sales rank (lower is better).
func WithSalesRank(v int64) Option {
	return func(it *Item) { it.salesRank = &v }
}

// WithPrice sets the price.
func WithPrice(v float64) Option {
	return func(it *Item) { it.price = &v }
}

// WithCreatedAt sets the creation timestamp.
func WithCreatedAt(t time.Time) Option {
	return func(it *Item) { it.createdAt = &t }
}

// New validates and creates an Item. ID and name are required.
func New(id, name string, opts ...Option) (Item, error) {
	if id == "" {
		return Item{}, fmt.Errorf("product id is required")
	}
	if name == "" {
		return Item{}, fmt.Errorf("product %s: name is required", id)
	}
	it := Item{id: id, name: name}
	for _, o := range opts {
		o(&it)
	}
	if it.trendScore != nil && !inPercentRange(*it.trendScore) {
		return Item{}, fmt.Errorf("product %s: trend score must be between 0 and 100", id)
	}
	if it.recommendationScore != nil && !inPercentRange(*it.recommendationScore) {
		return Item{}, fmt.Errorf("product %s: recommendation score must be between 0 and 100", id)
	}
	if it.salesRank != nil && *it.salesRank < 0 {
		return Item{}, fmt.Errorf("product %s: sales rank must not be negative", id)
	}
	if it.price != nil && (math.IsNaN(*it.price) || math.IsInf(*it.price, 0)) {
		return Item{}, fmt.Errorf("product %s: price must be a finite number", id)
	}
	return it, nil
}

// inPercentRange is false for NaN, which compares false against both bounds.
func inPercentRange(v float64) bool { return v >= 0 && v <= 100 }

// ID returns the product identifier.
func (it Item) ID() string { return it.id }

// Name returns the display name.
func (it Item) Name() string { return it.name }

// Description returns the description, empty when absent.
func (it Item) Description() string { return it.description }

// Keywords returns a copy of the keyword set.
func (it Item) Keywords() []string { return slices.Clone(it.keywords) }

// KeywordCount returns the number of keywords without copying.
func (it Item) KeywordCount() int { return len(it.keywords) }

// Keyword returns the i-th keyword.
func (it Item) Keyword(i int) string { return it.keywords[i] }

// TrendScore returns the trend score and whether it is present.
func (it Item) TrendScore() (float64, bool) { return deref(it.trendScore) }

// RecommendationScore returns the recommendation score and whether it is present.
func (it Item) RecommendationScore() (float64, bool) { return deref(it.recommendationScore) }

// SalesRank returns the sales rank and whether it is present.
func (it Item) SalesRank() (int64, bool) { return deref(it.salesRank) }

// Price returns the price and whether it is present.
func (it Item) Price() (float64, bool) { return deref(it.price) }

// CreatedAt returns the creation timestamp and whether it is present.
func (it Item) CreatedAt() (time.Time, bool) { return deref(it.createdAt) }

func deref[T any](p *T) (T, bool) {
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// Scored is an Item decorated with a computed relevance score.
type Scored struct {
	Item
	score float64
}

// NewScored decorates an item with a score.
func NewScored(it Item, score float64) Scored {
	return Scored{Item: it, score: score}
}

// Score returns the relevance score.
func (s Scored) Score() float64 { return s.score }
