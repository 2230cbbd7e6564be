package weights

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Ranking holds the six coefficients of the additive relevance model.
type Ranking struct {
	ExactMatch          float64
	PartialMatch        float64
	TrendScore          float64
	RecommendationScore float64
	SalesRank           float64
	Recency             float64
}

// Default returns the stock ranking coefficients.
func Default() Ranking {
	return Ranking{
		ExactMatch:          100,
		PartialMatch:        50,
		TrendScore:          30,
		RecommendationScore: 20,
		SalesRank:           15,
		Recency:             10,
	}
}

// Partial is a caller override; nil fields keep the base value.
type Partial struct {
	ExactMatch          *float64 `json:"exactMatch,omitempty" yaml:"exact_match"`
	PartialMatch        *float64 `json:"partialMatch,omitempty" yaml:"partial_match"`
	TrendScore          *float64 `json:"trendScore,omitempty" yaml:"trend_score"`
	RecommendationScore *float64 `json:"recommendationScore,omitempty" yaml:"recommendation_score"`
	SalesRank           *float64 `json:"salesRank,omitempty" yaml:"sales_rank"`
	Recency             *float64 `json:"recency,omitempty" yaml:"recency"`
}

// IsEmpty reports whether no key is overridden.
func (p Partial) IsEmpty() bool {
	return p.ExactMatch == nil && p.PartialMatch == nil && p.TrendScore == nil &&
		p.RecommendationScore == nil && p.SalesRank == nil && p.Recency == nil
}

// Validate rejects negative or non-finite coefficients.
func (p Partial) Validate() error {
	fields := []struct {
		name string
		v    *float64
	}{
		{"exactMatch", p.ExactMatch},
		{"partialMatch", p.PartialMatch},
		{"trendScore", p.TrendScore},
		{"recommendationScore", p.RecommendationScore},
		{"salesRank", p.SalesRank},
		{"recency", p.Recency},
	}
	for _, f := range fields {
		if f.v == nil {
			continue
		}
		if *f.v < 0 || math.IsNaN(*f.v) || math.IsInf(*f.v, 0) {
			return fmt.Errorf("weight %s must be a non-negative finite number", f.name)
		}
	}
	return nil
}

// Apply overrides only the keys set in p.
func (r Ranking) Apply(p Partial) Ranking {
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&r.ExactMatch, p.ExactMatch)
	set(&r.PartialMatch, p.PartialMatch)
	set(&r.TrendScore, p.TrendScore)
	set(&r.RecommendationScore, p.RecommendationScore)
	set(&r.SalesRank, p.SalesRank)
	set(&r.Recency, p.Recency)
	return r
}

// Encode returns a stable textual form for cache keys.
func (r Ranking) Encode() string {
	vals := []float64{r.ExactMatch, r.PartialMatch, r.TrendScore, r.RecommendationScore, r.SalesRank, r.Recency}
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// Field holds the multi-field weighted search coefficients.
type Field struct {
	Name        float64 `yaml:"name"`
	Description float64 `yaml:"description"`
	Keywords    float64 `yaml:"keywords"`
}

// DefaultField returns the stock multi-field coefficients.
func DefaultField() Field {
	return Field{Name: 10, Description: 3, Keywords: 5}
}
