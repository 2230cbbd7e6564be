// Package ranking orders search candidates by relevance.
//
// Two modes are provided. Rank is the additive multi-factor model and keeps
// every candidate. RankWeighted is the position-sensitive multi-field model
// and drops candidates that match nothing.
package ranking

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kailas-cloud/prodsearch/internal/domain/product"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/weights"
)

const (
	prefixBonus       = 0.5
	keywordBonus      = 0.3
	salesRankHorizon  = 10000.0
	recencyHorizonDay = 365.0
	day               = 24 * time.Hour
)

// Rank scores items against query and returns them sorted by descending score.
// Ties keep input order. now is the reference time for recency decay.
func Rank(items []product.Item, query string, w weights.Ranking, now time.Time) []product.Scored {
	q := strings.ToLower(query)
	out := make([]product.Scored, len(items))
	for i, it := range items {
		out[i] = product.NewScored(it, Score(it, q, w, now))
	}
	sortByScore(out)
	return out
}

// Score computes the additive relevance of one item. q must already be lower-cased.
func Score(it product.Item, q string, w weights.Ranking, now time.Time) float64 {
	var score float64
	if q != "" {
		name := strings.ToLower(it.Name())
		if name == q {
			score += w.ExactMatch
		}
		if strings.Contains(name, q) {
			score += w.PartialMatch
		}
		if strings.HasPrefix(name, q) {
			score += w.PartialMatch * prefixBonus
		}
		// Uncapped: every matching keyword adds its share.
		for i := range it.KeywordCount() {
			if strings.Contains(strings.ToLower(it.Keyword(i)), q) {
				score += w.PartialMatch * keywordBonus
			}
		}
	}

	if v, ok := it.TrendScore(); ok {
		score += v / 100 * w.TrendScore
	}
	if v, ok := it.RecommendationScore(); ok {
		score += v / 100 * w.RecommendationScore
	}
	if v, ok := it.SalesRank(); ok {
		score += max(0, 1-float64(v)/salesRankHorizon) * w.SalesRank
	}
	if created, ok := it.CreatedAt(); ok {
		days := float64(now.Sub(created)) / float64(day)
		if days < 0 {
			days = 0
		}
		score += max(0, 1-days/recencyHorizonDay) * w.Recency
	}
	return score
}

// RankWeighted scores items by field position and weight, drops zero scores,
// and returns the rest sorted by descending score with ties in input order.
func RankWeighted(items []product.Item, query string, fw weights.Field) []product.Scored {
	q := strings.ToLower(query)
	out := make([]product.Scored, 0, len(items))
	if q == "" {
		return out
	}
	for _, it := range items {
		if s := WeightedScore(it, q, fw); s > 0 {
			out = append(out, product.NewScored(it, s))
		}
	}
	sortByScore(out)
	return out
}

// WeightedScore computes the multi-field score of one item. q must already be lower-cased.
func WeightedScore(it product.Item, q string, fw weights.Field) float64 {
	var score float64
	name := strings.ToLower(it.Name())
	if pos := strings.Index(name, q); pos >= 0 && name != "" {
		// Position and length in runes, not bytes.
		at := utf8.RuneCountInString(name[:pos])
		score += fw.Name * (1 - float64(at)/float64(utf8.RuneCountInString(name)))
	}
	if strings.Contains(strings.ToLower(it.Description()), q) {
		score += fw.Description
	}
	for i := range it.KeywordCount() {
		if strings.Contains(strings.ToLower(it.Keyword(i)), q) {
			score += fw.Keywords
			break
		}
	}
	return score
}

func sortByScore(s []product.Scored) {
	slices.SortStableFunc(s, func(a, b product.Scored) int {
		switch {
		case a.Score() > b.Score():
			return -1
		case a.Score() < b.Score():
			return 1
		default:
			return 0
		}
	})
}
