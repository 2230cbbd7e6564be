package client

import "time"

// Weights overrides ranking coefficients. Nil fields keep the server default.
type Weights struct {
	ExactMatch          *float64 `json:"exactMatch,omitempty"`
	PartialMatch        *float64 `json:"partialMatch,omitempty"`
	TrendScore          *float64 `json:"trendScore,omitempty"`
	RecommendationScore *float64 `json:"recommendationScore,omitempty"`
	SalesRank           *float64 `json:"salesRank,omitempty"`
	Recency             *float64 `json:"recency,omitempty"`
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query    string         `json:"query"`
	Filters  map[string]any `json:"filters,omitempty"`
	Limit    *int           `json:"limit,omitempty"`
	Offset   *int           `json:"offset,omitempty"`
	Strategy *string        `json:"strategy,omitempty"` // "fuzzy" or "fulltext"
	Mode     *string        `json:"mode,omitempty"`     // "ranked" or "weighted"
	Weights  *Weights       `json:"weights,omitempty"`
}

// Product is one ranked search hit.
type Product struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Description         *string    `json:"description,omitempty"`
	Keywords            []string   `json:"keywords,omitempty"`
	TrendScore          *float64   `json:"trend_score,omitempty"`
	RecommendationScore *float64   `json:"recommendation_score,omitempty"`
	SalesRank           *int64     `json:"sales_rank,omitempty"`
	Price               *float64   `json:"price,omitempty"`
	CreatedAt           *time.Time `json:"created_at,omitempty"`
	Score               float64    `json:"score"`
}

// SearchResponse is one page of ranked products.
type SearchResponse struct {
	Results []Product `json:"results"`
	Total   int       `json:"total"`
	Count   int       `json:"count"`
	Limit   int       `json:"limit"`
	Offset  int       `json:"offset"`
	Cached  bool      `json:"cached"`
}

// Suggestions holds query completions and, when requested, popular queries.
type Suggestions struct {
	Suggestions []string  `json:"suggestions"`
	Popular     *[]string `json:"popular,omitempty"`
}

// SearchSample is one recorded search.
type SearchSample struct {
	Query       string    `json:"query"`
	DurationMs  float64   `json:"duration_ms"`
	ResultCount int       `json:"result_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// Metrics is the search performance report.
type Metrics struct {
	TotalSearches   int            `json:"total_searches"`
	AverageTimeMs   float64        `json:"average_time_ms"`
	SlowSearchCount int            `json:"slow_search_count"`
	RecentSearches  []SearchSample `json:"recent_searches"`
	SlowThresholdMs float64        `json:"slow_threshold_ms"`
	SlowSearches    []SearchSample `json:"slow_searches"`
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Checks map[string]string `json:"checks"` // component → "ok"/"error"
}
