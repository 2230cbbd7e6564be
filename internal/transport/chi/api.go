package chi

import (
	"time"

	"github.com/kailas-cloud/prodsearch/internal/domain/search/weights"
	"github.com/kailas-cloud/prodsearch/internal/perfmon"
)

// ErrorCode is the machine-readable error code in ErrorResponse.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeValidationFailed  ErrorCode = "validation_failed"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeNotFound          ErrorCode = "not_found"
	CodeSearchTimeout     ErrorCode = "search_timeout"
	CodeSearchUnavailable ErrorCode = "search_unavailable"
	CodeNotImplemented    ErrorCode = "not_implemented"
	CodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchRequest is the POST /search body.
type SearchRequest struct {
	Query    string           `json:"query"`
	Filters  map[string]any   `json:"filters,omitempty"`
	Limit    *int             `json:"limit,omitempty"`
	Offset   *int             `json:"offset,omitempty"`
	Strategy *string          `json:"strategy,omitempty"`
	Mode     *string          `json:"mode,omitempty"`
	Weights  *weights.Partial `json:"weights,omitempty"`
}

// SearchResultItem is one ranked product.
type SearchResultItem struct {
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

// SearchResponse is the POST /search response.
type SearchResponse struct {
	Results []SearchResultItem `json:"results"`
	Total   int                `json:"total"`
	Count   int                `json:"count"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
	Cached  bool               `json:"cached"`
}

// SuggestResponse is the GET /suggest response. Popular is present only when requested.
type SuggestResponse struct {
	Suggestions []string  `json:"suggestions"`
	Popular     *[]string `json:"popular,omitempty"`
}

// MetricsResponse is the GET /search/metrics response.
type MetricsResponse struct {
	perfmon.Snapshot
	SlowThresholdMs float64          `json:"slow_threshold_ms"`
	SlowSearches    []perfmon.Sample `json:"slow_searches"`
}

// CacheClearResponse is the DELETE /search/cache response.
type CacheClearResponse struct {
	Cleared int `json:"cleared"`
}

// HealthResponse is the GET /health response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
