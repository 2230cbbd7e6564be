package request

import (
	"fmt"
	"slices"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/strategy"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/weights"
)

// Search parameter limits.
const (
	// MaxQueryLength bounds the raw query before normalization, in bytes.
	MaxQueryLength = 4096
	DefaultLimit   = 20
	MaxLimit       = 100
)

// Policy holds the deployment-specific request limits.
type Policy struct {
	DefaultLimit    int
	MaxLimit        int
	DefaultStrategy strategy.Strategy
	// FilterableFields lists the accepted filter names. Empty accepts any valid identifier.
	FilterableFields []string
}

// DefaultPolicy returns the stock limits.
func DefaultPolicy() Policy {
	return Policy{DefaultLimit: DefaultLimit, MaxLimit: MaxLimit, DefaultStrategy: strategy.Fuzzy}
}

// Request is a validated search query. The query text is raw; normalization
// happens in the search pipeline.
type Request struct {
	query    string
	filters  filter.Filters
	limit    int
	offset   int
	strategy strategy.Strategy
	mode     mode.Mode
	weights  weights.Partial
}

// New validates search parameters. Limit is defaulted and clamped; everything
// else that is out of range is a *domain.ValidationError.
func New(
	p Policy,
	query string,
	filters filter.Filters,
	limit, offset int,
	s strategy.Strategy,
	m mode.Mode,
	w weights.Partial,
) (Request, error) {
	if len(query) > MaxQueryLength {
		return Request{}, domain.NewValidationError("query", "too long (max %d bytes)", MaxQueryLength)
	}
	if err := checkFilters(p, filters); err != nil {
		return Request{}, err
	}

	if p.DefaultLimit <= 0 {
		p.DefaultLimit = DefaultLimit
	}
	if p.MaxLimit <= 0 {
		p.MaxLimit = MaxLimit
	}
	if limit <= 0 {
		limit = p.DefaultLimit
	}
	if limit > p.MaxLimit {
		limit = p.MaxLimit
	}
	if offset < 0 {
		return Request{}, domain.NewValidationError("offset", "must be non-negative")
	}

	if s == "" {
		s = p.DefaultStrategy
	}
	if s == "" {
		s = strategy.Fuzzy
	}
	if !s.IsValid() {
		return Request{}, domain.NewValidationError("strategy", "invalid value %q", s)
	}
	if m == "" {
		m = mode.Ranked
	}
	if !m.IsValid() {
		return Request{}, domain.NewValidationError("mode", "invalid value %q", m)
	}
	if err := w.Validate(); err != nil {
		return Request{}, domain.NewValidationError("weights", "%v", err)
	}

	return Request{
		query:    query,
		filters:  filters,
		limit:    limit,
		offset:   offset,
		strategy: s,
		mode:     m,
		weights:  w,
	}, nil
}

func checkFilters(p Policy, f filter.Filters) error {
	for _, k := range f.Keys() {
		if !filter.ValidName(k) {
			return domain.NewValidationError("filters", "invalid filter name %q", k)
		}
		if len(p.FilterableFields) > 0 && !slices.Contains(p.FilterableFields, k) {
			return domain.NewValidationError("filters", "unknown filter %q", k)
		}
	}
	return nil
}

// Query returns the raw query text.
func (r *Request) Query() string { return r.query }

// Filters returns the equality filters.
func (r *Request) Filters() filter.Filters { return r.filters }

// Limit returns the page size.
func (r *Request) Limit() int { return r.limit }

// Offset returns the page offset.
func (r *Request) Offset() int { return r.offset }

// Strategy returns the datastore match strategy.
func (r *Request) Strategy() strategy.Strategy { return r.strategy }

// Mode returns the ranking mode.
func (r *Request) Mode() mode.Mode { return r.mode }

// Weights returns the caller's ranking overrides.
func (r *Request) Weights() weights.Partial { return r.weights }

// String is a compact description for logs.
func (r *Request) String() string {
	return fmt.Sprintf("query=%q filters=%s limit=%d offset=%d strategy=%s mode=%s",
		r.query, r.filters.Encode(), r.limit, r.offset, r.strategy, r.mode)
}
