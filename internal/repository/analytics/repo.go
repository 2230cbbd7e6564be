package analytics

import (
	"context"
	"time"

	"github.com/kailas-cloud/prodsearch/internal/domain"
)

const maxTopQueries = 100

// sink is the consumer interface for analytics stores (ISP).
type sink interface {
	RecordQuery(ctx context.Context, query string, resultCount int, at time.Time) error
	TopQueries(ctx context.Context, limit int) ([]string, error)
}

// Repo implements usecase/suggest.Analytics. Every failure is a *domain.TelemetryError.
type Repo struct {
	sink sink
	now  func() time.Time
}

// New creates an analytics repository. A nil sink disables tracking.
func New(s sink) *Repo {
	return &Repo{sink: s, now: time.Now}
}

// Enabled reports whether a sink is configured.
func (r *Repo) Enabled() bool { return r.sink != nil }

// RecordQuery stores one completed search. Empty queries are ignored.
func (r *Repo) RecordQuery(ctx context.Context, query string, resultCount int) error {
	if r.sink == nil || query == "" {
		return nil
	}
	if err := r.sink.RecordQuery(ctx, query, max(resultCount, 0), r.now()); err != nil {
		return domain.NewTelemetryError("record query", err)
	}
	return nil
}

// TopQueries returns up to limit of the most popular queries, never nil.
func (r *Repo) TopQueries(ctx context.Context, limit int) ([]string, error) {
	if r.sink == nil || limit <= 0 {
		return []string{}, nil
	}
	out, err := r.sink.TopQueries(ctx, min(limit, maxTopQueries))
	if err != nil {
		return []string{}, domain.NewTelemetryError("top queries", err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
