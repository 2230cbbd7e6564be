package analytics

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kailas-cloud/prodsearch/internal/domain"
)

type mockSink struct {
	recordFn func(ctx context.Context, q string, n int, at time.Time) error
	topFn    func(ctx context.Context, limit int) ([]string, error)
	recorded []string
}

func (m *mockSink) RecordQuery(ctx context.Context, q string, n int, at time.Time) error {
	m.recorded = append(m.recorded, q)
	if m.recordFn != nil {
		return m.recordFn(ctx, q, n, at)
	}
	return nil
}

func (m *mockSink) TopQueries(ctx context.Context, limit int) ([]string, error) {
	if m.topFn != nil {
		return m.topFn(ctx, limit)
	}
	return nil, nil
}

func TestRecordQuery(t *testing.T) {
	ms := &mockSink{}
	r := New(ms)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	var gotN int
	var gotAt time.Time
	ms.recordFn = func(_ context.Context, _ string, n int, at time.Time) error {
		gotN, gotAt = n, at
		return nil
	}
	if err := r.RecordQuery(context.Background(), "mouse", -4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotN != 0 || !gotAt.Equal(fixed) {
		t.Errorf("n=%d at=%v", gotN, gotAt)
	}
}

func TestRecordQuery_SkipsEmpty(t *testing.T) {
	ms := &mockSink{}
	if err := New(ms).RecordQuery(context.Background(), "", 3); err != nil {
		t.Fatal(err)
	}
	if len(ms.recorded) != 0 {
		t.Errorf("recorded %v", ms.recorded)
	}
}

func TestRecordQuery_WrapsTelemetryError(t *testing.T) {
	boom := errors.New("conn refused")
	ms := &mockSink{recordFn: func(context.Context, string, int, time.Time) error { return boom }}
	err := New(ms).RecordQuery(context.Background(), "mouse", 1)
	if !errors.Is(err, domain.ErrTelemetry) || !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestTopQueries(t *testing.T) {
	var gotLimit int
	ms := &mockSink{topFn: func(_ context.Context, limit int) ([]string, error) {
		gotLimit = limit
		return []string{"mouse", "keyboard"}, nil
	}}
	got, err := New(ms).TopQueries(context.Background(), 5000)
	if err != nil {
		t.Fatal(err)
	}
	if gotLimit != maxTopQueries {
		t.Errorf("limit = %d, want clamp to %d", gotLimit, maxTopQueries)
	}
	if !reflect.DeepEqual(got, []string{"mouse", "keyboard"}) {
		t.Errorf("got %v", got)
	}
}

func TestTopQueries_NilFromSinkBecomesEmpty(t *testing.T) {
	got, err := New(&mockSink{}).TopQueries(context.Background(), 3)
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("got %#v, %v", got, err)
	}
}

func TestTopQueries_Error(t *testing.T) {
	ms := &mockSink{topFn: func(context.Context, int) ([]string, error) { return nil, errors.New("down") }}
	got, err := New(ms).TopQueries(context.Background(), 3)
	if !errors.Is(err, domain.ErrTelemetry) {
		t.Fatalf("err = %v", err)
	}
	if got == nil {
		t.Error("result must be non-nil even on error")
	}
}

func TestDisabled(t *testing.T) {
	r := New(nil)
	if r.Enabled() {
		t.Error("nil sink should be disabled")
	}
	if err := r.RecordQuery(context.Background(), "mouse", 1); err != nil {
		t.Fatal(err)
	}
	got, err := r.TopQueries(context.Background(), 5)
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
}
