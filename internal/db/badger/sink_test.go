package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/prodsearch/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(Config{})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func record(t *testing.T, s *Store, q string, n, results int) {
	t.Helper()
	for range n {
		require.NoError(t, s.RecordQuery(context.Background(), q, results, time.Now()))
	}
}

func TestTopQueries_OrdersByCount(t *testing.T) {
	s := newTestStore(t)
	record(t, s, "keyboard", 2, 5)
	record(t, s, "mouse", 5, 5)
	record(t, s, "monitor", 1, 5)
	record(t, s, "headset", 2, 5)

	got, err := s.TopQueries(context.Background(), 3)
	require.NoError(t, err)
	// ties break alphabetically
	assert.Equal(t, []string{"mouse", "headset", "keyboard"}, got)
}

func TestTopQueries_EmptyStore(t *testing.T) {
	s := newTestStore(t)
	got, err := s.TopQueries(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTopQueries_NonPositiveLimit(t *testing.T) {
	s := newTestStore(t)
	record(t, s, "mouse", 1, 1)
	got, err := s.TopQueries(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestZeroResultQueries(t *testing.T) {
	s := newTestStore(t)
	record(t, s, "mouse", 3, 10)
	record(t, s, "flux capacitor", 2, 0)
	record(t, s, "hoverboard", 1, 0)

	got, err := s.ZeroResultQueries(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"flux capacitor", "hoverboard"}, got)

	// zero-result queries still count toward popularity
	top, err := s.TopQueries(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"mouse", "flux capacitor", "hoverboard"}, top)
}

func TestRecordQuery_Concurrent(t *testing.T) {
	s := newTestStore(t)
	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := range 40 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.RecordQuery(context.Background(), fmt.Sprintf("q%d", i%4), 1, time.Now())
		}(i)
	}
	wg.Wait()
	close(errs)

	var total uint64
	for err := range errs {
		if err != nil {
			// retries are bounded, so heavy contention may still surface a conflict
			var dbErr *db.Error
			require.True(t, errors.As(err, &dbErr))
			continue
		}
		total++
	}
	var counted uint64
	for i := range 4 {
		n, err := s.Count(fmt.Sprintf("q%d", i))
		require.NoError(t, err)
		counted += n
	}
	assert.Equal(t, total, counted)
}

func TestRecordQuery_CanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.RecordQuery(ctx, "mouse", 1, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPing(t *testing.T) {
	s, err := NewStore(Config{})
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))
	s.Close()
	assert.ErrorIs(t, s.Ping(context.Background()), db.ErrUnavailable)
}

func TestNewStore_OnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(Config{Path: dir})
	require.NoError(t, err)
	record(t, s, "mouse", 2, 1)
	s.Close()

	s, err = NewStore(Config{Path: dir})
	require.NoError(t, err)
	defer s.Close()
	n, err := s.Count("mouse")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}
