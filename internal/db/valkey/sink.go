package valkey

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/prodsearch/internal/db"
)

// Key suffixes under the store prefix.
const (
	keyPopular  = "queries:popular"
	keyZero     = "queries:zero"
	keyLastSeen = "queries:last_seen"
)

// RecordQuery bumps the popularity of query, notes when it was last seen and,
// for empty result sets, bumps its zero-result counter. One round-trip.
func (s *Store) RecordQuery(ctx context.Context, query string, resultCount int, at time.Time) error {
	cmds := make(rueidis.Commands, 0, 3)
	cmds = append(cmds,
		s.b().Zincrby().Key(s.prefix+keyPopular).Increment(1).Member(query).Build(),
		s.b().Zadd().Key(s.prefix+keyLastSeen).ScoreMember().ScoreMember(float64(at.UnixMilli()), query).Build(),
	)
	if resultCount == 0 {
		cmds = append(cmds, s.b().Zincrby().Key(s.prefix+keyZero).Increment(1).Member(query).Build())
	}

	for _, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpZIncrBy, Err: fmt.Errorf("query %q: %w", query, err)}
		}
	}
	return nil
}

// TopQueries returns up to limit queries by descending popularity.
func (s *Store) TopQueries(ctx context.Context, limit int) ([]string, error) {
	return s.top(ctx, s.prefix+keyPopular, limit)
}

// ZeroResultQueries returns up to limit queries that most often matched nothing.
func (s *Store) ZeroResultQueries(ctx context.Context, limit int) ([]string, error) {
	return s.top(ctx, s.prefix+keyZero, limit)
}

func (s *Store) top(ctx context.Context, key string, limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}
	cmd := s.b().Zrange().Key(key).Min("0").Max(strconv.Itoa(limit - 1)).Rev().Build()
	out, err := s.client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return []string{}, nil
		}
		return nil, &db.Error{Op: db.OpZRange, Err: err}
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
