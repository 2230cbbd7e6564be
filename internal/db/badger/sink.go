// Package badger is an embedded query-popularity sink for single-node deployments.
package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/db"
)

// Compile-time check: Store implements db.AnalyticsSink.
var _ db.AnalyticsSink = (*Store)(nil)

// Key layout: prefix + query -> big-endian uint64.
const (
	popularPrefix  = "q:"
	zeroPrefix     = "z:"
	lastSeenPrefix = "l:"
	maxTxnRetries  = 5
)

// Config controls where the database lives.
type Config struct {
	// Path is the data directory. Empty means in-memory.
	Path   string
	Logger *zap.Logger
}

// Store keeps per-query counters in BadgerDB.
type Store struct {
	db *badger.DB
}

// zapAdapter adapts zap to the badger.Logger interface.
type zapAdapter struct {
	l *zap.SugaredLogger
}

var _ badger.Logger = (*zapAdapter)(nil)

func (a *zapAdapter) Errorf(msg string, args ...any)   { a.l.Errorf(msg, args...) }
func (a *zapAdapter) Warningf(msg string, args ...any) { a.l.Warnf(msg, args...) }
func (a *zapAdapter) Infof(msg string, args ...any)    { a.l.Debugf(msg, args...) }
func (a *zapAdapter) Debugf(msg string, args ...any)   { a.l.Debugf(msg, args...) }

// NewStore opens the database, creating the directory if needed.
func NewStore(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	l := cfg.Logger
	if l == nil {
		l = zap.NewNop()
	}
	opts.Logger = &zapAdapter{l: l.Named("badger").Sugar()}
	opts.Compression = options.None

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: bdb}, nil
}

// Ping reports whether the database is open.
func (s *Store) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return &db.Error{Op: db.OpPing, Err: fmt.Errorf("%w: database closed", db.ErrUnavailable)}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() {
	_ = s.db.Close()
}

// RecordQuery increments the popularity counter of query and, when resultCount
// is zero, its zero-result counter.
func (s *Store) RecordQuery(ctx context.Context, query string, resultCount int, at time.Time) error {
	var err error
	for range maxTxnRetries {
		if ctx.Err() != nil {
			return &db.Error{Op: db.OpUpdate, Err: ctx.Err()}
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			if err := incr(txn, popularPrefix+query); err != nil {
				return err
			}
			if resultCount == 0 {
				if err := incr(txn, zeroPrefix+query); err != nil {
					return err
				}
			}
			return txn.Set([]byte(lastSeenPrefix+query), encode(uint64(at.UnixMilli())))
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return &db.Error{Op: db.OpUpdate, Err: err}
	}
	return nil
}

// TopQueries returns up to limit queries by descending count, ties by query.
func (s *Store) TopQueries(_ context.Context, limit int) ([]string, error) {
	return s.top(popularPrefix, limit)
}

// ZeroResultQueries returns up to limit queries that most often matched nothing.
func (s *Store) ZeroResultQueries(_ context.Context, limit int) ([]string, error) {
	return s.top(zeroPrefix, limit)
}

type counted struct {
	query string
	n     uint64
}

func (s *Store) top(prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}
	var all []counted
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			var n uint64
			if err := item.Value(func(v []byte) error {
				n = decode(v)
				return nil
			}); err != nil {
				return err
			}
			all = append(all, counted{query: string(item.Key()[len(prefix):]), n: n})
		}
		return nil
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpIterate, Err: err}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].n != all[j].n {
			return all[i].n > all[j].n
		}
		return all[i].query < all[j].query
	})
	if len(all) > limit {
		all = all[:limit]
	}
	out := make([]string, len(all))
	for i, c := range all {
		out[i] = c.query
	}
	return out, nil
}

// Count returns the popularity counter of query (0 when unseen).
func (s *Store) Count(query string) (uint64, error) {
	var n uint64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(popularPrefix + query))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			n = decode(v)
			return nil
		})
	})
	if err != nil {
		return 0, &db.Error{Op: db.OpIterate, Err: err}
	}
	return n, nil
}

func incr(txn *badger.Txn, key string) error {
	var n uint64
	item, err := txn.Get([]byte(key))
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
	case err != nil:
		return err
	default:
		if err := item.Value(func(v []byte) error {
			n = decode(v)
			return nil
		}); err != nil {
			return err
		}
	}
	return txn.Set([]byte(key), encode(n+1))
}

func encode(n uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

func decode(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
