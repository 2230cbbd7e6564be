package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kailas-cloud/prodsearch/internal/db"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/strategy"
)

// Compile-time check: Store implements db.ProductStore.
var _ db.ProductStore = (*Store)(nil)

const (
	defaultFullTextColumn = "search_vector"
	defaultTextConfig     = "simple"
	productColumns        = "id, name, description, keywords, trend_score, recommendation_score, sales_rank, price, created_at"
)

// Config holds connection parameters for the products table.
type Config struct {
	DSN            string
	MaxConns       int32
	Table          string
	FullTextColumn string
	TextConfig     string
}

// pool is the subset of pgxpool.Pool the store needs (pgxmock satisfies it).
type pool interface {
	Ping(ctx context.Context) error
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store reads products from PostgreSQL.
type Store struct {
	pool       pool
	table      string
	ftColumn   string
	textConfig string
}

// NewStore opens a pgx pool. The pool connects lazily; use WaitForReady to block.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	p, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	return newStore(p, cfg)
}

func newStore(p pool, cfg Config) (*Store, error) {
	s := &Store{
		pool:       p,
		table:      cfg.Table,
		ftColumn:   cfg.FullTextColumn,
		textConfig: cfg.TextConfig,
	}
	if s.table == "" {
		s.table = "products"
	}
	if s.ftColumn == "" {
		s.ftColumn = defaultFullTextColumn
	}
	if s.textConfig == "" {
		s.textConfig = defaultTextConfig
	}
	if !db.ValidColumn(s.table) || !db.ValidColumn(s.ftColumn) || !db.ValidColumn(s.textConfig) {
		return nil, fmt.Errorf("invalid identifier in table %q, column %q or text config %q", s.table, s.ftColumn, s.textConfig)
	}
	return s, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return wrap(db.OpPing, err)
	}
	return nil
}

// Close shuts down the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// WaitForReady polls Ping until the database responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// SearchProducts counts all matches, then fetches one page ordered by id.
func (s *Store) SearchProducts(ctx context.Context, q *db.ProductQuery) (*db.ProductPage, error) {
	where := db.NewWhere(db.Dollar)
	if q.Text != "" {
		switch q.Strategy {
		case strategy.FullText:
			where.Cond(fmt.Sprintf("%s @@ plainto_tsquery('%s', ?)", s.ftColumn, s.textConfig), q.Text)
		default:
			pattern := "%" + escapeLike(q.Text) + "%"
			where.Cond("(name ILIKE ? OR description ILIKE ?)", pattern, pattern)
		}
	}
	where.Filters(q.Filters)

	clause, args, err := where.Build()
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}

	var total int
	countSQL := strings.TrimSpace(fmt.Sprintf("SELECT COUNT(*) FROM %s %s", s.table, clause))
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, wrap(db.OpCount, err)
	}
	if total == 0 || q.Offset >= total {
		return &db.ProductPage{Rows: []db.ProductRow{}, Total: total}, nil
	}

	limitPh := where.Arg(q.Limit)
	offsetPh := where.Arg(q.Offset)
	pageSQL := fmt.Sprintf("SELECT %s FROM %s %s ORDER BY id LIMIT %s OFFSET %s",
		productColumns, s.table, clause, limitPh, offsetPh)
	pageSQL = strings.Join(strings.Fields(pageSQL), " ")

	rows, err := s.pool.Query(ctx, pageSQL, where.Args()...)
	if err != nil {
		return nil, wrap(db.OpSelect, err)
	}
	defer rows.Close()

	out := make([]db.ProductRow, 0, q.Limit)
	for rows.Next() {
		var r db.ProductRow
		if err := rows.Scan(
			&r.ID, &r.Name, &r.Description, &r.Keywords,
			&r.TrendScore, &r.RecommendationScore, &r.SalesRank, &r.Price, &r.CreatedAt,
		); err != nil {
			return nil, wrap(db.OpScan, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(db.OpScan, err)
	}
	return &db.ProductPage{Rows: out, Total: total}, nil
}

// wrap tags err with op and marks connection failures as unavailable.
func wrap(op string, err error) error {
	var (
		ce *pgconn.ConnectError
		ne *net.OpError
	)
	if errors.As(err, &ce) || errors.As(err, &ne) {
		return &db.Error{Op: op, Err: fmt.Errorf("%w: %w", db.ErrUnavailable, err)}
	}
	return &db.Error{Op: op, Err: err}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
