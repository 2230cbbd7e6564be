// Package sqlite is an embedded product store for local runs and tests.
// Full-text search uses an FTS5 index kept in sync by triggers.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kailas-cloud/prodsearch/internal/db"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/strategy"
)

// Compile-time check: Store implements db.ProductStore.
var _ db.ProductStore = (*Store)(nil)

// DriverName is the database/sql driver name registered by modernc.
const DriverName = "sqlite"

const productColumns = "id, name, description, keywords, trend_score, recommendation_score, sales_rank, price, created_at"

// Config holds the database location.
type Config struct {
	// DSN is a file path or ":memory:".
	DSN string
}

// Store reads and seeds products in SQLite.
type Store struct {
	conn *sql.DB
}

// NewStore opens the database and applies migrations.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	conn, err := sql.Open(DriverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: single writer, and ":memory:" databases are per-connection.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if cfg.DSN != ":memory:" {
		if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}
	if err := Migrate(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, &db.Error{Op: db.OpMigrate, Err: err}
	}
	return &Store{conn: conn}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.conn.PingContext(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: fmt.Errorf("%w: %w", db.ErrUnavailable, err)}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() {
	_ = s.conn.Close()
}

// WaitForReady returns once Ping succeeds. An embedded database is ready as soon as it is open.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	return nil
}

// SearchProducts counts all matches, then fetches one page ordered by id.
func (s *Store) SearchProducts(ctx context.Context, q *db.ProductQuery) (*db.ProductPage, error) {
	where := db.NewWhere(db.Question)
	if q.Text != "" {
		switch q.Strategy {
		case strategy.FullText:
			where.Cond("pk IN (SELECT rowid FROM products_fts WHERE products_fts MATCH ?)", matchExpr(q.Text))
		default:
			pattern := "%" + escapeLike(q.Text) + "%"
			where.Cond(`(name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`, pattern, pattern)
		}
	}
	where.Filters(q.Filters)

	clause, args, err := where.Build()
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}

	var total int
	countSQL := strings.TrimSpace("SELECT COUNT(*) FROM products " + clause)
	if err := s.conn.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, &db.Error{Op: db.OpCount, Err: err}
	}
	if total == 0 || q.Offset >= total {
		return &db.ProductPage{Rows: []db.ProductRow{}, Total: total}, nil
	}

	limitPh := where.Arg(q.Limit)
	offsetPh := where.Arg(q.Offset)
	pageSQL := strings.Join(strings.Fields(fmt.Sprintf(
		"SELECT %s FROM products %s ORDER BY id LIMIT %s OFFSET %s",
		productColumns, clause, limitPh, offsetPh)), " ")

	rows, err := s.conn.QueryContext(ctx, pageSQL, where.Args()...)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	defer rows.Close()

	out := make([]db.ProductRow, 0, q.Limit)
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpScan, Err: err}
	}
	return &db.ProductPage{Rows: out, Total: total}, nil
}

func scanRow(rows *sql.Rows) (db.ProductRow, error) {
	var (
		r           db.ProductRow
		description sql.NullString
		keywords    sql.NullString
		trend       sql.NullFloat64
		rec         sql.NullFloat64
		salesRank   sql.NullInt64
		price       sql.NullFloat64
		createdAt   sql.NullInt64
	)
	if err := rows.Scan(&r.ID, &r.Name, &description, &keywords, &trend, &rec, &salesRank, &price, &createdAt); err != nil {
		return r, err
	}
	if description.Valid {
		r.Description = &description.String
	}
	if keywords.Valid && keywords.String != "" {
		if err := json.Unmarshal([]byte(keywords.String), &r.Keywords); err != nil {
			return r, fmt.Errorf("decode keywords of %s: %w", r.ID, err)
		}
	}
	if trend.Valid {
		r.TrendScore = &trend.Float64
	}
	if rec.Valid {
		r.RecommendationScore = &rec.Float64
	}
	if salesRank.Valid {
		r.SalesRank = &salesRank.Int64
	}
	if price.Valid {
		r.Price = &price.Float64
	}
	if createdAt.Valid {
		t := time.UnixMilli(createdAt.Int64).UTC()
		r.CreatedAt = &t
	}
	return r, nil
}

// Product is a row plus its filterable attributes, used for seeding.
type Product struct {
	db.ProductRow
	Attrs map[string]any
}

// Upsert inserts or replaces products by id.
func (s *Store) Upsert(ctx context.Context, products ...Product) (err error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return &db.Error{Op: db.OpUpdate, Err: err}
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i := range products {
		query, args, err := upsertStatement(&products[i])
		if err != nil {
			return &db.Error{Op: db.OpUpdate, Err: err}
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return &db.Error{Op: db.OpUpdate, Err: fmt.Errorf("upsert %s: %w", products[i].ID, err)}
		}
	}
	if err := tx.Commit(); err != nil {
		return &db.Error{Op: db.OpUpdate, Err: err}
	}
	return nil
}

func upsertStatement(p *Product) (string, []any, error) {
	var keywords any
	if p.Keywords != nil {
		b, err := json.Marshal(p.Keywords)
		if err != nil {
			return "", nil, fmt.Errorf("encode keywords: %w", err)
		}
		keywords = string(b)
	}
	var createdAt any
	if p.CreatedAt != nil {
		createdAt = p.CreatedAt.UnixMilli()
	}

	cols := strings.Split(productColumns, ", ")
	args := []any{
		p.ID, p.Name, p.Description, keywords,
		p.TrendScore, p.RecommendationScore, p.SalesRank, p.Price, createdAt,
	}
	attrKeys := make([]string, 0, len(p.Attrs))
	for k := range p.Attrs {
		attrKeys = append(attrKeys, k)
	}
	sort.Strings(attrKeys)
	for _, k := range attrKeys {
		if !db.ValidColumn(k) {
			return "", nil, fmt.Errorf("%w: invalid column %q", db.ErrBadQuery, k)
		}
		cols = append(cols, k)
		args = append(args, p.Attrs[k])
	}

	updates := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		updates = append(updates, c+" = excluded."+c)
	}
	query := fmt.Sprintf("INSERT INTO products (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
		strings.Join(updates, ", "))
	return query, args, nil
}

// matchExpr quotes each term so FTS5 operators in user text are literals.
// Terms are implicitly ANDed.
func matchExpr(text string) string {
	terms := strings.Fields(text)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
