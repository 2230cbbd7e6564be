package db

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kailas-cloud/prodsearch/internal/domain/search/filter"
)

var columnPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidColumn reports whether name is safe to splice into SQL as an identifier.
func ValidColumn(name string) bool {
	return columnPattern.MatchString(name)
}

// Placeholder renders the n-th (1-based) bind parameter.
type Placeholder func(n int) string

// Dollar renders postgres-style $n placeholders.
func Dollar(n int) string { return "$" + strconv.Itoa(n) }

// Question renders sqlite-style ? placeholders.
func Question(int) string { return "?" }

// WhereBuilder is a fluent builder for parameterized WHERE clauses.
type WhereBuilder struct {
	ph      Placeholder
	clauses []string
	args    []any
	err     error
}

// NewWhere starts a WHERE clause using ph for bind parameters.
func NewWhere(ph Placeholder) *WhereBuilder {
	return &WhereBuilder{ph: ph}
}

// Cond adds a raw predicate. Each "?" in expr is replaced by the next placeholder,
// bound to the matching element of args.
func (b *WhereBuilder) Cond(expr string, args ...any) *WhereBuilder {
	if strings.Count(expr, "?") != len(args) {
		b.fail(fmt.Errorf("%w: %d markers for %d args in %q", ErrBadQuery, strings.Count(expr, "?"), len(args), expr))
		return b
	}
	var sb strings.Builder
	i := 0
	for _, r := range expr {
		if r == '?' {
			sb.WriteString(b.Arg(args[i]))
			i++
			continue
		}
		sb.WriteRune(r)
	}
	b.clauses = append(b.clauses, sb.String())
	return b
}

// Eq adds column = value. Invalid column names poison the builder.
func (b *WhereBuilder) Eq(column string, value any) *WhereBuilder {
	if !ValidColumn(column) {
		b.fail(fmt.Errorf("%w: invalid column %q", ErrBadQuery, column))
		return b
	}
	return b.Cond(column+" = ?", value)
}

// Filters adds one equality predicate per filter, in key order.
func (b *WhereBuilder) Filters(f filter.Filters) *WhereBuilder {
	for _, k := range f.Keys() {
		v, _ := f.Get(k)
		b.Eq(k, v.Any())
	}
	return b
}

// Arg binds value and returns its placeholder, for use outside the WHERE clause.
func (b *WhereBuilder) Arg(value any) string {
	b.args = append(b.args, value)
	return b.ph(len(b.args))
}

// Build returns the clause (empty when no predicate was added) and its args.
func (b *WhereBuilder) Build() (string, []any, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	if len(b.clauses) == 0 {
		return "", b.args, nil
	}
	return "WHERE " + strings.Join(b.clauses, " AND "), b.args, nil
}

// Args returns the bound args so far.
func (b *WhereBuilder) Args() []any { return b.args }

func (b *WhereBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}
