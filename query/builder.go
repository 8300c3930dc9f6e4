// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

package query

import (
	"regexp"
	"strconv"
	"strings"
)

// SelectBuilder assembles a SELECT statement out of predicate fragments.
// Every value reaches the statement through Bind, never through string
// interpolation.
type SelectBuilder struct {
	columns  []string
	distinct bool
	from     string
	joins    JoinSet
	where    []string
	orderBy  []string
	limit    int
	offset   int
	hasLimit bool

	args []interface{}
}

// Select starts a builder with the projection columns.
func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: columns}
}

// Distinct makes the projection distinct.
func (b *SelectBuilder) Distinct() *SelectBuilder {
	b.distinct = true
	return b
}

// From sets the base table.
func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.from = table
	return b
}

// Join requires a named join; requiring the same name twice adds the
// join once.
func (b *SelectBuilder) Join(name, sql string) *SelectBuilder {
	b.joins.Require(Join{Name: name, SQL: sql})
	return b
}

// HasJoin reports whether the named join is already required.
func (b *SelectBuilder) HasJoin(name string) bool {
	return b.joins.Has(name)
}

// Where adds a predicate; all predicates are ANDed together.
func (b *SelectBuilder) Where(cond string) *SelectBuilder {
	b.where = append(b.where, cond)
	return b
}

// OrderBy appends an ordering expression.
func (b *SelectBuilder) OrderBy(expr string) *SelectBuilder {
	b.orderBy = append(b.orderBy, expr)
	return b
}

// Limit applies a row limit.
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = n
	b.hasLimit = true
	return b
}

// Offset applies a row offset.
func (b *SelectBuilder) Offset(n int) *SelectBuilder {
	b.offset = n
	return b
}

// Bind registers a query argument and returns its placeholder.
func (b *SelectBuilder) Bind(value interface{}) string {
	b.args = append(b.args, value)
	return "$" + strconv.Itoa(len(b.args))
}

// Args returns the bound arguments in placeholder order. Call after SQL,
// which binds the limit and offset values.
func (b *SelectBuilder) Args() []interface{} {
	return b.args
}

// SQL assembles the statement. It must be called exactly once per builder.
func (b *SelectBuilder) SQL() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if b.distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(strings.Join(b.columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(b.from)
	for _, join := range b.joins.Joins() {
		sb.WriteString(" ")
		sb.WriteString(join.SQL)
	}
	if len(b.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.where, " AND "))
	}
	if len(b.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.orderBy, ", "))
	}
	if b.hasLimit {
		sb.WriteString(" LIMIT ")
		sb.WriteString(b.Bind(b.limit))
	}
	if b.offset > 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(b.Bind(b.offset))
	}
	return sb.String()
}

// NamePattern converts user-supplied names into the case-insensitive
// regular expression alternation used for name matching: '*' acts as a
// wildcard, every other regex metacharacter is escaped, and each name
// must appear bounded by start/end of string, whitespace, '_' or '-'.
func NamePattern(names []string) string {
	alternatives := make([]string, len(names))
	for i, name := range names {
		escaped := strings.ReplaceAll(regexp.QuoteMeta(name), `\*`, ".*")
		alternatives[i] = `(^|\s|_|\-)` + escaped + `($|\s|_|\-)`
	}
	return strings.Join(alternatives, "|")
}
