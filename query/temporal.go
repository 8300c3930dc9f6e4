// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

package query

import (
	"time"
)

// TimeFormat is the exact layout accepted for temporal filter values.
// No fuzzy parsing: anything else is rejected.
const TimeFormat = "2006-01-02T15:04:05"

// ParseTime parses a temporal filter value.
func ParseTime(value string) (time.Time, error) {
	return time.Parse(TimeFormat, value)
}

var timeComparators = map[Operator]string{
	OpGTE: ">=",
	OpGT:  ">",
	OpLTE: "<=",
	OpLT:  "<",
}

// CompileTime appends an inequality predicate to the builder, comparing
// the timestamp column with the clause's value under the clause operator.
func CompileTime(b *SelectBuilder, column string, clause Clause) error {
	cmp, ok := timeComparators[clause.Op]
	if !ok {
		return ErrInvalidDefinition.New("invalid filter operation: %s; must be one of 'gte', 'gt', 'lte', 'lt'", clause.Op)
	}
	b.Where(column + " " + cmp + " " + b.Bind(clause.Time))
	return nil
}
