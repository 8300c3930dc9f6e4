// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

// Package query implements the filter translation engine of the data
// catalog: it parses declarative `field[__operator]` filter definitions,
// validates them against per-endpoint grammars and compiles them into
// parameter-bound SQL predicates.
package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/errs"
)

// ErrInvalidDefinition is returned for query definitions that fail
// validation. It always surfaces as a bad request, before any store
// access happens.
var ErrInvalidDefinition = errs.Class("invalid query definition")

// Operator identifies a filter operator carried as a `__op` key suffix.
type Operator string

// All recognized operators.
const (
	OpIn         Operator = "in"
	OpGTE        Operator = "gte"
	OpGT         Operator = "gt"
	OpLTE        Operator = "lte"
	OpLT         Operator = "lt"
	OpWithin     Operator = "within"
	OpIntersects Operator = "intersects"
)

// ValueKind describes the shape a field's value must have.
type ValueKind int

// Value kinds for filter fields.
const (
	StringList ValueKind = iota
	UUIDList
	Timestamp
	GeometryValue
)

// Field describes one recognized filter field of a grammar.
type Field struct {
	Name      string
	Kind      ValueKind
	Operators []Operator
	// DefaultOp is assumed when the key carries no operator suffix.
	// Fields without a default require an explicit suffix.
	DefaultOp Operator
}

// Grammar is the allow-list of filter fields an endpoint recognizes.
type Grammar struct {
	Fields       []Field
	DefaultLimit int
}

// Clause is one validated filter term.
type Clause struct {
	Field    string
	Op       Operator
	Strings  []string
	IDs      []uuid.UUID
	Time     time.Time
	Geometry *Geometry
}

// Filter is a validated set of filter clauses plus pagination.
type Filter struct {
	Clauses map[string]Clause
	Limit   int
	Offset  int
}

// Has reports whether the filter contains a clause for the field.
func (f Filter) Has(field string) bool {
	_, ok := f.Clauses[field]
	return ok
}

// Get returns the clause for the field.
func (f Filter) Get(field string) Clause {
	return f.Clauses[field]
}

// SplitFieldOp splits a raw filter key into field name and operator
// suffix on the last occurrence of "__". The operator is empty when no
// suffix is present.
func SplitFieldOp(key string) (field string, op Operator) {
	if i := strings.LastIndex(key, "__"); i >= 0 {
		return key[:i], Operator(key[i+2:])
	}
	return key, ""
}

// Parse validates a raw query definition against the grammar and returns
// the typed filter set. The reserved keys limit and offset are consumed
// first; every remaining key must name an allowed field, carry an
// operator permitted for that field and a value of the field's kind.
func (g Grammar) Parse(definition map[string]interface{}) (Filter, error) {
	if len(definition) == 0 {
		return Filter{}, ErrInvalidDefinition.New("query definition must not be empty")
	}
	return g.parse(definition, true)
}

// ParseNested validates a nested filter block. Unlike Parse, an empty
// block is allowed and yields a filter with no clauses.
func (g Grammar) ParseNested(definition map[string]interface{}) (Filter, error) {
	return g.parse(definition, false)
}

func (g Grammar) parse(definition map[string]interface{}, required bool) (Filter, error) {
	filter := Filter{
		Clauses: make(map[string]Clause),
		Limit:   g.DefaultLimit,
	}

	rest := make(map[string]interface{}, len(definition))
	for key, value := range definition {
		rest[key] = value
	}

	if raw, ok := rest["limit"]; ok {
		delete(rest, "limit")
		limit, err := ParseInt(raw)
		if err != nil {
			return Filter{}, ErrInvalidDefinition.New("invalid value for 'limit': %v", raw)
		}
		filter.Limit = limit
	}
	if raw, ok := rest["offset"]; ok {
		delete(rest, "offset")
		offset, err := ParseInt(raw)
		if err != nil {
			return Filter{}, ErrInvalidDefinition.New("invalid value for 'offset': %v", raw)
		}
		filter.Offset = offset
	}

	if len(rest) == 0 {
		if required {
			return Filter{}, ErrInvalidDefinition.New("missing search field(s); must be either of %v", g.fieldNames())
		}
		return filter, nil
	}

	for key, value := range rest {
		name, op := SplitFieldOp(key)

		field, ok := g.lookup(name)
		if !ok {
			return Filter{}, ErrInvalidDefinition.New("invalid search field(s); must be either of %v", g.fieldNames())
		}
		if op == "" {
			op = field.DefaultOp
		}
		if !field.allows(op) {
			return Filter{}, ErrInvalidDefinition.New("invalid filter operation for '%s': %s", field.Name, op)
		}

		clause, err := field.parseValue(op, value)
		if err != nil {
			return Filter{}, err
		}
		filter.Clauses[field.Name] = clause
	}

	return filter, nil
}

func (g Grammar) lookup(name string) (Field, bool) {
	for _, field := range g.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

func (g Grammar) fieldNames() []string {
	names := make([]string, len(g.Fields))
	for i, field := range g.Fields {
		names[i] = field.Name
	}
	return names
}

func (f Field) allows(op Operator) bool {
	for _, allowed := range f.Operators {
		if allowed == op {
			return true
		}
	}
	return false
}

func (f Field) parseValue(op Operator, value interface{}) (Clause, error) {
	clause := Clause{Field: f.Name, Op: op}

	switch f.Kind {
	case StringList:
		values, err := stringList(f.Name, value)
		if err != nil {
			return Clause{}, err
		}
		clause.Strings = values

	case UUIDList:
		values, err := stringList(f.Name, value)
		if err != nil {
			return Clause{}, err
		}
		ids := make([]uuid.UUID, len(values))
		for i, v := range values {
			id, err := uuid.Parse(v)
			if err != nil {
				return Clause{}, ErrInvalidDefinition.New("invalid values for '%s': must be an array of uuid strings", f.Name)
			}
			ids[i] = id
		}
		clause.IDs = ids

	case Timestamp:
		s, ok := value.(string)
		if !ok {
			return Clause{}, ErrInvalidDefinition.New("invalid datetime format for '%s': %v; must be formatted according to ISO8601: 'YYYY-MM-DDTHH:MM:SS'", f.Name, value)
		}
		t, err := ParseTime(s)
		if err != nil {
			return Clause{}, ErrInvalidDefinition.New("invalid datetime format for '%s': %v; must be formatted according to ISO8601: 'YYYY-MM-DDTHH:MM:SS'", f.Name, value)
		}
		clause.Time = t

	case GeometryValue:
		geometry, err := ParseGeometry(value)
		if err != nil {
			return Clause{}, ErrInvalidDefinition.New("invalid filter value for '%s': %v", f.Name, err)
		}
		clause.Geometry = geometry

	default:
		return Clause{}, ErrInvalidDefinition.New("unsupported value kind for '%s'", f.Name)
	}

	return clause, nil
}

func stringList(field string, value interface{}) ([]string, error) {
	list, ok := value.([]interface{})
	if !ok {
		return nil, ErrInvalidDefinition.New("invalid filter value type for '%s': %v; must be an array of values", field, value)
	}
	if len(list) == 0 {
		return nil, ErrInvalidDefinition.New("invalid filter value for '%s': %v", field, value)
	}
	values := make([]string, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, ErrInvalidDefinition.New("invalid filter value type for '%s': %v; must be an array of strings", field, value)
		}
		values[i] = s
	}
	return values, nil
}

// ParseInt coerces a raw definition value into an int.
func ParseInt(value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("not an integer: %v", value)
	}
}
