// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

package query

// Join is a named join fragment. The name identifies the join path, so
// that requiring the same join from multiple predicates adds it exactly
// once.
type Join struct {
	Name string
	SQL  string
}

// JoinSet collects the joins a query structurally requires, in the order
// they were first required, deduplicated by name.
type JoinSet struct {
	names map[string]bool
	joins []Join
}

// Require adds the join unless a join with the same name is already
// present.
func (s *JoinSet) Require(j Join) {
	if s.names == nil {
		s.names = make(map[string]bool)
	}
	if s.names[j.Name] {
		return
	}
	s.names[j.Name] = true
	s.joins = append(s.joins, j)
}

// Has reports whether a join with the name has been required.
func (s *JoinSet) Has(name string) bool {
	return s.names[name]
}

// Joins returns the required joins in first-required order.
func (s *JoinSet) Joins() []Join {
	return s.joins
}
