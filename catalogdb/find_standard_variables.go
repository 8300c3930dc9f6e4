// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

package catalogdb

import (
	"context"

	"github.com/zeebo/errs"

	"github.com/mintproject/MINT-Data-Catalog/private/dbutil"
	"github.com/mintproject/MINT-Data-Catalog/query"
)

var standardVariableSearchGrammar = query.Grammar{
	DefaultLimit: 100,
	Fields: []query.Field{
		{Name: "name", Kind: query.StringList, Operators: []query.Operator{query.OpIn}},
		{Name: "ontology", Kind: query.StringList, Operators: []query.Operator{query.OpIn}},
		{Name: "uri", Kind: query.StringList, Operators: []query.Operator{query.OpIn}},
	},
}

// FindStandardVariables contains arguments for FindStandardVariables.
type FindStandardVariables struct {
	Definition map[string]interface{}
}

// FindStandardVariables searches the standard variable registry. Names
// are matched as word-boundary patterns, ontologies and URIs exactly.
func (db *DB) FindStandardVariables(ctx context.Context, opts FindStandardVariables) (_ []StandardVariableRecord, err error) {
	defer mon.Task()(&ctx)(&err)

	filter, err := standardVariableSearchGrammar.Parse(opts.Definition)
	if err != nil {
		return nil, err
	}

	b := query.Select(
		"standard_variables.id", "standard_variables.ontology", "standard_variables.name",
		"standard_variables.uri", "standard_variables.description",
	).Distinct().From("standard_variables")

	if filter.Has("name") {
		pattern := query.NamePattern(filter.Get("name").Strings)
		b.Where("standard_variables.name ~* " + b.Bind(pattern))
	}
	if filter.Has("ontology") {
		b.Where("standard_variables.ontology = ANY(" + b.Bind(dbutil.TextArray(filter.Get("ontology").Strings)) + ")")
	}
	if filter.Has("uri") {
		b.Where("standard_variables.uri = ANY(" + b.Bind(dbutil.TextArray(filter.Get("uri").Strings)) + ")")
	}

	b.Limit(filter.Limit)
	b.Offset(filter.Offset)

	rows, err := db.db.QueryContext(ctx, b.SQL(), b.Args()...)
	if err != nil {
		return nil, Error.New("unable to search standard variables: %w", err)
	}
	defer func() { err = errs.Combine(err, rows.Close()) }()

	var records []StandardVariableRecord
	for rows.Next() {
		var record StandardVariableRecord
		err := rows.Scan(&record.StandardVariableID, &record.Ontology, &record.Name, &record.URI, &record.Description)
		if err != nil {
			return nil, Error.New("unable to scan standard variable: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, Error.Wrap(err)
	}

	return records, nil
}
