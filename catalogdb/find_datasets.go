// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

package catalogdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/zeebo/errs"

	"github.com/mintproject/MINT-Data-Catalog/private/dbutil"
	"github.com/mintproject/MINT-Data-Catalog/query"
)

// internalTestProvenanceID marks records created by automated tests.
// Dataset search never returns them.
const internalTestProvenanceID = "e8287ea4-e6f2-47aa-8bfc-0c22852735c8"

var datasetSearchGrammar = query.Grammar{
	DefaultLimit: 20,
	Fields: []query.Field{
		{Name: "dataset_names", Kind: query.StringList, Operators: []query.Operator{query.OpIn}},
		{Name: "dataset_ids", Kind: query.UUIDList, Operators: []query.Operator{query.OpIn}},
		{Name: "standard_variable_names", Kind: query.StringList, Operators: []query.Operator{query.OpIn}},
		{Name: "standard_variable_ids", Kind: query.UUIDList, Operators: []query.Operator{query.OpIn}},
		{Name: "spatial_coverage", Kind: query.GeometryValue, Operators: []query.Operator{query.OpWithin, query.OpIntersects}},
		{Name: "start_time", Kind: query.Timestamp, DefaultOp: query.OpGTE, Operators: []query.Operator{query.OpGTE, query.OpGT, query.OpLTE, query.OpLT}},
		{Name: "end_time", Kind: query.Timestamp, DefaultOp: query.OpGTE, Operators: []query.Operator{query.OpGTE, query.OpGT, query.OpLTE, query.OpLT}},
	},
}

// FindDatasets contains arguments for FindDatasets.
type FindDatasets struct {
	Definition map[string]interface{}
}

// FindDatasets searches the dataset catalog with a declarative filter
// definition. Rows whose metadata carries an external source marker sort
// first; duplicates produced by the variable joins are folded away.
func (db *DB) FindDatasets(ctx context.Context, opts FindDatasets) (_ []DatasetSummary, err error) {
	defer mon.Task()(&ctx)(&err)

	filter, err := datasetSearchGrammar.Parse(opts.Definition)
	if err != nil {
		return nil, err
	}

	b := query.Select(
		"datasets.id", "datasets.name", "datasets.description", "datasets.json_metadata",
	).From("datasets")

	b.Where("datasets.provenance_id <> " + b.Bind(internalTestProvenanceID))

	if filter.Has("dataset_names") {
		pattern := query.NamePattern(filter.Get("dataset_names").Strings)
		b.Where("datasets.name ~* " + b.Bind(pattern))
	}
	if filter.Has("dataset_ids") {
		b.Where("datasets.id = ANY(" + b.Bind(dbutil.UUIDArray(filter.Get("dataset_ids").IDs)) + "::uuid[])")
	}

	if filter.Has("standard_variable_names") || filter.Has("standard_variable_ids") {
		requireStandardVariableJoins(b)
		if filter.Has("standard_variable_names") {
			pattern := query.NamePattern(filter.Get("standard_variable_names").Strings)
			b.Where("standard_variables.name ~* " + b.Bind(pattern))
		}
		if filter.Has("standard_variable_ids") {
			b.Where("standard_variables.id = ANY(" + b.Bind(dbutil.UUIDArray(filter.Get("standard_variable_ids").IDs)) + "::uuid[])")
		}
	}

	if filter.Has("start_time") {
		if err := query.CompileTime(b, "datasets.temporal_coverage_start", filter.Get("start_time")); err != nil {
			return nil, err
		}
	}
	if filter.Has("end_time") {
		if err := query.CompileTime(b, "datasets.temporal_coverage_end", filter.Get("end_time")); err != nil {
			return nil, err
		}
	}
	if filter.Has("spatial_coverage") {
		if err := query.CompileSpatial(b, "datasets.spatial_coverage", filter.Get("spatial_coverage")); err != nil {
			return nil, err
		}
	}

	b.OrderBy("(CASE WHEN datasets.json_metadata ? 'source' THEN 1 ELSE 0 END) DESC")
	b.Limit(filter.Limit)
	b.Offset(filter.Offset)

	rows, err := db.db.QueryContext(ctx, b.SQL(), b.Args()...)
	if err != nil {
		return nil, Error.New("unable to search datasets: %w", err)
	}
	defer func() { err = errs.Combine(err, rows.Close()) }()

	datasets := newFold[uuid.UUID, DatasetSummary]()
	for rows.Next() {
		var record DatasetSummary
		err := rows.Scan(&record.DatasetID, &record.DatasetName, &record.DatasetDescription, &record.DatasetMetadata)
		if err != nil {
			return nil, Error.New("unable to scan dataset: %w", err)
		}
		if _, ok := datasets.Get(record.DatasetID); !ok {
			datasets.Set(record.DatasetID, record)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, Error.Wrap(err)
	}

	return datasets.Values(), nil
}

// requireStandardVariableJoins joins datasets through their variables to
// standard variables. Each join is added at most once even when more
// than one filter clause requires it.
func requireStandardVariableJoins(b *query.SelectBuilder) {
	b.Join("variables", "JOIN variables ON variables.dataset_id = datasets.id")
	b.Join("variables_standard_variables",
		"JOIN variables_standard_variables ON variables_standard_variables.variable_id = variables.id")
	b.Join("standard_variables",
		"JOIN standard_variables ON standard_variables.id = variables_standard_variables.standard_variable_id")
}
