// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

package catalogdb

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/errs"

	"github.com/mintproject/MINT-Data-Catalog/query"
)

var resourceFilterGrammar = query.Grammar{
	DefaultLimit: 200,
	Fields: []query.Field{
		{Name: "spatial_coverage", Kind: query.GeometryValue, Operators: []query.Operator{query.OpWithin, query.OpIntersects}},
		{Name: "start_time", Kind: query.Timestamp, DefaultOp: query.OpGTE, Operators: []query.Operator{query.OpGTE, query.OpGT, query.OpLTE, query.OpLT}},
		{Name: "end_time", Kind: query.Timestamp, DefaultOp: query.OpGTE, Operators: []query.Operator{query.OpGTE, query.OpGT, query.OpLTE, query.OpLT}},
	},
}

// DatasetResources contains arguments for DatasetResources. The nested
// filter is optional and constrains resources by their coverage index
// entries.
type DatasetResources struct {
	DatasetID uuid.UUID
	Filter    map[string]interface{}
	Limit     int
}

// Verify verifies the request fields.
func (opts DatasetResources) Verify() error {
	if opts.DatasetID == uuid.Nil {
		return ErrValidation.New("dataset_id missing")
	}
	return nil
}

// DatasetResources lists the resources of a dataset, optionally narrowed
// by spatial and temporal coverage. When an end_time clause is present
// the rows are ordered by coverage end time, newest first.
func (db *DB) DatasetResources(ctx context.Context, opts DatasetResources) (_ DatasetResourcesRecord, err error) {
	defer mon.Task()(&ctx)(&err)

	if err := opts.Verify(); err != nil {
		return DatasetResourcesRecord{}, err
	}

	filter, err := resourceFilterGrammar.ParseNested(opts.Filter)
	if err != nil {
		return DatasetResourcesRecord{}, err
	}
	if opts.Limit > 0 {
		filter.Limit = opts.Limit
	}

	b := query.Select(
		"resources.id", "resources.name", "resources.data_url", "resources.created_at",
		"resources.resource_type", "resources.json_metadata",
	).From("resources")

	b.Where("resources.dataset_id = " + b.Bind(opts.DatasetID))

	if filter.Has("start_time") || filter.Has("end_time") {
		b.Join("temporal_coverage_index",
			"JOIN temporal_coverage_index ON temporal_coverage_index.indexed_id = resources.id"+
				" AND temporal_coverage_index.indexed_type = "+b.Bind(indexedTypeResource))
		if filter.Has("start_time") {
			if err := query.CompileTime(b, "temporal_coverage_index.start_time", filter.Get("start_time")); err != nil {
				return DatasetResourcesRecord{}, err
			}
		}
		if filter.Has("end_time") {
			if err := query.CompileTime(b, "temporal_coverage_index.end_time", filter.Get("end_time")); err != nil {
				return DatasetResourcesRecord{}, err
			}
			b.OrderBy("temporal_coverage_index.end_time DESC")
		}
	}

	if filter.Has("spatial_coverage") {
		b.Join("spatial_coverage_index",
			"JOIN spatial_coverage_index ON spatial_coverage_index.indexed_id = resources.id"+
				" AND spatial_coverage_index.indexed_type = "+b.Bind(indexedTypeResource))
		if err := query.CompileSpatial(b, "spatial_coverage_index.spatial_coverage", filter.Get("spatial_coverage")); err != nil {
			return DatasetResourcesRecord{}, err
		}
	}

	b.Limit(filter.Limit)

	rows, err := db.db.QueryContext(ctx, b.SQL(), b.Args()...)
	if err != nil {
		return DatasetResourcesRecord{}, Error.New("unable to query dataset resources: %w", err)
	}
	defer func() { err = errs.Combine(err, rows.Close()) }()

	record := DatasetResourcesRecord{
		DatasetID: opts.DatasetID,
		Resources: []ResourceRecord{},
	}
	for rows.Next() {
		var resource ResourceRecord
		var createdAt time.Time
		err := rows.Scan(&resource.ResourceID, &resource.ResourceName, &resource.ResourceDataURL,
			&createdAt, &resource.ResourceType, &resource.ResourceMetadata)
		if err != nil {
			return DatasetResourcesRecord{}, Error.New("unable to scan resource: %w", err)
		}
		resource.ResourceCreatedAt = createdAt.Format(query.TimeFormat)
		record.Resources = append(record.Resources, resource)
	}
	if err := rows.Err(); err != nil {
		return DatasetResourcesRecord{}, Error.Wrap(err)
	}

	return record, nil
}

// GetDatasetTemporalCoverage contains arguments for
// DatasetTemporalCoverage.
type GetDatasetTemporalCoverage struct {
	DatasetID uuid.UUID
}

// Verify verifies the request fields.
func (opts GetDatasetTemporalCoverage) Verify() error {
	if opts.DatasetID == uuid.Nil {
		return ErrValidation.New("dataset_id missing")
	}
	return nil
}

// DatasetTemporalCoverage aggregates the time extent of a dataset over
// the coverage index entries of its resources.
func (db *DB) DatasetTemporalCoverage(ctx context.Context, opts GetDatasetTemporalCoverage) (_ TemporalCoverageRecord, err error) {
	defer mon.Task()(&ctx)(&err)

	if err := opts.Verify(); err != nil {
		return TemporalCoverageRecord{}, err
	}

	var start, end sql.NullTime
	err = db.db.QueryRowContext(ctx, `
		SELECT MIN(temporal_coverage_index.start_time), MAX(temporal_coverage_index.end_time)
		FROM temporal_coverage_index
		JOIN resources ON resources.id = temporal_coverage_index.indexed_id
		WHERE temporal_coverage_index.indexed_type = $1
			AND resources.dataset_id = $2
	`, indexedTypeResource, opts.DatasetID).Scan(&start, &end)
	if err != nil {
		return TemporalCoverageRecord{}, Error.New("unable to query temporal coverage: %w", err)
	}

	record := TemporalCoverageRecord{DatasetID: opts.DatasetID}
	if start.Valid {
		record.TemporalCoverageStart = formatTime(start.Time)
	}
	if end.Valid {
		record.TemporalCoverageEnd = formatTime(end.Time)
	}
	return record, nil
}
