// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

package catalogdb

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/errs"

	"github.com/mintproject/MINT-Data-Catalog/private/dbutil"
	"github.com/mintproject/MINT-Data-Catalog/query"
)

const searchDefaultLimit = 500

// SearchDatasets contains arguments for SearchDatasets.
type SearchDatasets struct {
	Definition map[string]interface{}
}

type searchRequest struct {
	keywords     []string
	provenanceID *uuid.UUID
	spatial      *query.Geometry
	start, end   *time.Time
	limit        int
}

// SearchDatasets runs a full-text search over dataset names and
// descriptions, optionally narrowed by provenance, spatial intersection
// and temporal overlap. Hits are ranked by text relevance, external
// source records first, and returned with their variables attached.
func (db *DB) SearchDatasets(ctx context.Context, opts SearchDatasets) (_ []SearchDatasetRecord, err error) {
	defer mon.Task()(&ctx)(&err)

	req, err := parseSearchDefinition(opts.Definition)
	if err != nil {
		return nil, err
	}

	b := query.Select(
		"datasets.id", "datasets.name", "datasets.description", "datasets.json_metadata",
		"COALESCE(ST_AsGeoJSON(datasets.spatial_coverage), '{}')",
	).From("datasets")

	if req.provenanceID != nil {
		b.Where("datasets.provenance_id = " + b.Bind(*req.provenanceID))
	}
	if req.keywords != nil {
		tsquery := tsqueryString(req.keywords)
		b.Where("datasets.tsv @@ to_tsquery('english', " + b.Bind(tsquery) + ")")
		b.OrderBy("ts_rank_cd(datasets.tsv, to_tsquery('english', " + b.Bind(tsquery) + ")) DESC")
		b.OrderBy("(CASE WHEN datasets.json_metadata -> 'source' IS NOT NULL THEN 1 ELSE 0 END) DESC")
	}
	if req.spatial != nil {
		err := query.CompileSpatial(b, "datasets.spatial_coverage", query.Clause{
			Op:       query.OpIntersects,
			Geometry: req.spatial,
		})
		if err != nil {
			return nil, err
		}
	}
	// Temporal overlap: a dataset matches when its coverage window
	// intersects the requested one.
	if req.start != nil {
		b.Where("datasets.temporal_coverage_end >= " + b.Bind(*req.start))
	}
	if req.end != nil {
		b.Where("datasets.temporal_coverage_start <= " + b.Bind(*req.end))
	}

	b.Limit(req.limit)

	rows, err := db.db.QueryContext(ctx, b.SQL(), b.Args()...)
	if err != nil {
		return nil, Error.New("unable to search datasets: %w", err)
	}
	defer func() { err = errs.Combine(err, rows.Close()) }()

	datasets := newFold[uuid.UUID, SearchDatasetRecord]()
	for rows.Next() {
		var record SearchDatasetRecord
		err := rows.Scan(&record.DatasetID, &record.DatasetName, &record.DatasetDescription,
			&record.DatasetMetadata, &record.DatasetSpatialCoverage)
		if err != nil {
			return nil, Error.New("unable to scan search hit: %w", err)
		}
		record.Variables = []SearchVariableRecord{}
		if _, ok := datasets.Get(record.DatasetID); !ok {
			datasets.Set(record.DatasetID, record)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, Error.Wrap(err)
	}

	if datasets.Len() > 0 {
		if err := db.attachSearchVariables(ctx, datasets); err != nil {
			return nil, err
		}
	}

	return datasets.Values(), nil
}

func parseSearchDefinition(definition map[string]interface{}) (req searchRequest, err error) {
	if len(definition) == 0 {
		return req, query.ErrInvalidDefinition.New("query definition must not be empty")
	}

	req.limit = searchDefaultLimit
	allowed := []string{"search_query", "provenance_id", "spatial_coverage", "temporal_coverage"}

	for key, value := range definition {
		switch key {
		case "limit":
			limit, err := query.ParseInt(value)
			if err != nil {
				return req, query.ErrInvalidDefinition.New("invalid value for 'limit': %v", value)
			}
			req.limit = limit

		case "search_query":
			raw, ok := value.([]interface{})
			if !ok {
				return req, query.ErrInvalidDefinition.New("invalid value type for 'search_query': %v; must be an array", value)
			}
			keywords := make([]string, 0, len(raw))
			for _, item := range raw {
				keyword, ok := item.(string)
				if !ok {
					return req, query.ErrInvalidDefinition.New("invalid value type for 'search_query': %v; must be an array of strings", value)
				}
				keywords = append(keywords, keyword)
			}
			req.keywords = keywords

		case "provenance_id":
			s, _ := value.(string)
			id, err := uuid.Parse(s)
			if err != nil {
				return req, query.ErrInvalidDefinition.New("'provenance_id' value must be a valid UUID v4; received %v", value)
			}
			req.provenanceID = &id

		case "spatial_coverage":
			obj, ok := value.(map[string]interface{})
			if !ok {
				return req, query.ErrInvalidDefinition.New("invalid value for 'spatial_coverage': %v; must be a GeoJSON geometry", value)
			}
			geometry, err := query.ParseGeometry(obj)
			if err != nil {
				return req, err
			}
			req.spatial = geometry

		case "temporal_coverage":
			window, ok := value.(map[string]interface{})
			if !ok {
				return req, query.ErrInvalidDefinition.New("invalid value for 'temporal_coverage': %v; must be an object with 'start_time' and 'end_time'", value)
			}
			if raw, ok := window["start_time"]; ok {
				t, err := parseWindowTime("start_time", raw)
				if err != nil {
					return req, err
				}
				req.start = t
			}
			if raw, ok := window["end_time"]; ok {
				t, err := parseWindowTime("end_time", raw)
				if err != nil {
					return req, err
				}
				req.end = t
			}

		default:
			return req, query.ErrInvalidDefinition.New("invalid search field(s); must be either of %v", allowed)
		}
	}

	return req, nil
}

func parseWindowTime(field string, value interface{}) (*time.Time, error) {
	s, ok := value.(string)
	if !ok {
		return nil, query.ErrInvalidDefinition.New("invalid value for '%s': %v", field, value)
	}
	t, err := query.ParseTime(s)
	if err != nil {
		return nil, query.ErrInvalidDefinition.New("invalid datetime format for '%s': %v; must be formatted according to ISO8601: '%s'", field, value, query.TimeFormat)
	}
	return &t, nil
}

// tsqueryString joins keywords into a to_tsquery expression, quoting
// each so multi-word phrases stay intact.
func tsqueryString(keywords []string) string {
	quoted := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		quoted = append(quoted, "'"+strings.ReplaceAll(keyword, "'", "''")+"'")
	}
	return strings.Join(quoted, " & ")
}

func (db *DB) attachSearchVariables(ctx context.Context, datasets *fold[uuid.UUID, SearchDatasetRecord]) (err error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT
			variables.dataset_id, variables.id, variables.name, variables.json_metadata,
			standard_variables.id, standard_variables.name, standard_variables.uri
		FROM variables
		LEFT JOIN variables_standard_variables ON variables.id = variables_standard_variables.variable_id
		LEFT JOIN standard_variables ON variables_standard_variables.standard_variable_id = standard_variables.id
		WHERE variables.dataset_id = ANY($1::uuid[])
	`, dbutil.UUIDArray(datasets.Keys()))
	if err != nil {
		return Error.New("unable to query search variables: %w", err)
	}
	defer func() { err = errs.Combine(err, rows.Close()) }()

	type variableKey struct {
		datasetID  uuid.UUID
		variableID uuid.UUID
	}
	variables := newFold[variableKey, SearchVariableRecord]()

	for rows.Next() {
		var datasetID uuid.UUID
		var record SearchVariableRecord
		var standardVariableID uuid.NullUUID
		var name, uri sql.NullString

		err := rows.Scan(&datasetID, &record.VariableID, &record.VariableName, &record.VariableMetadata,
			&standardVariableID, &name, &uri)
		if err != nil {
			return Error.New("unable to scan search variable: %w", err)
		}

		key := variableKey{datasetID: datasetID, variableID: record.VariableID}
		if existing, ok := variables.Get(key); ok {
			record = existing
		} else {
			record.StandardVariables = []StandardVariableShortcut{}
		}
		if standardVariableID.Valid {
			record.StandardVariables = append(record.StandardVariables, StandardVariableShortcut{
				StandardVariableID:   standardVariableID.UUID,
				StandardVariableName: name.String,
				StandardVariableURI:  uri.String,
			})
		}
		variables.Set(key, record)
	}
	if err := rows.Err(); err != nil {
		return Error.Wrap(err)
	}

	for _, key := range variables.Keys() {
		variable, _ := variables.Get(key)
		dataset, ok := datasets.Get(key.datasetID)
		if !ok {
			continue
		}
		dataset.Variables = append(dataset.Variables, variable)
		datasets.Set(key.datasetID, dataset)
	}
	return nil
}
