// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

package catalogdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/zeebo/errs"

	"github.com/mintproject/MINT-Data-Catalog/private/dbutil"
	"github.com/mintproject/MINT-Data-Catalog/query"
)

// SpatialCoverageDefinition is the spatial extent of a record supplied
// at registration time.
type SpatialCoverageDefinition struct {
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

// TemporalCoverageDefinition is the time extent of a record supplied at
// registration time.
type TemporalCoverageDefinition struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// ProvenanceDefinition describes a provenance record to register.
type ProvenanceDefinition struct {
	RecordID       string   `json:"record_id"`
	Name           string   `json:"name"`
	ProvenanceType string   `json:"provenance_type"`
	Metadata       Metadata `json:"metadata"`
}

// DatasetDefinition describes a dataset to register.
type DatasetDefinition struct {
	RecordID         string                      `json:"record_id"`
	ProvenanceID     string                      `json:"provenance_id"`
	Name             string                      `json:"name"`
	Description      string                      `json:"description"`
	Metadata         Metadata                    `json:"metadata"`
	SpatialCoverage  *SpatialCoverageDefinition  `json:"spatial_coverage"`
	TemporalCoverage *TemporalCoverageDefinition `json:"temporal_coverage"`
}

// StandardVariableDefinition describes a standard variable to register.
type StandardVariableDefinition struct {
	RecordID    string `json:"record_id"`
	Ontology    string `json:"ontology"`
	Name        string `json:"name"`
	URI         string `json:"uri"`
	Description string `json:"description"`
}

// VariableDefinition describes a variable to register.
type VariableDefinition struct {
	RecordID            string   `json:"record_id"`
	DatasetID           string   `json:"dataset_id"`
	Name                string   `json:"name"`
	Metadata            Metadata `json:"metadata"`
	StandardVariableIDs []string `json:"standard_variable_ids"`
}

// ResourceDefinition describes a resource to register.
type ResourceDefinition struct {
	RecordID         string                      `json:"record_id"`
	DatasetID        string                      `json:"dataset_id"`
	ProvenanceID     string                      `json:"provenance_id"`
	Name             string                      `json:"name"`
	ResourceType     string                      `json:"resource_type"`
	DataURL          string                      `json:"data_url"`
	Metadata         Metadata                    `json:"metadata"`
	Layout           Metadata                    `json:"layout"`
	VariableIDs      []string                    `json:"variable_ids"`
	SpatialCoverage  *SpatialCoverageDefinition  `json:"spatial_coverage"`
	TemporalCoverage *TemporalCoverageDefinition `json:"temporal_coverage"`
}

// ensureRecordID fills in a generated id when the definition omits one
// and validates the result.
func ensureRecordID(field, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.New(), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrValidation.New("invalid value for '%s': %s", field, raw)
	}
	return id, nil
}

func parseRequiredID(field, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, ErrValidation.New("%s must not be empty", field)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrValidation.New("invalid value for '%s': %s", field, raw)
	}
	return id, nil
}

func verifyBatchSize(kind string, n int) error {
	if n == 0 {
		return ErrValidation.New("missing parameter or its value is empty: %q", kind)
	}
	if n > maxBatchSize {
		return ErrValidation.New("maximum number of records per call cannot exceed %d; received %d", maxBatchSize, n)
	}
	return nil
}

// ewkt converts a spatial coverage definition into an extended WKT
// literal understood by ST_GeomFromEWKT.
func (def *SpatialCoverageDefinition) ewkt() (string, error) {
	switch def.Type {
	case "WKT_POLYGON":
		wkt, ok := def.Value.(string)
		if !ok || wkt == "" {
			return "", ErrValidation.New("invalid value for WKT_POLYGON type: %v", def.Value)
		}
		return fmt.Sprintf("SRID=%d;%s", query.LocationSRID, wkt), nil

	case "BoundingBox":
		value, ok := def.Value.(map[string]interface{})
		if !ok {
			return "", ErrValidation.New("invalid value for BoundingBox type: %v", def.Value)
		}
		var bounds [4]float64
		for i, key := range []string{"xmin", "ymin", "xmax", "ymax"} {
			f, ok := toFloat(value[key])
			if !ok {
				return "", ErrValidation.New("missing or invalid '%s' in BoundingBox value", key)
			}
			bounds[i] = f
		}
		xmin, ymin, xmax, ymax := bounds[0], bounds[1], bounds[2], bounds[3]
		return fmt.Sprintf("SRID=%d;POLYGON ((%v %v, %v %v, %v %v, %v %v, %v %v))",
			query.LocationSRID, xmin, ymin, xmin, ymax, xmax, ymax, xmax, ymin, xmin, ymin), nil

	case "Point":
		value, ok := def.Value.(map[string]interface{})
		if !ok {
			return "", ErrValidation.New("invalid value for Point type: %v", def.Value)
		}
		x, okx := toFloat(value["x"])
		y, oky := toFloat(value["y"])
		if !okx || !oky {
			return "", ErrValidation.New("missing or invalid coordinates in Point value")
		}
		return fmt.Sprintf("SRID=%d;POINT (%v %v)", query.LocationSRID, x, y), nil

	default:
		return "", ErrValidation.New("invalid spatial coverage type: %s; must be one of WKT_POLYGON, BoundingBox, Point", def.Type)
	}
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func (def *TemporalCoverageDefinition) window() (TemporalCoverage, error) {
	start, err := query.ParseTime(def.StartTime)
	if err != nil {
		return TemporalCoverage{}, ErrValidation.New("%s does not match ISO8601 datetime format '%s'", def.StartTime, query.TimeFormat)
	}
	end, err := query.ParseTime(def.EndTime)
	if err != nil {
		return TemporalCoverage{}, ErrValidation.New("%s does not match ISO8601 datetime format '%s'", def.EndTime, query.TimeFormat)
	}
	return TemporalCoverage{StartTime: start, EndTime: end}, nil
}

// RegisterProvenance upserts a provenance record and returns it with
// its assigned id.
func (db *DB) RegisterProvenance(ctx context.Context, def ProvenanceDefinition) (_ ProvenanceDefinition, err error) {
	defer mon.Task()(&ctx)(&err)

	if def.Name == "" {
		return ProvenanceDefinition{}, ErrValidation.New("name must not be empty")
	}
	if def.ProvenanceType == "" {
		return ProvenanceDefinition{}, ErrValidation.New("provenance_type must not be empty")
	}
	id, err := ensureRecordID("record_id", def.RecordID)
	if err != nil {
		return ProvenanceDefinition{}, err
	}
	def.RecordID = id.String()

	_, err = db.db.ExecContext(ctx, `
		INSERT INTO provenance (id, name, provenance_type, json_metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			provenance_type = EXCLUDED.provenance_type,
			json_metadata = provenance.json_metadata || EXCLUDED.json_metadata
	`, id, def.Name, def.ProvenanceType, def.Metadata)
	if err != nil {
		return ProvenanceDefinition{}, Error.New("unable to register provenance: %w", err)
	}
	return def, nil
}

// RegisterStandardVariables upserts a batch of standard variable
// records.
func (db *DB) RegisterStandardVariables(ctx context.Context, defs []StandardVariableDefinition) (_ []StandardVariableDefinition, err error) {
	defer mon.Task()(&ctx)(&err)

	if err := verifyBatchSize("standard_variables", len(defs)); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(defs))
	for i, def := range defs {
		if def.Name == "" || def.Ontology == "" || def.URI == "" {
			return nil, ErrValidation.New("name, ontology and uri must not be empty: %+v", def)
		}
		id, err := ensureRecordID("record_id", def.RecordID)
		if err != nil {
			return nil, err
		}
		ids[i] = id
		defs[i].RecordID = id.String()
	}

	err = dbutil.WithTx(ctx, db.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		for i, def := range defs {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO standard_variables (id, ontology, name, uri, description)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (id) DO UPDATE SET
					ontology = EXCLUDED.ontology,
					name = EXCLUDED.name,
					uri = EXCLUDED.uri,
					description = EXCLUDED.description
			`, ids[i], def.Ontology, def.Name, def.URI, def.Description)
			if err != nil {
				return Error.New("unable to register standard variable: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return defs, nil
}

// RegisterDatasets upserts a batch of dataset records. Every definition
// must reference an existing provenance record; metadata of existing
// datasets is merged rather than replaced.
func (db *DB) RegisterDatasets(ctx context.Context, defs []DatasetDefinition) (_ []DatasetDefinition, err error) {
	defer mon.Task()(&ctx)(&err)

	if err := verifyBatchSize("datasets", len(defs)); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(defs))
	provenanceIDs := make([]uuid.UUID, len(defs))
	for i, def := range defs {
		if def.Name == "" || def.Description == "" {
			return nil, ErrValidation.New("name and description must not be empty: %+v", def)
		}
		id, err := ensureRecordID("record_id", def.RecordID)
		if err != nil {
			return nil, err
		}
		provenanceID, err := parseRequiredID("provenance_id", def.ProvenanceID)
		if err != nil {
			return nil, err
		}
		ids[i] = id
		provenanceIDs[i] = provenanceID
		defs[i].RecordID = id.String()
	}

	err = dbutil.WithTx(ctx, db.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		known, err := knownIDs(ctx, tx, "provenance", provenanceIDs)
		if err != nil {
			return err
		}

		for i, def := range defs {
			if !known[provenanceIDs[i]] {
				return ErrValidation.New("invalid value for 'provenance_id': %s", def.ProvenanceID)
			}

			var spatial sql.NullString
			if def.SpatialCoverage != nil {
				ewkt, err := def.SpatialCoverage.ewkt()
				if err != nil {
					return err
				}
				spatial = sql.NullString{String: ewkt, Valid: true}
			}
			var start, end sql.NullTime
			if def.TemporalCoverage != nil {
				window, err := def.TemporalCoverage.window()
				if err != nil {
					return err
				}
				start = sql.NullTime{Time: window.StartTime, Valid: true}
				end = sql.NullTime{Time: window.EndTime, Valid: true}
			}

			_, err := tx.ExecContext(ctx, `
				INSERT INTO datasets (
					id, provenance_id, name, description, json_metadata,
					spatial_coverage, temporal_coverage_start, temporal_coverage_end,
					created_at, updated_at
				)
				VALUES ($1, $2, $3, $4, $5, ST_GeomFromEWKT($6), $7, $8, now(), now())
				ON CONFLICT (id) DO UPDATE SET
					provenance_id = EXCLUDED.provenance_id,
					name = EXCLUDED.name,
					description = EXCLUDED.description,
					json_metadata = datasets.json_metadata || EXCLUDED.json_metadata,
					spatial_coverage = COALESCE(EXCLUDED.spatial_coverage, datasets.spatial_coverage),
					temporal_coverage_start = COALESCE(EXCLUDED.temporal_coverage_start, datasets.temporal_coverage_start),
					temporal_coverage_end = COALESCE(EXCLUDED.temporal_coverage_end, datasets.temporal_coverage_end),
					updated_at = EXCLUDED.updated_at
			`, ids[i], provenanceIDs[i], def.Name, def.Description, def.Metadata, spatial, start, end)
			if err != nil {
				return Error.New("unable to register dataset: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return defs, nil
}

// RegisterVariables upserts a batch of variable records and their
// standard variable annotations.
func (db *DB) RegisterVariables(ctx context.Context, defs []VariableDefinition) (_ []VariableDefinition, err error) {
	defer mon.Task()(&ctx)(&err)

	if err := verifyBatchSize("variables", len(defs)); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(defs))
	datasetIDs := make([]uuid.UUID, len(defs))
	annotations := make([][]uuid.UUID, len(defs))
	for i, def := range defs {
		if def.Name == "" {
			return nil, ErrValidation.New("name must not be empty: %+v", def)
		}
		if len(def.StandardVariableIDs) == 0 {
			return nil, ErrValidation.New("standard_variable_ids must not be empty: %+v", def)
		}
		id, err := ensureRecordID("record_id", def.RecordID)
		if err != nil {
			return nil, err
		}
		datasetID, err := parseRequiredID("dataset_id", def.DatasetID)
		if err != nil {
			return nil, err
		}
		for _, raw := range def.StandardVariableIDs {
			standardVariableID, err := parseRequiredID("standard_variable_ids", raw)
			if err != nil {
				return nil, err
			}
			annotations[i] = append(annotations[i], standardVariableID)
		}
		ids[i] = id
		datasetIDs[i] = datasetID
		defs[i].RecordID = id.String()
	}

	err = dbutil.WithTx(ctx, db.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		known, err := knownIDs(ctx, tx, "datasets", datasetIDs)
		if err != nil {
			return err
		}

		for i, def := range defs {
			if !known[datasetIDs[i]] {
				return ErrValidation.New("invalid value for 'dataset_id': %s", def.DatasetID)
			}

			_, err := tx.ExecContext(ctx, `
				INSERT INTO variables (id, dataset_id, name, json_metadata)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (id) DO UPDATE SET
					json_metadata = variables.json_metadata || EXCLUDED.json_metadata
			`, ids[i], datasetIDs[i], def.Name, def.Metadata)
			if err != nil {
				return Error.New("unable to register variable: %w", err)
			}

			for _, standardVariableID := range annotations[i] {
				_, err := tx.ExecContext(ctx, `
					INSERT INTO variables_standard_variables (variable_id, standard_variable_id)
					VALUES ($1, $2)
					ON CONFLICT DO NOTHING
				`, ids[i], standardVariableID)
				if err != nil {
					return Error.New("unable to register variable annotation: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return defs, nil
}

// RegisterResources upserts a batch of resource records, their variable
// links and their coverage index entries.
func (db *DB) RegisterResources(ctx context.Context, defs []ResourceDefinition) (_ []ResourceDefinition, err error) {
	defer mon.Task()(&ctx)(&err)

	if err := verifyBatchSize("resources", len(defs)); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(defs))
	datasetIDs := make([]uuid.UUID, len(defs))
	provenanceIDs := make([]uuid.UUID, len(defs))
	variableIDs := make([][]uuid.UUID, len(defs))
	for i, def := range defs {
		if def.Name == "" || def.ResourceType == "" || def.DataURL == "" {
			return nil, ErrValidation.New("name, resource_type and data_url must not be empty: %+v", def)
		}
		id, err := ensureRecordID("record_id", def.RecordID)
		if err != nil {
			return nil, err
		}
		datasetID, err := parseRequiredID("dataset_id", def.DatasetID)
		if err != nil {
			return nil, err
		}
		provenanceID, err := parseRequiredID("provenance_id", def.ProvenanceID)
		if err != nil {
			return nil, err
		}
		for _, raw := range def.VariableIDs {
			variableID, err := parseRequiredID("variable_ids", raw)
			if err != nil {
				return nil, err
			}
			variableIDs[i] = append(variableIDs[i], variableID)
		}
		ids[i] = id
		datasetIDs[i] = datasetID
		provenanceIDs[i] = provenanceID
		defs[i].RecordID = id.String()
	}

	err = dbutil.WithTx(ctx, db.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		known, err := knownIDs(ctx, tx, "datasets", datasetIDs)
		if err != nil {
			return err
		}

		for i, def := range defs {
			if !known[datasetIDs[i]] {
				return ErrValidation.New("invalid value for 'dataset_id': %s", def.DatasetID)
			}

			_, err := tx.ExecContext(ctx, `
				INSERT INTO resources (
					id, dataset_id, provenance_id, name, resource_type, data_url,
					json_metadata, layout, is_queryable, created_at, updated_at
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true, now(), now())
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name,
					resource_type = EXCLUDED.resource_type,
					data_url = EXCLUDED.data_url,
					json_metadata = resources.json_metadata || EXCLUDED.json_metadata,
					layout = EXCLUDED.layout,
					updated_at = EXCLUDED.updated_at
			`, ids[i], datasetIDs[i], provenanceIDs[i], def.Name, def.ResourceType, def.DataURL,
				def.Metadata, def.Layout)
			if err != nil {
				return Error.New("unable to register resource: %w", err)
			}

			for _, variableID := range variableIDs[i] {
				_, err := tx.ExecContext(ctx, `
					INSERT INTO resources_variables (resource_id, variable_id)
					VALUES ($1, $2)
					ON CONFLICT DO NOTHING
				`, ids[i], variableID)
				if err != nil {
					return Error.New("unable to register resource variable: %w", err)
				}
			}

			if def.TemporalCoverage != nil {
				window, err := def.TemporalCoverage.window()
				if err != nil {
					return err
				}
				_, err = tx.ExecContext(ctx, `
					INSERT INTO temporal_coverage_index (indexed_type, indexed_id, start_time, end_time)
					VALUES ($1, $2, $3, $4)
					ON CONFLICT (indexed_type, indexed_id) DO UPDATE SET
						start_time = EXCLUDED.start_time,
						end_time = EXCLUDED.end_time
				`, indexedTypeResource, ids[i], window.StartTime, window.EndTime)
				if err != nil {
					return Error.New("unable to index temporal coverage: %w", err)
				}
			}

			if def.SpatialCoverage != nil {
				ewkt, err := def.SpatialCoverage.ewkt()
				if err != nil {
					return err
				}
				_, err = tx.ExecContext(ctx, `
					INSERT INTO spatial_coverage_index (indexed_type, indexed_id, spatial_coverage)
					VALUES ($1, $2, ST_GeomFromEWKT($3))
					ON CONFLICT (indexed_type, indexed_id) DO UPDATE SET
						spatial_coverage = EXCLUDED.spatial_coverage
				`, indexedTypeResource, ids[i], ewkt)
				if err != nil {
					return Error.New("unable to index spatial coverage: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return defs, nil
}

// knownIDs reports which of the given ids exist in the table.
func knownIDs(ctx context.Context, tx *sql.Tx, table string, ids []uuid.UUID) (_ map[uuid.UUID]bool, err error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM `+table+` WHERE id = ANY($1::uuid[])`,
		dbutil.UUIDArray(ids))
	if err != nil {
		return nil, Error.New("unable to verify references: %w", err)
	}
	defer func() { err = errs.Combine(err, rows.Close()) }()

	known := make(map[uuid.UUID]bool, len(ids))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, Error.Wrap(err)
		}
		known[id] = true
	}
	return known, rows.Err()
}
