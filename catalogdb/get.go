// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

package catalogdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mintproject/MINT-Data-Catalog/query"
)

// DatasetInfo is the detailed view of a single dataset. The spatial
// coverage geometry is folded into the metadata document as GeoJSON.
type DatasetInfo struct {
	DatasetID   uuid.UUID `json:"dataset_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Metadata    Metadata  `json:"metadata"`
	CreatedAt   string    `json:"created_at"`
}

// ResourceInfo is the detailed view of a single resource.
type ResourceInfo struct {
	ResourceID   uuid.UUID `json:"resource_id"`
	Name         string    `json:"name"`
	DatasetID    uuid.UUID `json:"dataset_id"`
	ResourceType string    `json:"resource_type"`
	DataURL      string    `json:"data_url"`
	Metadata     Metadata  `json:"metadata"`
	CreatedAt    string    `json:"created_at"`
}

// VariableInfo is the detailed view of a single variable.
type VariableInfo struct {
	VariableID uuid.UUID `json:"variable_id"`
	Name       string    `json:"name"`
	DatasetID  uuid.UUID `json:"dataset_id"`
	Metadata   Metadata  `json:"metadata"`
}

// GetDataset fetches a single dataset by id. A missing record yields
// ErrNotFound.
func (db *DB) GetDataset(ctx context.Context, id uuid.UUID) (_ DatasetInfo, err error) {
	defer mon.Task()(&ctx)(&err)

	var info DatasetInfo
	var createdAt time.Time
	var spatialCoverage sql.NullString
	err = db.db.QueryRowContext(ctx, `
		SELECT id, name, description, json_metadata, created_at, ST_AsGeoJSON(spatial_coverage)
		FROM datasets
		WHERE id = $1
	`, id).Scan(&info.DatasetID, &info.Name, &info.Description, &info.Metadata, &createdAt, &spatialCoverage)
	if errors.Is(err, sql.ErrNoRows) {
		return DatasetInfo{}, ErrNotFound.New("dataset: %s", id)
	}
	if err != nil {
		return DatasetInfo{}, Error.New("unable to get dataset: %w", err)
	}

	info.CreatedAt = createdAt.Format(query.TimeFormat)
	if info.Metadata == nil {
		info.Metadata = Metadata{}
	}
	info.Metadata["spatial_coverage"] = map[string]interface{}{}
	if spatialCoverage.Valid {
		var geometry map[string]interface{}
		if err := json.Unmarshal([]byte(spatialCoverage.String), &geometry); err == nil {
			info.Metadata["spatial_coverage"] = geometry
		}
	}
	return info, nil
}

// GetResource fetches a single resource by id. A missing record yields
// ErrNotFound.
func (db *DB) GetResource(ctx context.Context, id uuid.UUID) (_ ResourceInfo, err error) {
	defer mon.Task()(&ctx)(&err)

	var info ResourceInfo
	var createdAt time.Time
	err = db.db.QueryRowContext(ctx, `
		SELECT id, name, dataset_id, resource_type, data_url, json_metadata, created_at
		FROM resources
		WHERE id = $1
	`, id).Scan(&info.ResourceID, &info.Name, &info.DatasetID, &info.ResourceType,
		&info.DataURL, &info.Metadata, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ResourceInfo{}, ErrNotFound.New("resource: %s", id)
	}
	if err != nil {
		return ResourceInfo{}, Error.New("unable to get resource: %w", err)
	}

	info.CreatedAt = createdAt.Format(query.TimeFormat)
	return info, nil
}

// GetVariable fetches a single variable by id. A missing record yields
// ErrNotFound.
func (db *DB) GetVariable(ctx context.Context, id uuid.UUID) (_ VariableInfo, err error) {
	defer mon.Task()(&ctx)(&err)

	var info VariableInfo
	err = db.db.QueryRowContext(ctx, `
		SELECT id, name, dataset_id, json_metadata
		FROM variables
		WHERE id = $1
	`, id).Scan(&info.VariableID, &info.Name, &info.DatasetID, &info.Metadata)
	if errors.Is(err, sql.ErrNoRows) {
		return VariableInfo{}, ErrNotFound.New("variable: %s", id)
	}
	if err != nil {
		return VariableInfo{}, Error.New("unable to get variable: %w", err)
	}
	return info, nil
}

// GetStandardVariable fetches a single standard variable by id. A
// missing record yields ErrNotFound.
func (db *DB) GetStandardVariable(ctx context.Context, id uuid.UUID) (_ StandardVariableRecord, err error) {
	defer mon.Task()(&ctx)(&err)

	var record StandardVariableRecord
	err = db.db.QueryRowContext(ctx, `
		SELECT id, name, ontology, uri, description
		FROM standard_variables
		WHERE id = $1
	`, id).Scan(&record.StandardVariableID, &record.Name, &record.Ontology, &record.URI, &record.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return StandardVariableRecord{}, ErrNotFound.New("standard variable: %s", id)
	}
	if err != nil {
		return StandardVariableRecord{}, Error.New("unable to get standard variable: %w", err)
	}
	return record, nil
}
