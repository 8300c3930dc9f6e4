// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

package catalogdb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/mintproject/MINT-Data-Catalog/private/dbutil"
)

// DeleteResource contains arguments for DeleteResource. The provenance
// id must match the one the resource was registered under.
type DeleteResource struct {
	ResourceID   uuid.UUID
	ProvenanceID uuid.UUID
}

// Verify verifies the request fields.
func (opts DeleteResource) Verify() error {
	if opts.ResourceID == uuid.Nil {
		return ErrValidation.New("resource_id missing")
	}
	if opts.ProvenanceID == uuid.Nil {
		return ErrValidation.New("provenance_id missing")
	}
	return nil
}

// DeleteResource removes a resource together with its variable links
// and coverage index entries.
func (db *DB) DeleteResource(ctx context.Context, opts DeleteResource) (err error) {
	defer mon.Task()(&ctx)(&err)

	if err := opts.Verify(); err != nil {
		return err
	}

	return dbutil.WithTx(ctx, db.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		var provenanceID uuid.UUID
		err := tx.QueryRowContext(ctx,
			`SELECT provenance_id FROM resources WHERE id = $1`,
			opts.ResourceID).Scan(&provenanceID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrValidation.New("resource does not exist: %s", opts.ResourceID)
		}
		if err != nil {
			return Error.New("unable to load resource: %w", err)
		}
		if provenanceID != opts.ProvenanceID {
			return ErrValidation.New("provenance_id '%s' does not match", opts.ProvenanceID)
		}

		statements := []struct {
			sql  string
			args []interface{}
		}{
			{`DELETE FROM spatial_coverage_index WHERE indexed_type = $1 AND indexed_id = $2`,
				[]interface{}{indexedTypeResource, opts.ResourceID}},
			{`DELETE FROM temporal_coverage_index WHERE indexed_type = $1 AND indexed_id = $2`,
				[]interface{}{indexedTypeResource, opts.ResourceID}},
			{`DELETE FROM resources_variables WHERE resource_id = $1`,
				[]interface{}{opts.ResourceID}},
			{`DELETE FROM resources WHERE id = $1`,
				[]interface{}{opts.ResourceID}},
		}
		for _, statement := range statements {
			if _, err := tx.ExecContext(ctx, statement.sql, statement.args...); err != nil {
				return Error.New("unable to delete resource: %w", err)
			}
		}
		return nil
	})
}

// DeleteDataset contains arguments for DeleteDataset. The provenance id
// must match the one the dataset was registered under.
type DeleteDataset struct {
	DatasetID    uuid.UUID
	ProvenanceID uuid.UUID
}

// Verify verifies the request fields.
func (opts DeleteDataset) Verify() error {
	if opts.DatasetID == uuid.Nil {
		return ErrValidation.New("dataset_id missing")
	}
	if opts.ProvenanceID == uuid.Nil {
		return ErrValidation.New("provenance_id missing")
	}
	return nil
}

// DeleteDataset removes a dataset and everything hanging off it: its
// variables, resources, link rows and coverage index entries.
func (db *DB) DeleteDataset(ctx context.Context, opts DeleteDataset) (err error) {
	defer mon.Task()(&ctx)(&err)

	if err := opts.Verify(); err != nil {
		return err
	}

	return dbutil.WithTx(ctx, db.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		var provenanceID uuid.UUID
		err := tx.QueryRowContext(ctx,
			`SELECT provenance_id FROM datasets WHERE id = $1`,
			opts.DatasetID).Scan(&provenanceID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrValidation.New("dataset does not exist: %s", opts.DatasetID)
		}
		if err != nil {
			return Error.New("unable to load dataset: %w", err)
		}
		if provenanceID != opts.ProvenanceID {
			return ErrValidation.New("provenance_id '%s' does not match", opts.ProvenanceID)
		}

		statements := []string{
			`DELETE FROM variables_standard_variables
				USING variables
				WHERE variables_standard_variables.variable_id = variables.id
					AND variables.dataset_id = $1`,
			`DELETE FROM resources_variables
				USING variables
				WHERE resources_variables.variable_id = variables.id
					AND variables.dataset_id = $1`,
			`DELETE FROM temporal_coverage_index
				USING resources
				WHERE temporal_coverage_index.indexed_id = resources.id
					AND resources.dataset_id = $1`,
			`DELETE FROM spatial_coverage_index
				USING resources
				WHERE spatial_coverage_index.indexed_id = resources.id
					AND resources.dataset_id = $1`,
			`DELETE FROM variables WHERE dataset_id = $1`,
			`DELETE FROM resources WHERE dataset_id = $1`,
			`DELETE FROM datasets WHERE id = $1`,
		}
		for _, statement := range statements {
			if _, err := tx.ExecContext(ctx, statement, opts.DatasetID); err != nil {
				return Error.New("unable to delete dataset: %w", err)
			}
		}
		return nil
	})
}
