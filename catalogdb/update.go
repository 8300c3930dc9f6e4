// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

package catalogdb

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mintproject/MINT-Data-Catalog/private/dbutil"
)

// ChangeRecord describes a single field transition applied by an
// update.
type ChangeRecord struct {
	From interface{} `json:"from"`
	To   interface{} `json:"to"`
}

// Changes maps updated field names to their transitions.
type Changes map[string]ChangeRecord

// UpdateDataset contains arguments for UpdateDataset. Nil fields are
// left untouched; metadata is merged into the stored document and keys
// set to null are removed.
type UpdateDataset struct {
	DatasetID   uuid.UUID
	Name        *string
	Description *string
	Metadata    Metadata
}

// UpdateDataset applies a partial update to a dataset and reports the
// fields that changed.
func (db *DB) UpdateDataset(ctx context.Context, opts UpdateDataset) (_ Changes, err error) {
	defer mon.Task()(&ctx)(&err)

	if opts.DatasetID == uuid.Nil {
		return nil, ErrValidation.New("dataset_id missing")
	}

	return db.applyUpdate(ctx, applyUpdate{
		table: "datasets",
		id:    opts.DatasetID,
		fields: []fieldUpdate{
			{column: "name", value: opts.Name},
			{column: "description", value: opts.Description},
		},
		metadata: opts.Metadata,
	})
}

// UpdateResource contains arguments for UpdateResource.
type UpdateResource struct {
	ResourceID   uuid.UUID
	Name         *string
	ResourceType *string
	DataURL      *string
	Metadata     Metadata
}

// UpdateResource applies a partial update to a resource and reports the
// fields that changed.
func (db *DB) UpdateResource(ctx context.Context, opts UpdateResource) (_ Changes, err error) {
	defer mon.Task()(&ctx)(&err)

	if opts.ResourceID == uuid.Nil {
		return nil, ErrValidation.New("resource_id missing")
	}

	return db.applyUpdate(ctx, applyUpdate{
		table: "resources",
		id:    opts.ResourceID,
		fields: []fieldUpdate{
			{column: "name", value: opts.Name},
			{column: "resource_type", value: opts.ResourceType},
			{column: "data_url", value: opts.DataURL},
		},
		metadata: opts.Metadata,
	})
}

// UpdateVariable contains arguments for UpdateVariable.
type UpdateVariable struct {
	VariableID uuid.UUID
	Name       *string
	Metadata   Metadata
}

// UpdateVariable applies a partial update to a variable and reports the
// fields that changed.
func (db *DB) UpdateVariable(ctx context.Context, opts UpdateVariable) (_ Changes, err error) {
	defer mon.Task()(&ctx)(&err)

	if opts.VariableID == uuid.Nil {
		return nil, ErrValidation.New("variable_id missing")
	}

	return db.applyUpdate(ctx, applyUpdate{
		table: "variables",
		id:    opts.VariableID,
		fields: []fieldUpdate{
			{column: "name", value: opts.Name},
		},
		metadata: opts.Metadata,
	})
}

// UpdateStandardVariable contains arguments for UpdateStandardVariable.
type UpdateStandardVariable struct {
	StandardVariableID uuid.UUID
	Name               *string
	Ontology           *string
	URI                *string
	Description        *string
}

// UpdateStandardVariable applies a partial update to a standard
// variable and reports the fields that changed.
func (db *DB) UpdateStandardVariable(ctx context.Context, opts UpdateStandardVariable) (_ Changes, err error) {
	defer mon.Task()(&ctx)(&err)

	if opts.StandardVariableID == uuid.Nil {
		return nil, ErrValidation.New("standard_variable_id missing")
	}

	return db.applyUpdate(ctx, applyUpdate{
		table: "standard_variables",
		id:    opts.StandardVariableID,
		fields: []fieldUpdate{
			{column: "name", value: opts.Name},
			{column: "ontology", value: opts.Ontology},
			{column: "uri", value: opts.URI},
			{column: "description", value: opts.Description},
		},
	})
}

type fieldUpdate struct {
	column string
	value  *string
}

type applyUpdate struct {
	table    string
	id       uuid.UUID
	fields   []fieldUpdate
	metadata Metadata
}

// applyUpdate reads the current row, computes the new column values and
// writes them back in one transaction. Tables that carry no metadata
// column skip the metadata merge.
func (db *DB) applyUpdate(ctx context.Context, update applyUpdate) (_ Changes, err error) {
	changes := Changes{}

	err = dbutil.WithTx(ctx, db.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		columns := make([]string, 0, len(update.fields))
		for _, field := range update.fields {
			columns = append(columns, field.column)
		}
		hasMetadata := update.table != "standard_variables"
		if hasMetadata {
			columns = append(columns, "json_metadata")
		}

		current := make([]interface{}, len(columns))
		scan := make([]interface{}, len(columns))
		var currentMetadata Metadata
		for i := range current {
			if hasMetadata && i == len(columns)-1 {
				scan[i] = &currentMetadata
				continue
			}
			scan[i] = &current[i]
		}

		row := tx.QueryRowContext(ctx,
			`SELECT `+strings.Join(columns, ", ")+` FROM `+update.table+` WHERE id = $1`,
			update.id)
		if err := row.Scan(scan...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound.New("%s: %s", strings.TrimSuffix(update.table, "s"), update.id)
			}
			return Error.New("unable to load record: %w", err)
		}

		sets := make([]string, 0, len(columns))
		args := []interface{}{update.id}

		for i, field := range update.fields {
			if field.value == nil {
				continue
			}
			args = append(args, *field.value)
			sets = append(sets, field.column+" = $"+strconv.Itoa(len(args)))
			changes[field.column] = ChangeRecord{From: current[i], To: *field.value}
		}

		if hasMetadata && update.metadata != nil {
			merged := currentMetadata.Clone()
			if merged == nil {
				merged = Metadata{}
			}
			for key, value := range update.metadata {
				merged[key] = value
			}
			// A null value removes the key from the document.
			for key, value := range merged {
				if value == nil {
					delete(merged, key)
				}
			}

			args = append(args, merged)
			sets = append(sets, "json_metadata = $"+strconv.Itoa(len(args)))
			changes["metadata"] = ChangeRecord{From: currentMetadata, To: merged}
		}

		if len(sets) == 0 {
			return nil
		}

		_, err := tx.ExecContext(ctx,
			`UPDATE `+update.table+` SET `+strings.Join(sets, ", ")+` WHERE id = $1`,
			args...)
		if err != nil {
			return Error.New("unable to update record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}
